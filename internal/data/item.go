// Package data loads track items from JSON files and watches them for
// changes. Items keep their source JSON so auxiliary fields flow through
// to tooltips and user formatters without the core ever interpreting them.
package data

import "github.com/tidwall/gjson"

// CategoryUnassigned is the sentinel category for items whose source
// object carries no usable category.
const CategoryUnassigned = "unassigned"

// Item is one scored position on a track.
type Item struct {
	// Position is the 1-based sequence position.
	Position int

	// Category is the row the item renders in. Never empty; items without
	// a category get CategoryUnassigned.
	Category string

	// Score drives the heatmap color.
	Score float64

	// Raw is the item's source JSON object, normalized so Category is
	// always present.
	Raw []byte
}

// Aux reads an auxiliary field from the item's source object using gjson
// path syntax.
func (it Item) Aux(path string) gjson.Result {
	return gjson.GetBytes(it.Raw, path)
}

// AuxField is a non-core field of an item's source object.
type AuxField struct {
	Name  string
	Value gjson.Result
}

// AuxFields returns the item's non-core fields in document order.
func (it Item) AuxFields() []AuxField {
	var fields []AuxField
	gjson.ParseBytes(it.Raw).ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "position", "category", "score":
			return true
		}
		fields = append(fields, AuxField{Name: key.String(), Value: value})
		return true
	})
	return fields
}

// Domain returns the inclusive position span of the items. ok is false for
// an empty set.
func Domain(items []Item) (min, max int, ok bool) {
	if len(items) == 0 {
		return 0, 0, false
	}
	min, max = items[0].Position, items[0].Position
	for _, it := range items[1:] {
		if it.Position < min {
			min = it.Position
		}
		if it.Position > max {
			max = it.Position
		}
	}
	return min, max, true
}

// Categories returns the unique categories in first-seen order.
func Categories(items []Item) []string {
	seen := make(map[string]bool, len(items))
	var cats []string
	for _, it := range items {
		if !seen[it.Category] {
			seen[it.Category] = true
			cats = append(cats, it.Category)
		}
	}
	return cats
}

// Scores returns the items' scores, for fitting the color extent.
func Scores(items []Item) []float64 {
	scores := make([]float64, len(items))
	for i, it := range items {
		scores[i] = it.Score
	}
	return scores
}
