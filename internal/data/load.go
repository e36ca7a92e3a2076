package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Errors returned by Load and Parse.
var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrNotArray    = errors.New("top-level value is not a JSON array")
)

// Load reads and parses a track data file. skipped counts elements
// dropped for missing required fields.
func Load(path string) (items []Item, skipped int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	items, skipped, err = Parse(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, skipped, nil
}

// Parse decodes a top-level JSON array of track items. Elements must carry
// numeric "position" and "score" fields; elements that don't are skipped
// and counted rather than failing the whole load. A missing or empty
// "category" is normalized to CategoryUnassigned in both the struct field
// and the element's Raw JSON, so every downstream consumer sees the same
// document.
func Parse(raw []byte) (items []Item, skipped int, err error) {
	if !gjson.ValidBytes(raw) {
		return nil, 0, ErrInvalidJSON
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, 0, ErrNotArray
	}

	for _, el := range root.Array() {
		pos := el.Get("position")
		score := el.Get("score")
		if pos.Type != gjson.Number || score.Type != gjson.Number {
			skipped++
			continue
		}

		rawEl := []byte(el.Raw)
		category := el.Get("category").String()
		if category == "" {
			category = CategoryUnassigned
			if normalized, serr := sjson.SetBytes(rawEl, "category", CategoryUnassigned); serr == nil {
				rawEl = normalized
			}
		}

		items = append(items, Item{
			Position: int(pos.Int()),
			Category: category,
			Score:    score.Float(),
			Raw:      rawEl,
		})
	}

	return items, skipped, nil
}
