package format

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/trackdeck/internal/data"
)

// luaFormatFunc is the global function a tooltip script must define.
const luaFormatFunc = "format"

// dangerousGlobals are removed from the Lua state so tooltip scripts cannot
// load code from disk or strings.
var dangerousGlobals = []string{"dofile", "loadfile", "load", "loadstring"}

// Lua formats items by calling a user script's format(item) function. The
// item arrives as a table with position, category, score and the item's
// auxiliary fields; the function returns the tooltip string.
//
// Script failures fall back to a Default formatter and report through the
// warn hook, so Format never surfaces script errors to the caller.
//
// Lua states are not goroutine-safe. A Lua formatter must be owned by a
// single goroutine.
type Lua struct {
	L        *lua.LState
	fallback Formatter
	warnf    func(msg string, args ...any)
}

// LuaOption configures a Lua formatter.
type LuaOption func(*Lua)

// WithFallback sets the formatter used when the script fails.
// Defaults to Default.
func WithFallback(f Formatter) LuaOption {
	return func(l *Lua) {
		l.fallback = f
	}
}

// WithWarnf sets the hook invoked when a script error forces a fallback.
func WithWarnf(fn func(msg string, args ...any)) LuaOption {
	return func(l *Lua) {
		l.warnf = fn
	}
}

// LoadLua reads a tooltip script from disk and compiles it.
func LoadLua(path string, opts ...LuaOption) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tooltip script: %w", err)
	}
	f, err := NewLua(string(src), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// NewLua compiles a tooltip script from source. The script runs in a
// sandboxed state: only the base, table, string and math libraries are
// opened, and the code-loading globals are nil'd.
func NewLua(src string, opts ...LuaOption) (*Lua, error) {
	f := &Lua{fallback: Default{}}
	for _, opt := range opts {
		opt(f)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	openSafeLibraries(L)
	for _, name := range dangerousGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("tooltip script: %w", err)
	}
	if L.GetGlobal(luaFormatFunc).Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("tooltip script: no %s function defined", luaFormatFunc)
	}

	f.L = L
	return f, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	// Base library (tostring, type, pairs, ipairs, etc.)
	lua.OpenBase(L)

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Intentionally NOT opened:
	// - io (file system access)
	// - os (system calls, execute)
	// - debug (can bypass sandbox)
	// - package (can load arbitrary modules)
}

// Format implements Formatter.
func (f *Lua) Format(item data.Item) (string, error) {
	text, err := f.call(item)
	if err != nil {
		f.warn("tooltip script failed, using default: %v", err)
		return f.fallback.Format(item)
	}
	return text, nil
}

// Close releases the underlying Lua state.
func (f *Lua) Close() {
	if f.L != nil {
		f.L.Close()
		f.L = nil
	}
}

func (f *Lua) call(item data.Item) (string, error) {
	err := f.L.CallByParam(lua.P{
		Fn:      f.L.GetGlobal(luaFormatFunc),
		NRet:    1,
		Protect: true,
	}, f.itemTable(item))
	if err != nil {
		return "", err
	}

	ret := f.L.Get(-1)
	f.L.Pop(1)
	if ret.Type() != lua.LTString && ret.Type() != lua.LTNumber {
		return "", fmt.Errorf("%s() returned %s, want string", luaFormatFunc, ret.Type())
	}
	return lua.LVAsString(ret), nil
}

// itemTable converts an item to the table passed to format().
func (f *Lua) itemTable(item data.Item) *lua.LTable {
	t := f.L.NewTable()
	t.RawSetString("position", lua.LNumber(item.Position))
	t.RawSetString("category", lua.LString(item.Category))
	t.RawSetString("score", lua.LNumber(item.Score))
	for _, aux := range item.AuxFields() {
		t.RawSetString(aux.Name, luaValue(aux.Value))
	}
	return t
}

// luaValue converts a JSON value to the closest Lua type. Nested arrays
// and objects pass through as their JSON text.
func luaValue(v gjson.Result) lua.LValue {
	switch v.Type {
	case gjson.Number:
		return lua.LNumber(v.Num)
	case gjson.True:
		return lua.LTrue
	case gjson.False:
		return lua.LFalse
	case gjson.Null:
		return lua.LNil
	case gjson.String:
		return lua.LString(v.Str)
	default:
		return lua.LString(v.Raw)
	}
}

func (f *Lua) warn(msg string, args ...any) {
	if f.warnf != nil {
		f.warnf(msg, args...)
	}
}
