// Package stdlib provides the host modules and builtins that fragments can
// reach from the execution runtime.
package stdlib

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Column dtypes reported by Frame.
const (
	DTypeBool   = "bool"
	DTypeInt    = "int"
	DTypeFloat  = "float"
	DTypeString = "str"
	DTypeObject = "object"
)

// DataModule builds the `data` module.
func DataModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "data",
		Members: starlark.StringDict{
			"frame": starlark.NewBuiltin("frame", newFrame),
			"array": starlark.NewBuiltin("array", newArray),
		},
	}
}

// Column is one named column of a Frame.
type Column struct {
	Name   string
	Values []starlark.Value
}

// DType infers the column's element type. Mixed ints and floats widen to
// float; any other mix is object.
func (c Column) DType() string {
	if len(c.Values) == 0 {
		return DTypeObject
	}
	kind := ""
	for _, v := range c.Values {
		var k string
		switch v.(type) {
		case starlark.Bool:
			k = DTypeBool
		case starlark.Int:
			k = DTypeInt
		case starlark.Float:
			k = DTypeFloat
		case starlark.String:
			k = DTypeString
		default:
			return DTypeObject
		}
		switch {
		case kind == "" || kind == k:
			kind = k
		case (kind == DTypeInt && k == DTypeFloat) || (kind == DTypeFloat && k == DTypeInt):
			kind = DTypeFloat
		default:
			return DTypeObject
		}
	}
	return kind
}

// Frame is a column-oriented table.
type Frame struct {
	columns []Column
	frozen  bool
}

var (
	_ starlark.HasAttrs = (*Frame)(nil)
	_ starlark.Mapping  = (*Frame)(nil)
)

func newFrame(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("%s: got %d positional arguments, want at most 1", b.Name(), len(args))
	}
	var pairs []starlark.Tuple
	if len(args) == 1 {
		dict, ok := args[0].(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%s: got %s, want dict", b.Name(), args[0].Type())
		}
		pairs = dict.Items()
	}
	pairs = append(pairs, kwargs...)

	frame := &Frame{}
	rows := -1
	for _, pair := range pairs {
		name, ok := starlark.AsString(pair[0])
		if !ok {
			return nil, fmt.Errorf("%s: column name must be a string, got %s", b.Name(), pair[0].Type())
		}
		values, err := collect(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%s: column %q: %w", b.Name(), name, err)
		}
		if rows >= 0 && len(values) != rows {
			return nil, fmt.Errorf("%s: column %q has %d rows, want %d", b.Name(), name, len(values), rows)
		}
		rows = len(values)
		frame.columns = append(frame.columns, Column{Name: name, Values: values})
	}
	return frame, nil
}

// Columns returns the frame's columns in insertion order.
func (f *Frame) Columns() []Column { return f.columns }

func (f *Frame) rows() int {
	if len(f.columns) == 0 {
		return 0
	}
	return len(f.columns[0].Values)
}

func (f *Frame) String() string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return fmt.Sprintf("frame(%d rows, columns=[%s])", f.rows(), strings.Join(names, ", "))
}

func (f *Frame) Type() string          { return "frame" }
func (f *Frame) Freeze()               { f.frozen = true }
func (f *Frame) Truth() starlark.Bool  { return f.rows() > 0 }
func (f *Frame) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: frame") }

func (f *Frame) Attr(name string) (starlark.Value, error) {
	switch name {
	case "columns":
		names := make([]starlark.Value, len(f.columns))
		for i, c := range f.columns {
			names[i] = starlark.String(c.Name)
		}
		return starlark.NewList(names), nil
	case "shape":
		return starlark.Tuple{starlark.MakeInt(f.rows()), starlark.MakeInt(len(f.columns))}, nil
	case "dtypes":
		dict := starlark.NewDict(len(f.columns))
		for _, c := range f.columns {
			_ = dict.SetKey(starlark.String(c.Name), starlark.String(c.DType()))
		}
		return dict, nil
	}
	return nil, nil
}

func (f *Frame) AttrNames() []string { return []string{"columns", "dtypes", "shape"} }

// Get returns a copy of the named column as a list.
func (f *Frame) Get(key starlark.Value) (starlark.Value, bool, error) {
	name, ok := starlark.AsString(key)
	if !ok {
		return nil, false, fmt.Errorf("frame column key must be a string, got %s", key.Type())
	}
	for _, c := range f.columns {
		if c.Name == name {
			return starlark.NewList(append([]starlark.Value(nil), c.Values...)), true, nil
		}
	}
	return nil, false, nil
}

// Array is a rectangular n-dimensional array stored row-major.
type Array struct {
	shape  []int
	values []starlark.Value
}

var (
	_ starlark.HasAttrs  = (*Array)(nil)
	_ starlark.Indexable = (*Array)(nil)
)

func newArray(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var source starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &source); err != nil {
		return nil, err
	}
	arr := &Array{}
	if err := arr.fill(source, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return arr, nil
}

func (a *Array) fill(v starlark.Value, depth int) error {
	if arr, ok := v.(*Array); ok {
		v = arr.ToList()
	}
	iterable, ok := v.(starlark.Indexable)
	if _, isString := v.(starlark.String); !ok || isString {
		if depth < len(a.shape) {
			return fmt.Errorf("inhomogeneous shape at depth %d", depth)
		}
		a.values = append(a.values, v)
		return nil
	}
	n := iterable.Len()
	switch {
	case depth == len(a.shape) && len(a.values) == 0:
		a.shape = append(a.shape, n)
	case depth >= len(a.shape) || a.shape[depth] != n:
		return fmt.Errorf("inhomogeneous shape at depth %d", depth)
	}
	for i := 0; i < n; i++ {
		if err := a.fill(iterable.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Shape returns the array dimensions.
func (a *Array) Shape() []int { return a.shape }

// ToList returns the array as nested lists.
func (a *Array) ToList() starlark.Value {
	if len(a.shape) == 0 {
		if len(a.values) == 1 {
			return a.values[0]
		}
		return starlark.NewList(nil)
	}
	list, _ := nest(a.shape, a.values)
	return list
}

func nest(shape []int, values []starlark.Value) (starlark.Value, []starlark.Value) {
	if len(shape) == 0 {
		return values[0], values[1:]
	}
	items := make([]starlark.Value, shape[0])
	for i := range items {
		items[i], values = nest(shape[1:], values)
	}
	return starlark.NewList(items), values
}

func (a *Array) String() string        { return fmt.Sprintf("array(%s)", a.ToList()) }
func (a *Array) Type() string          { return "array" }
func (a *Array) Freeze()               {}
func (a *Array) Truth() starlark.Bool  { return len(a.values) > 0 }
func (a *Array) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: array") }

func (a *Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// Index returns a scalar for one-dimensional arrays, otherwise a sub-array.
func (a *Array) Index(i int) starlark.Value {
	if len(a.shape) == 1 {
		return a.values[i]
	}
	stride := len(a.values) / a.shape[0]
	return &Array{shape: a.shape[1:], values: a.values[i*stride : (i+1)*stride]}
}

func (a *Array) Attr(name string) (starlark.Value, error) {
	switch name {
	case "shape":
		dims := make(starlark.Tuple, len(a.shape))
		for i, d := range a.shape {
			dims[i] = starlark.MakeInt(d)
		}
		return dims, nil
	case "ndim":
		return starlark.MakeInt(len(a.shape)), nil
	case "size":
		return starlark.MakeInt(len(a.values)), nil
	case "tolist":
		return starlark.NewBuiltin("tolist", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
			return a.ToList(), nil
		}).BindReceiver(a), nil
	}
	return nil, nil
}

func (a *Array) AttrNames() []string { return []string{"ndim", "shape", "size", "tolist"} }

// collect materialises an iterable into a slice.
func collect(v starlark.Value) ([]starlark.Value, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("got %s, want iterable", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()
	var out []starlark.Value
	var x starlark.Value
	for iter.Next(&x) {
		out = append(out, x)
	}
	return out, nil
}
