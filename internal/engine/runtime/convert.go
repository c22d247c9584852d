package runtime

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"

	"execdoc/internal/engine/stdlib"
	"execdoc/internal/schema"

	"go.starlark.net/starlark"
)

// ToValue converts a decoded JSON/YAML value or a parameter value into a
// runtime value.
func ToValue(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return x, nil
	case bool:
		return starlark.Bool(x), nil
	case int:
		return starlark.MakeInt(x), nil
	case int64:
		return starlark.MakeInt64(x), nil
	case uint64:
		return starlark.MakeUint64(x), nil
	case float64:
		return starlark.Float(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x)
		}
		return starlark.Float(f), nil
	case string:
		return starlark.String(x), nil
	case schema.Tuple:
		items := make(starlark.Tuple, len(x))
		for i, item := range x {
			converted, err := ToValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return items, nil
	case []any:
		items := make([]starlark.Value, len(x))
		for i, item := range x {
			converted, err := ToValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(x))
		for key, item := range x {
			converted, err := ToValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), converted); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return starlark.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return starlark.MakeUint64(rv.Uint()), nil
	case reflect.Float32:
		return starlark.Float(rv.Float()), nil
	}
	return nil, fmt.Errorf("cannot convert %T to a runtime value", v)
}

// decode turns a runtime value into its portable form. Artists become images
// of their figure. The boolean is false for values that must not be recorded
// as outputs.
func (e *Engine) decode(v starlark.Value) (any, bool) {
	switch x := v.(type) {
	case *stdlib.ArtistList:
		return nil, false
	case starlark.NoneType:
		return nil, true
	case starlark.Bool:
		return bool(x), true
	case starlark.Int:
		return intValue(x), true
	case starlark.Float:
		return float64(x), true
	case starlark.String:
		return string(x), true
	case starlark.Bytes:
		return string(x), true
	case *starlark.List:
		return e.decodeSequence(x), true
	case starlark.Tuple:
		return schema.Tuple(e.decodeSequence(x)), true
	case *starlark.Set:
		return e.decodeSequence(x), true
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			if decoded, keep := e.decode(item[1]); keep {
				out[key] = decoded
			}
		}
		return out, true
	case *stdlib.Frame:
		return e.decodeFrame(x), true
	case *stdlib.Array:
		return e.decode(x.ToList())
	case stdlib.Artist:
		return e.renderFigure(x.Owner()), true
	}
	return v.String(), true
}

func (e *Engine) decodeSequence(seq starlark.Iterable) []any {
	iter := seq.Iterate()
	defer iter.Done()
	out := []any{}
	var item starlark.Value
	for iter.Next(&item) {
		if decoded, keep := e.decode(item); keep {
			out = append(out, decoded)
		}
	}
	return out
}

// decodeFrame builds a Datatable, coercing every value of a column to the
// portable scalar matching the column dtype.
func (e *Engine) decodeFrame(frame *stdlib.Frame) *schema.Datatable {
	columns := make([]*schema.DatatableColumn, 0, len(frame.Columns()))
	for _, col := range frame.Columns() {
		var items *schema.Validator
		values := make([]any, len(col.Values))
		switch col.DType() {
		case stdlib.DTypeBool:
			items = schema.NewValidator(schema.BooleanValidator)
			for i, v := range col.Values {
				values[i] = bool(v.Truth())
			}
		case stdlib.DTypeInt:
			items = schema.NewValidator(schema.IntegerValidator)
			for i, v := range col.Values {
				values[i] = intValue(v.(starlark.Int))
			}
		case stdlib.DTypeFloat:
			items = schema.NewValidator(schema.NumberValidator)
			for i, v := range col.Values {
				values[i], _ = starlark.AsFloat(v)
			}
		case stdlib.DTypeString:
			items = schema.NewValidator(schema.StringValidator)
			for i, v := range col.Values {
				values[i], _ = starlark.AsString(v)
			}
		default:
			for i, v := range col.Values {
				values[i], _ = e.decode(v)
			}
		}
		columns = append(columns, schema.NewDatatableColumn(col.Name, values, items))
	}
	return schema.NewDatatable(columns...)
}

// intValue returns an int64, or a float64 when the integer overflows it.
func intValue(i starlark.Int) any {
	if n, ok := i.Int64(); ok {
		return n
	}
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}
