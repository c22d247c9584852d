package schema

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

var (
	declarationType = reflect.TypeOf((*Declaration)(nil)).Elem()
	parameterType   = reflect.TypeOf(Parameter{})
)

// Decode converts a generic tree (as produced by encoding/json or yaml.v3)
// into one where every map tagged with a known entity type is replaced by
// its typed struct. Untyped and unknown maps are kept, with their children
// decoded recursively.
func Decode(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		switch TypeOf(v) {
		case TypeCodeChunk:
			return decodeEntity(v, &CodeChunk{})
		case TypeCodeExpression:
			return decodeEntity(v, &CodeExpression{})
		case TypeParameter:
			return decodeEntity(v, &Parameter{})
		case TypeFunction:
			return decodeEntity(v, &Function{})
		case TypeVariable:
			return decodeEntity(v, &Variable{})
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			decoded, err := Decode(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = decoded
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			decoded, err := Decode(child)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = decoded
		}
		return out, nil
	}
	return value, nil
}

// TypeOf returns the entity type of a decoded or generic node, or "".
func TypeOf(node any) string {
	switch n := node.(type) {
	case *CodeChunk:
		return TypeCodeChunk
	case *CodeExpression:
		return TypeCodeExpression
	case *Parameter:
		return TypeParameter
	case *Function:
		return TypeFunction
	case *Variable:
		return TypeVariable
	case map[string]any:
		kind, _ := n["type"].(string)
		return kind
	}
	return ""
}

func decodeEntity[T any](input map[string]any, out *T) (*T, error) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: entityHook,
		Result:     out,
		TagName:    "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("decode %s: %w", TypeOf(input), err)
	}
	return out, nil
}

// entityHook resolves polymorphic declarations and accepts "required" as
// an alias of "isRequired" on parameters.
func entityHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	switch to {
	case declarationType:
		decoded, err := Decode(m)
		if err != nil {
			return nil, err
		}
		declaration, ok := decoded.(Declaration)
		if !ok {
			return nil, fmt.Errorf("unsupported declaration type %q", TypeOf(m))
		}
		return declaration, nil
	case parameterType:
		if required, ok := m["required"]; ok {
			if _, has := m["isRequired"]; !has {
				aliased := make(map[string]any, len(m))
				for key, value := range m {
					if key != "required" {
						aliased[key] = value
					}
				}
				aliased["isRequired"] = required
				return aliased, nil
			}
		}
	}
	return data, nil
}
