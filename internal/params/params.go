// Package params turns command-line arguments into document parameter
// values.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"execdoc/internal/core/errors"
	"execdoc/internal/schema"

	"github.com/spf13/pflag"
)

var truthy = []string{"true", "t", "1", "yes"}

// Parse reads `--name value` pairs for each parameter from args. Unknown
// flags are ignored. Absent optional parameters get their default, or nil.
func Parse(parameters []*schema.Parameter, args []string) (map[string]any, error) {
	fs := pflag.NewFlagSet("parameters", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	fs.SetOutput(new(bytes.Buffer))

	raw := make(map[string]*string, len(parameters))
	for _, p := range parameters {
		if fs.Lookup(p.Name) != nil {
			continue
		}
		raw[p.Name] = fs.String(p.Name, "", descriptionOf(p))
	}
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "parse parameter flags")
	}

	var missing []string
	values := make(map[string]any, len(parameters))
	for _, p := range parameters {
		if _, done := values[p.Name]; done {
			continue
		}
		if !fs.Changed(p.Name) {
			switch {
			case p.Validator != nil && p.Validator.Type == schema.ConstantValidator:
				values[p.Name] = p.Validator.Value
			case p.IsRequired:
				missing = append(missing, p.Name)
			default:
				values[p.Name] = p.Default
			}
			continue
		}
		value, err := Deserialize(p, *raw[p.Name])
		if err != nil {
			return nil, err
		}
		values[p.Name] = value
	}
	if len(missing) > 0 {
		err := errors.New(errors.CodeValidationError,
			fmt.Sprintf("the following arguments are required: --%s", strings.Join(missing, ", --")))
		return nil, errors.AddContext(err, errors.CtxParameter, missing)
	}
	return values, nil
}

// Deserialize converts one command-line string according to the parameter's
// validator. Parameters without a validator are strings.
func Deserialize(p *schema.Parameter, value string) (any, error) {
	v := p.Validator
	if v == nil {
		return value, nil
	}
	switch v.Type {
	case schema.ConstantValidator:
		return v.Value, nil
	case schema.EnumValidator:
		for _, member := range v.Values {
			if fmt.Sprint(member) == value {
				return member, nil
			}
		}
		return nil, invalid(p, value, fmt.Sprintf("must be one of %v", v.Values))
	case schema.BooleanValidator:
		return slices.Contains(truthy, strings.ToLower(value)), nil
	case schema.IntegerValidator:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, invalid(p, value, "is not an integer")
		}
		return n, nil
	case schema.NumberValidator:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, invalid(p, value, "is not a number")
		}
		return f, nil
	case schema.ArrayValidator, schema.TupleValidator:
		decoded, err := decodeJSON(value)
		if err != nil {
			return nil, invalid(p, value, "is not valid JSON")
		}
		if v.Type == schema.TupleValidator {
			if list, ok := decoded.([]any); ok {
				return schema.Tuple(list), nil
			}
		}
		return decoded, nil
	}
	return value, nil
}

func decodeJSON(value string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return normalizeNumbers(out), nil
}

// normalizeNumbers replaces json.Number with int64 where integral, float64
// otherwise.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
	}
	return v
}

func invalid(p *schema.Parameter, value, reason string) error {
	err := errors.New(errors.CodeValidationError, fmt.Sprintf("parameter %s: %q %s", p.Name, value, reason))
	return errors.AddContext(err, errors.CtxParameter, p.Name)
}

func descriptionOf(p *schema.Parameter) string {
	if p.Validator == nil {
		return "string"
	}
	return p.Validator.Type
}
