package schema

const (
	BooleanValidator  = "BooleanValidator"
	IntegerValidator  = "IntegerValidator"
	NumberValidator   = "NumberValidator"
	StringValidator   = "StringValidator"
	ArrayValidator    = "ArrayValidator"
	TupleValidator    = "TupleValidator"
	ConstantValidator = "ConstantValidator"
	EnumValidator     = "EnumValidator"
)

// Validator is a tagged union over the validator kinds above. Only the
// fields relevant to Type are populated.
type Validator struct {
	Type           string       `json:"type" mapstructure:"type"`
	ItemsValidator *Validator   `json:"itemsValidator,omitempty" mapstructure:"itemsValidator"`
	Items          []*Validator `json:"items,omitempty" mapstructure:"items"`
	Value          any          `json:"value,omitempty" mapstructure:"value"`
	Values         []any        `json:"values,omitempty" mapstructure:"values"`
}

func NewValidator(kind string) *Validator {
	return &Validator{Type: kind}
}

// ArrayOf returns an ArrayValidator whose items satisfy items (which may be nil).
func ArrayOf(items *Validator) *Validator {
	return &Validator{Type: ArrayValidator, ItemsValidator: items}
}

func Constant(value any) *Validator {
	return &Validator{Type: ConstantValidator, Value: value}
}

func Enum(values ...any) *Validator {
	return &Validator{Type: EnumValidator, Values: values}
}

// annotationShapes maps type annotation names to validator kinds.
var annotationShapes = map[string]string{
	"bool":  BooleanValidator,
	"str":   StringValidator,
	"int":   IntegerValidator,
	"float": NumberValidator,
	"list":  ArrayValidator,
	"tuple": TupleValidator,
}

// ShapeForAnnotation returns the validator for a bare annotation name, or nil
// when the annotation is not recognised.
func ShapeForAnnotation(name string) *Validator {
	kind, ok := annotationShapes[name]
	if !ok {
		return nil
	}
	return NewValidator(kind)
}
