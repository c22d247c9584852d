// Package schema defines the document entities read and written by the
// compiler and the execution engine.
package schema

import (
	"encoding/json"
)

const (
	TypeCodeChunk       = "CodeChunk"
	TypeCodeExpression  = "CodeExpression"
	TypeCodeError       = "CodeError"
	TypeParameter       = "Parameter"
	TypeVariable        = "Variable"
	TypeFunction        = "Function"
	TypeDatatable       = "Datatable"
	TypeDatatableColumn = "DatatableColumn"
	TypeImageObject     = "ImageObject"
)

// Error kinds attached to fragments.
const (
	SyntaxError     = "SyntaxError"
	RuntimeError    = "RuntimeError"
	CapabilityError = "CapabilityError"
)

// CodeError is a failure captured on a fragment rather than returned.
type CodeError struct {
	Type         string `json:"type" mapstructure:"type"`
	ErrorType    string `json:"errorType" mapstructure:"errorType"`
	ErrorMessage string `json:"errorMessage" mapstructure:"errorMessage"`
	StackTrace   string `json:"stackTrace,omitempty" mapstructure:"stackTrace"`
}

func NewCodeError(kind, message, trace string) *CodeError {
	return &CodeError{Type: TypeCodeError, ErrorType: kind, ErrorMessage: message, StackTrace: trace}
}

// CodeChunk is a block of statements embedded in a document.
type CodeChunk struct {
	Type                string         `json:"type" mapstructure:"type"`
	ID                  string         `json:"id,omitempty" mapstructure:"id"`
	Text                string         `json:"text" mapstructure:"text"`
	ProgrammingLanguage string         `json:"programmingLanguage,omitempty" mapstructure:"programmingLanguage"`
	Imports             []string       `json:"imports,omitempty" mapstructure:"imports"`
	Declares            []Declaration  `json:"declares,omitempty" mapstructure:"declares"`
	Assigns             []string       `json:"assigns,omitempty" mapstructure:"assigns"`
	Alters              []string       `json:"alters,omitempty" mapstructure:"alters"`
	Uses                []string       `json:"uses,omitempty" mapstructure:"uses"`
	Reads               []string       `json:"reads,omitempty" mapstructure:"reads"`
	Outputs             []any          `json:"outputs,omitempty" mapstructure:"outputs"`
	Duration            float64        `json:"duration,omitempty" mapstructure:"duration"`
	Errors              []*CodeError   `json:"errors,omitempty" mapstructure:"errors"`
	Extra               map[string]any `json:"-" mapstructure:",remain"`
}

func NewCodeChunk(text, language string) *CodeChunk {
	return &CodeChunk{Type: TypeCodeChunk, Text: text, ProgrammingLanguage: language}
}

func (c *CodeChunk) MarshalJSON() ([]byte, error) {
	type plain CodeChunk
	return marshalEntity((*plain)(c), c.Extra)
}

// CodeExpression is an inline expression whose value is shown in place.
type CodeExpression struct {
	Type                string         `json:"type" mapstructure:"type"`
	ID                  string         `json:"id,omitempty" mapstructure:"id"`
	Text                string         `json:"text" mapstructure:"text"`
	ProgrammingLanguage string         `json:"programmingLanguage,omitempty" mapstructure:"programmingLanguage"`
	Output              any            `json:"output,omitempty" mapstructure:"output"`
	Errors              []*CodeError   `json:"errors,omitempty" mapstructure:"errors"`
	Extra               map[string]any `json:"-" mapstructure:",remain"`
}

func NewCodeExpression(text, language string) *CodeExpression {
	return &CodeExpression{Type: TypeCodeExpression, Text: text, ProgrammingLanguage: language}
}

func (e *CodeExpression) MarshalJSON() ([]byte, error) {
	type plain CodeExpression
	return marshalEntity((*plain)(e), e.Extra)
}

// Declaration is either a *Variable or a *Function.
type Declaration interface {
	DeclaredName() string
}

type Variable struct {
	Type      string     `json:"type" mapstructure:"type"`
	Name      string     `json:"name" mapstructure:"name"`
	Validator *Validator `json:"validator,omitempty" mapstructure:"validator"`
}

func NewVariable(name string, validator *Validator) *Variable {
	return &Variable{Type: TypeVariable, Name: name, Validator: validator}
}

func (v *Variable) DeclaredName() string { return v.Name }

type Function struct {
	Type       string         `json:"type" mapstructure:"type"`
	Name       string         `json:"name" mapstructure:"name"`
	Parameters []*Parameter   `json:"parameters,omitempty" mapstructure:"parameters"`
	Returns    *Validator     `json:"returns,omitempty" mapstructure:"returns"`
	Extra      map[string]any `json:"-" mapstructure:",remain"`
}

func NewFunction(name string) *Function {
	return &Function{Type: TypeFunction, Name: name}
}

func (f *Function) DeclaredName() string { return f.Name }

func (f *Function) MarshalJSON() ([]byte, error) {
	type plain Function
	return marshalEntity((*plain)(f), f.Extra)
}

// Parameter is both a function parameter and a document-level input.
type Parameter struct {
	Type         string         `json:"type" mapstructure:"type"`
	Name         string         `json:"name" mapstructure:"name"`
	IsRequired   bool           `json:"isRequired,omitempty" mapstructure:"isRequired"`
	IsVariadic   bool           `json:"isVariadic,omitempty" mapstructure:"isVariadic"`
	IsExtensible bool           `json:"isExtensible,omitempty" mapstructure:"isExtensible"`
	Default      any            `json:"default,omitempty" mapstructure:"default"`
	Validator    *Validator     `json:"validator,omitempty" mapstructure:"validator"`
	Extra        map[string]any `json:"-" mapstructure:",remain"`
}

func NewParameter(name string) *Parameter {
	return &Parameter{Type: TypeParameter, Name: name}
}

func (p *Parameter) MarshalJSON() ([]byte, error) {
	type plain Parameter
	return marshalEntity((*plain)(p), p.Extra)
}

type Datatable struct {
	Type    string             `json:"type"`
	Columns []*DatatableColumn `json:"columns"`
}

type DatatableColumn struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Values    []any      `json:"values"`
	Validator *Validator `json:"validator,omitempty"`
}

func NewDatatable(columns ...*DatatableColumn) *Datatable {
	return &Datatable{Type: TypeDatatable, Columns: columns}
}

func NewDatatableColumn(name string, values []any, items *Validator) *DatatableColumn {
	return &DatatableColumn{
		Type:      TypeDatatableColumn,
		Name:      name,
		Values:    values,
		Validator: ArrayOf(items),
	}
}

type ImageObject struct {
	Type       string `json:"type"`
	ContentURL string `json:"contentUrl"`
}

func NewImageObject(url string) *ImageObject {
	return &ImageObject{Type: TypeImageObject, ContentURL: url}
}

// Tuple is a decoded fixed-length sequence. It encodes as a JSON array.
type Tuple []any

// marshalEntity encodes v and re-attaches fields that were not decoded into
// a struct field, so unknown document keys survive a compile round trip.
func marshalEntity(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, ok := fields[key]; !ok {
			fields[key] = value
		}
	}
	return json.Marshal(fields)
}
