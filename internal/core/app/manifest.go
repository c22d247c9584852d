package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"execdoc/internal/core/errors"
	"execdoc/internal/core/ports"
	"execdoc/internal/schema"

	"github.com/getkin/kin-openapi/openapi3"
)

const ManifestVersion = 1

// nodeSchema is the params schema of compile and execute: a node whose type
// is a code fragment and whose language is one the runtime handles.
type nodeSchema struct {
	schema *openapi3.Schema
	asMap  map[string]any
}

func newNodeSchema(languages []string) *nodeSchema {
	langs := make([]any, 0, len(languages))
	for _, lang := range languages {
		langs = append(langs, strings.ToLower(lang))
	}
	node := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema().WithEnum(schema.TypeCodeChunk, schema.TypeCodeExpression)).
		WithProperty("programmingLanguage", openapi3.NewStringSchema().WithEnum(langs...))
	node.Required = []string{"type", "programmingLanguage"}

	params := openapi3.NewObjectSchema().WithProperty("node", node)
	params.Required = []string{"node"}

	ns := &nodeSchema{schema: params}
	if m, err := schemaToMap(params); err == nil {
		ns.asMap = m
	}
	return ns
}

func schemaToMap(s *openapi3.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return out, nil
}

// check validates node against the schema. The language is matched without
// regard to case, so a lowered copy is what gets validated.
func (s *nodeSchema) check(method string, node any) error {
	generic, err := toGeneric(node)
	if err != nil {
		return errors.Capability(method, node)
	}
	if m, ok := generic.(map[string]any); ok {
		if lang, ok := m["programmingLanguage"].(string); ok {
			m["programmingLanguage"] = strings.ToLower(strings.TrimSpace(lang))
		}
	}
	if err := s.schema.VisitJSON(map[string]any{"node": generic}); err != nil {
		return errors.AddContext(errors.Capability(method, node), errors.CtxNodeType, schema.TypeOf(node))
	}
	return nil
}

// toGeneric turns typed entities and json.Number values into the plain
// JSON tree the validator expects. The result never aliases node.
func toGeneric(node any) (any, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Manifest describes the interpreter. The http address is advertised only
// when that transport is configured.
func (a *App) Manifest() ports.Manifest {
	m := ports.Manifest{
		Version: ManifestVersion,
		Capabilities: ports.Capabilities{
			Manifest: true,
			Compile:  a.nodes.asMap,
			Execute:  a.nodes.asMap,
		},
		Addresses: map[string]ports.Address{
			"stdio": {Type: "stdio", Command: "execdoc", Args: []string{"serve"}},
		},
	}
	if a.Config.Server.Transport == "http" && a.Config.Server.Address != "" {
		m.Addresses["http"] = ports.Address{Type: "http", URL: "http://" + a.Config.Server.Address + "/rpc"}
	}
	return m
}
