package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"execdoc/internal/shared/util"

	"gopkg.in/yaml.v3"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ReadDocument loads a JSON or YAML document and decodes its entities.
func ReadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data, isYAML(path))
}

func ParseDocument(data []byte, asYAML bool) (any, error) {
	var raw any
	if asYAML {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return Decode(raw)
}

// EncodeDocument serialises doc as indented JSON, or YAML when asYAML is set.
func EncodeDocument(doc any, asYAML bool) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if !asYAML {
		return append(data, '\n'), nil
	}
	// Round trip through a generic value so YAML keys follow the JSON names.
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

// WriteDocument writes doc to path, choosing the format from the extension.
// A path of "-" writes JSON to stdout.
func WriteDocument(path string, doc any) error {
	data, err := EncodeDocument(doc, isYAML(path))
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return util.WriteFileAtomic(path, data, 0o644)
}
