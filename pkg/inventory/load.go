package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the inventory file syntax.
type Format string

const (
	FormatAuto Format = ""
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

const keyServer = "server"

// ParseFormat accepts "", "auto", "toml", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatAuto, fmt.Errorf("unsupported inventory format %q (supported: auto, toml, yaml)", s)
	}
}

// FormatForPath picks a format from the file extension, defaulting to TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Parse decodes an inventory document and returns the raw server mapping
// found under its top-level "server" table.
func Parse(b []byte, format Format) (map[string]any, error) {
	var doc map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml inventory: %w", err)
		}
		normalized, err := stringKeys(doc)
		if err != nil {
			return nil, fmt.Errorf("parse yaml inventory: %w", err)
		}
		doc, _ = normalized.(map[string]any)
	case FormatTOML, FormatAuto:
		if err := toml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse toml inventory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported inventory format %q", format)
	}

	v, ok := doc[keyServer]
	if !ok {
		return nil, &MissingFieldError{Field: keyServer}
	}
	servers, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("inventory %q must be a table, got %T", keyServer, v)
	}
	return servers, nil
}

// LoadFile reads, parses and resolves the inventory at path. FormatAuto
// picks the syntax from the file extension.
func LoadFile(path string, format Format) (Model, error) {
	// #nosec G304 -- inventory path comes from trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if format == FormatAuto {
		format = FormatForPath(path)
	}
	raw, err := Parse(b, format)
	if err != nil {
		return nil, err
	}
	return Resolve(raw)
}

// stringKeys rewrites YAML mappings decoded with non-string keys (a service
// named 8080, say) into map[string]any so they resolve like TOML tables.
// Only scalar keys are accepted.
func stringKeys(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			n, err := stringKeys(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			switch k.(type) {
			case string, int, int64, uint64, float64, bool:
			default:
				return nil, fmt.Errorf("unsupported mapping key %v (%T)", k, k)
			}
			name := fmt.Sprint(k)
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("duplicate mapping key %q", name)
			}
			n, err := stringKeys(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = n
		}
		return out, nil
	case []any:
		for i, child := range t {
			n, err := stringKeys(child)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}
