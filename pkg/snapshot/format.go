package snapshot

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format defines how a snapshot is written to and read from bytes.
// Unmarshal returns the generic JSON form (maps, slices, float64) the
// schema validator works on.
type Format interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// DefaultFormats returns the supported formats keyed by file extension.
func DefaultFormats() map[string]Format {
	return map[string]Format{
		".json": JSONFormat{},
		".yaml": YAMLFormat{},
		".yml":  YAMLFormat{},
	}
}

// FormatFor picks a format from the extension of name. Names without an
// extension are JSON.
func FormatFor(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return JSONFormat{}, nil
	}
	f, ok := DefaultFormats()[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported snapshot format %q", ext)
	}
	return f, nil
}

// --- JSON ---

// JSONFormat is the canonical export format (application/json).
type JSONFormat struct{}

func (JSONFormat) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONFormat) Unmarshal(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return v, nil
}

// --- YAML ---

// YAMLFormat writes the same document shape as JSONFormat, with the same
// field names.
type YAMLFormat struct{}

func (YAMLFormat) Marshal(v any) ([]byte, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

func (YAMLFormat) Unmarshal(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	// Normalise YAML scalars (int, uint64) to their JSON equivalents.
	out, err := toGeneric(v)
	if err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return out, nil
}

// toGeneric round-trips v through JSON so struct tags and number types
// match what encoding/json produces.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
