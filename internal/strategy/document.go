package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the persisted strategy configuration.
type Document struct {
	ActiveStrategy string                `json:"activeStrategy" yaml:"activeStrategy"`
	Strategies     map[string]Definition `json:"strategies" yaml:"strategies"`
}

// Format selects the encoding of a strategy document.
type Format string

// Supported document formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks JSON for *.json paths and YAML otherwise.
func FormatForPath(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// emptyDocument is the state before any successful load.
func emptyDocument() Document {
	return Document{ActiveStrategy: DefaultKey, Strategies: map[string]Definition{}}
}

// Validate checks document-level invariants: every key is usable and the
// active key resolves (or is the reserved "default").
func (d Document) Validate() error {
	for key, def := range d.Strategies {
		if err := ValidateKey(key); err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("strategy %q: %w", key, err)
		}
	}

	if d.ActiveStrategy == "" {
		return fmt.Errorf("%w: activeStrategy is required", ErrInvalidDefinition)
	}
	if _, ok := d.Strategies[d.ActiveStrategy]; !ok && d.ActiveStrategy != DefaultKey {
		return fmt.Errorf("%w: activeStrategy %q is not defined", ErrInvalidDefinition, d.ActiveStrategy)
	}
	return nil
}

// ValidateKey rejects empty keys and keys with surrounding whitespace or slashes.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) != key || strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("%w: invalid strategy key %q", ErrInvalidDefinition, key)
	}
	return nil
}

// clone returns a deep copy safe to mutate.
func (d Document) clone() Document {
	out := Document{
		ActiveStrategy: d.ActiveStrategy,
		Strategies:     make(map[string]Definition, len(d.Strategies)),
	}
	for k, v := range d.Strategies {
		out.Strategies[k] = v
	}
	return out
}

// Decode parses a document. Definitions are checked while decoding; the
// result is also validated as a whole.
func Decode(data []byte, format Format) (Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("parsing %s document: %w", format, err)
	}
	if doc.Strategies == nil {
		doc.Strategies = map[string]Definition{}
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Encode serialises a document.
func Encode(doc Document, format Format) ([]byte, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json document: %w", err)
		}
		return append(data, '\n'), nil
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml document: %w", err)
	}
	return data, nil
}
