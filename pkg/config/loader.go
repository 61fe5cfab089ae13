package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader parses and validates configuration documents. Validation is eager:
// a document either loads completely or the load fails with a malformed
// error before any caller sees partial state.
type Loader struct {
	schema    *SchemaValidator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLoader creates a loader with the built-in document schema compiled.
func NewLoader(logger zerolog.Logger) (*Loader, error) {
	schema, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Loader{
		schema:    schema,
		validator: validator.New(),
		logger:    logger.With().Str("component", "config-loader").Logger(),
	}, nil
}

// Load reads, schema-checks and decodes the document at path.
func (l *Loader) Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMalformedError("failed to read configuration document", err)
	}
	return l.Parse(raw)
}

// Parse decodes a raw document. The raw bytes are validated against the CUE
// schema first so shape errors surface before the typed decode can silently
// drop misplaced keys.
func (l *Loader) Parse(raw []byte) (*Document, error) {
	var rawDoc map[string]any
	if err := yaml.Unmarshal(raw, &rawDoc); err != nil {
		return nil, NewMalformedError("failed to parse configuration document", err)
	}
	if err := l.schema.Validate(rawDoc); err != nil {
		return nil, NewMalformedError("configuration document violates schema", err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, NewMalformedError("failed to decode configuration document", err)
	}
	if err := l.validator.Struct(&doc); err != nil {
		return nil, NewMalformedError("configuration document failed validation", err)
	}

	for name, env := range doc.Environments {
		env.Name = name
	}

	l.logger.Debug().
		Int("environments", len(doc.Environments)).
		Msg("Configuration document loaded")

	return &doc, nil
}

// Environment looks up an environment by name. The lookup is pure; an
// absent name is a hard failure.
func (d *Document) Environment(name string) (*Environment, error) {
	env, ok := d.Environments[name]
	if !ok || env == nil {
		return nil, NewUnknownEnvironmentError(name)
	}
	return env, nil
}
