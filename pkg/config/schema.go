package config

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaValidator validates raw configuration documents against the built-in
// CUE schema before they are decoded into typed structs. Catching shape
// errors here keeps the later struct decode from silently dropping
// misplaced keys.
type SchemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
	mu     sync.Mutex
}

// NewSchemaValidator compiles the built-in document schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(documentSchema)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile document schema: %w", err)
	}
	return &SchemaValidator{
		ctx:    ctx,
		schema: val.LookupPath(cue.ParsePath("#Document")),
	}, nil
}

// Validate unifies the raw document with the schema and reports any
// structural violation.
func (sv *SchemaValidator) Validate(doc any) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	data := sv.ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	unified := sv.schema.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

const documentSchema = `
#Document: {
	environments: [string]: #Environment
}

#Environment: {
	common?: {...}
	backend?: #Backend
	clouds?: [string]: #Cloud
}

#Backend: {
	bucket:          string
	region:          string
	encrypt?:        bool
	dynamodb_table?: string
	profile?:        string
	kms_key_id?:     string
}

#Cloud: {
	enabled?: bool
	modules?: [string]: {...}
	...
}
`
