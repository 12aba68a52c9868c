// Package validate checks pipeline documents against the JSON Schema and
// against semantic rules the schema cannot express.
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/initializ/pipeline-runner/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// Violation is one schema failure located by its field path, e.g.
// "environments.production.registry" or "stages[1].commands".
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

var (
	pipelineSchema *gojsonschema.Schema
	schemaOnce     sync.Once
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		pipelineSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemas.PipelineV1Schema))
	})
	return pipelineSchema, schemaErr
}

// ValidateSchema checks a decoded pipeline document (yaml.Unmarshal into an
// any) against the pipeline v1 schema. Violations come back ordered by
// field. The error is only set when the schema itself cannot be used.
func ValidateSchema(doc any) ([]Violation, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling pipeline schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validating pipeline document: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]Violation, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, toViolation(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// toViolation points "required" failures at the missing key rather than
// at the object that lacks it.
func toViolation(e gojsonschema.ResultError) Violation {
	field := e.Field()
	msg := e.Description()
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			if field == gojsonschema.STRING_CONTEXT_ROOT {
				field = prop
			} else {
				field += "." + prop
			}
			msg = "is required"
		}
	}
	return Violation{Field: fieldPath(field), Message: msg}
}

// fieldPath renders gojsonschema's dotted context with list indexes in
// brackets: stages.0.name becomes stages[0].name.
func fieldPath(field string) string {
	if field == "" || field == gojsonschema.STRING_CONTEXT_ROOT {
		return "document"
	}
	var b strings.Builder
	for i, part := range strings.Split(field, ".") {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
