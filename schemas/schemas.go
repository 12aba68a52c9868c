// Package schemas embeds the JSON Schemas for pipeline documents.
package schemas

import _ "embed"

// PipelineV1Schema is the JSON Schema for pipeline config documents.
//
//go:embed pipeline.v1.schema.json
var PipelineV1Schema []byte
