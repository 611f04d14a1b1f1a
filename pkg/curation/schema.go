package curation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Optional fields accept null; models often write an absent field that way.
const memorySchema = `{
  "type": "object",
  "required": ["high_level_plan", "subtasks"],
  "properties": {
    "task_description": {"type": ["string", "null"]},
    "high_level_plan": {"type": "string"},
    "subtasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["agent", "description"],
        "properties": {
          "agent": {"type": "string"},
          "description": {"type": "string"},
          "steps": {"type": ["string", "null"]},
          "observations": {"type": ["string", "null"]}
        }
      }
    },
    "final_answer": {"type": ["string", "null"]},
    "reflections": {"type": ["string", "null"]}
  }
}`

var (
	schemaOnce sync.Once
	schemaInst *gojsonschema.Schema
	schemaErr  error
)

func curatedSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaInst, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(memorySchema))
	})
	return schemaInst, schemaErr
}

// validate checks a decoded document against the curated memory schema.
func validate(doc interface{}) error {
	schema, err := curatedSchema()
	if err != nil {
		return fmt.Errorf("failed to compile memory schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(errs, "; "))
	}
	return nil
}
