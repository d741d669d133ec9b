package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a project file does not match the
// project schema.
var ErrSchemaViolation = errors.New("project file does not match schema")

const projectSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "calendar_id": {"type": "string"},
    "tasks": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "kind": {"enum": ["effort_driven", "fixed_duration", "fixed_work"]},
          "status": {"enum": ["not_started", "in_progress", "on_hold", "completed", "cancelled"]},
          "duration_days": {"type": "number", "minimum": 0},
          "estimate": {"type": "string"},
          "work": {"type": "number", "minimum": 0},
          "budget": {"type": "number", "minimum": 0},
          "actual_cost": {"type": "number", "minimum": 0},
          "dependencies": {"$ref": "#/definitions/dependencies"},
          "assignments": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["resource_id"],
              "properties": {
                "resource_id": {"type": "string", "minLength": 1},
                "allocated_hours": {"type": "number", "minimum": 0},
                "allocation": {"type": "number", "minimum": 0, "maximum": 1}
              }
            }
          },
          "progress": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["percent"],
              "properties": {
                "percent": {"type": "number", "minimum": 0, "maximum": 1},
                "note": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "milestones": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "dependencies": {"$ref": "#/definitions/dependencies"}
        }
      }
    }
  },
  "definitions": {
    "dependencies": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["predecessor_id"],
        "properties": {
          "predecessor_id": {"type": "string", "minLength": 1},
          "kind": {"enum": ["finish_to_start", "start_to_start", "finish_to_finish", "start_to_finish", "FS", "SS", "FF", "SF", "fs", "ss", "ff", "sf"]},
          "lag_days": {"type": "number"}
        }
      }
    }
  }
}`

var projectSchemaLoader = gojsonschema.NewStringLoader(projectSchemaJSON)

// validateProjectDocument checks a decoded project document against the
// project schema. Every violation is listed in the returned error.
func validateProjectDocument(doc any) error {
	result, err := gojsonschema.Validate(projectSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate project file: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(issues, "; "))
}
