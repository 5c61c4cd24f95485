package palimpsest

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// FieldType enumerates the payload field kinds a content type may declare.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldText     FieldType = "text"
	FieldInteger  FieldType = "integer"
	FieldFloat    FieldType = "float"
	FieldBoolean  FieldType = "boolean"
	FieldDateTime FieldType = "datetime"
	FieldJSON     FieldType = "json"
)

// Field declares one payload field of a content type.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty"`
}

// ContentType is the declarative schema of one collection. SchemaVersion is
// bumped whenever the field set changes in an incompatible way; history
// snapshots carry the version they were taken under.
type ContentType struct {
	Name          string  `json:"name" yaml:"name"`
	SchemaVersion int     `json:"schemaVersion" yaml:"schemaVersion"`
	Fields        []Field `json:"fields" yaml:"fields"`
}

// Validate checks a payload against the declared fields and returns one
// message per problem. An empty slice means the payload is valid.
func (ct ContentType) Validate(payload map[string]any) []string {
	var problems []string

	declared := make(map[string]Field, len(ct.Fields))
	for _, f := range ct.Fields {
		declared[f.Name] = f
	}

	for name := range payload {
		if _, ok := declared[name]; !ok {
			problems = append(problems, fmt.Sprintf("field %q is not declared on %s", name, ct.Name))
		}
	}

	for _, f := range ct.Fields {
		value, present := payload[f.Name]
		if !present || value == nil {
			if f.Required {
				problems = append(problems, fmt.Sprintf("field %q is required", f.Name))
			}
			continue
		}
		if msg := checkFieldValue(f, value); msg != "" {
			problems = append(problems, msg)
		}
	}

	return problems
}

func checkFieldValue(f Field, value any) string {
	switch f.Type {
	case FieldString, FieldText:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("field %q must be a string", f.Name)
		}
	case FieldInteger:
		switch v := value.(type) {
		case float64:
			if v != math.Trunc(v) {
				return fmt.Sprintf("field %q must be an integer", f.Name)
			}
		case json.Number:
			if _, err := v.Int64(); err != nil {
				return fmt.Sprintf("field %q must be an integer", f.Name)
			}
		case int, int32, int64:
		default:
			return fmt.Sprintf("field %q must be an integer", f.Name)
		}
	case FieldFloat:
		switch value.(type) {
		case float64, float32, int, int64, json.Number:
		default:
			return fmt.Sprintf("field %q must be a number", f.Name)
		}
	case FieldBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("field %q must be a boolean", f.Name)
		}
	case FieldDateTime:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("field %q must be an RFC3339 timestamp", f.Name)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return fmt.Sprintf("field %q must be an RFC3339 timestamp", f.Name)
		}
	case FieldJSON:
		// opaque, anything goes
	default:
		return fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type)
	}
	return ""
}
