package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSchemaInvalid    = errors.New("schema invalid")
	ErrSchemaValidation = errors.New("schema validation failed")
)

// DefaultFrontMatterSchema describes the keys every post must carry. Unknown
// keys are allowed so posts can add custom metadata.
const DefaultFrontMatterSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "date"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "date": {"type": "string", "minLength": 1},
    "path": {"type": "string", "pattern": "^/"},
    "desc": {"type": "string"},
    "slug": {"type": "string"},
    "template": {"type": "string"},
    "author": {"type": "string"},
    "draft": {"type": "boolean"},
    "tags": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": true
}`

// ValidationIssue captures a single validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// PayloadValidationError surfaces validation issues with schema-aware context.
type PayloadValidationError struct {
	Source string
	Issues []ValidationIssue
	Cause  error
}

func (e *PayloadValidationError) Error() string {
	prefix := ""
	if e.Source != "" {
		prefix = e.Source + ": "
	}
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return prefix + e.Cause.Error()
		}
		return prefix + ErrSchemaValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return prefix + strings.Join(parts, "; ")
}

func (e *PayloadValidationError) Unwrap() error {
	return ErrSchemaValidation
}

// Issues extracts validation issues from an error.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var payloadErr *PayloadValidationError
	if errors.As(err, &payloadErr) && payloadErr != nil {
		return payloadErr.Issues
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) && validationErr != nil {
		return collectValidationIssues(validationErr)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

// FrontMatterValidator validates decoded front-matter maps against a compiled
// JSON schema. A compiled validator is safe for concurrent use.
type FrontMatterValidator struct {
	schema *jsonschema.Schema
}

// NewFrontMatterValidator compiles the supplied schema document. An empty
// document selects DefaultFrontMatterSchema.
func NewFrontMatterValidator(schema []byte) (*FrontMatterValidator, error) {
	if len(bytes.TrimSpace(schema)) == 0 {
		schema = []byte(DefaultFrontMatterSchema)
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return &FrontMatterValidator{schema: compiled}, nil
}

// LoadFrontMatterValidator reads a schema file from disk. An empty path
// selects DefaultFrontMatterSchema.
func LoadFrontMatterValidator(path string) (*FrontMatterValidator, error) {
	if strings.TrimSpace(path) == "" {
		return NewFrontMatterValidator(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read front-matter schema %s: %w", path, err)
	}
	return NewFrontMatterValidator(data)
}

// Validate checks payload and reports every failing location. source names
// the post file in the returned error.
func (v *FrontMatterValidator) Validate(source string, payload map[string]any) error {
	if v == nil || v.schema == nil {
		return nil
	}
	instance, err := toJSONValue(payload)
	if err != nil {
		return &PayloadValidationError{Source: source, Cause: err}
	}
	if err := v.schema.Validate(instance); err != nil {
		return &PayloadValidationError{
			Source: source,
			Issues: Issues(err),
			Cause:  err,
		}
	}
	return nil
}

// toJSONValue round-trips payload through encoding/json so the validator
// only sees JSON value types.
func toJSONValue(payload map[string]any) (any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func compileSchema(schema []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(schema)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if err == nil {
		return nil
	}
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
