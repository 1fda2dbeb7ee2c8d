package interceptors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaError is returned when a response body does not match the schema.
type SchemaError struct {
	Response *xhr.Response
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Problems, "; "))
}

// FailedResponse returns the response that failed validation.
func (e *SchemaError) FailedResponse() *xhr.Response {
	return e.Response
}

// Schema validates every successful response body against a JSON Schema.
// Bodies that fail validation reject the request with *SchemaError.
func Schema(schema []byte) (xhr.Interceptor, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return xhr.Interceptor{}, fmt.Errorf("compile schema: %w", err)
	}

	return xhr.Interceptor{
		Response: func(r *xhr.Response) (*xhr.Response, error) {
			if err := validate(compiled, r); err != nil {
				return nil, err
			}
			return r, nil
		},
	}, nil
}

// SchemaFile reads a JSON Schema from path and returns Schema for it.
func SchemaFile(path string) (xhr.Interceptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return xhr.Interceptor{}, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Schema(data)
}

func validate(schema *gojsonschema.Schema, r *xhr.Response) error {
	var doc []byte
	switch d := r.Data.(type) {
	case string:
		doc = []byte(d)
	case []byte:
		doc = d
	default:
		var err error
		if doc, err = json.Marshal(d); err != nil {
			return fmt.Errorf("failed to marshal response data: %w", err)
		}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &SchemaError{Response: r, Problems: problems}
}
