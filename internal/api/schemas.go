package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var errInvalidBody = errors.New("invalid request body")

const filterSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "start_date": {"type": ["string", "null"], "format": "date"},
    "end_date":   {"type": ["string", "null"], "format": "date"},
    "groups":     {"type": "array", "items": {"type": "string"}, "uniqueItems": true}
  }
}`

const selectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["selected"],
  "properties": {
    "selected": {"type": "boolean"}
  }
}`

var (
	filterBodySchema    = mustCompile("filter.json", filterSchema)
	selectionBodySchema = mustCompile("selection.json", selectionSchema)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// decodeValidated проверяет тело по схеме и только потом декодирует его в dst.
func decodeValidated(schema *jsonschema.Schema, body []byte, dst any) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", errInvalidBody, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}
