// Package structuredoutput derives JSON-schema response formats from Go
// structs, for oracle calls that enforce strict schema validation.
package structuredoutput

import (
	"reflect"
	"strings"

	"github.com/tagus/contactgraph/pkg/interfaces"
)

// NewResponseFormat creates a ResponseFormat from a struct value. Field names
// follow the json tags; `description` tags become schema descriptions.
func NewResponseFormat(v interface{}) *interfaces.ResponseFormat {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := interfaces.JSONSchema{
		"type":       "object",
		"properties": schemaProperties(t),
		"required":   requiredFields(t),
	}

	return &interfaces.ResponseFormat{
		Type:   interfaces.ResponseFormatJSON,
		Name:   t.Name(),
		Schema: schema,
	}
}

func schemaProperties(t reflect.Type) map[string]interface{} {
	properties := make(map[string]interface{})

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" {
			name = field.Name
		}
		if name == "-" {
			continue
		}

		fieldType := field.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}

		switch fieldType.Kind() {
		case reflect.Struct:
			properties[name] = map[string]interface{}{
				"type":        "object",
				"description": field.Tag.Get("description"),
				"properties":  schemaProperties(fieldType),
				"required":    requiredFields(fieldType),
			}
		case reflect.Slice, reflect.Array:
			itemType := fieldType.Elem()
			if itemType.Kind() == reflect.Ptr {
				itemType = itemType.Elem()
			}
			var items interface{}
			if itemType.Kind() == reflect.Struct {
				items = map[string]interface{}{
					"type":       "object",
					"properties": schemaProperties(itemType),
					"required":   requiredFields(itemType),
				}
			} else {
				items = map[string]string{"type": jsonType(itemType)}
			}
			properties[name] = map[string]interface{}{
				"type":        "array",
				"description": field.Tag.Get("description"),
				"items":       items,
			}
		default:
			properties[name] = map[string]interface{}{
				"type":        jsonType(fieldType),
				"description": field.Tag.Get("description"),
			}
		}
	}
	return properties
}

// requiredFields lists every field without omitempty. Never nil, so the
// schema serializes "required" as an array rather than null.
func requiredFields(t reflect.Type) []string {
	required := []string{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		parts := strings.Split(field.Tag.Get("json"), ",")
		name := parts[0]
		if name == "" {
			name = field.Name
		}
		if name == "-" {
			continue
		}
		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
				break
			}
		}
		if !omitempty {
			required = append(required, name)
		}
	}
	return required
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}
