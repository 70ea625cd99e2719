package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidateInput checks JSON tool arguments against a parameter schema:
// required keys, and primitive/array/object types of declared properties.
// Unknown keys are ignored.
func ValidateInput(schema map[string]interface{}, input json.RawMessage) error {
	var inputMap map[string]interface{}
	if err := json.Unmarshal(input, &inputMap); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if inputMap == nil {
		return fmt.Errorf("arguments are not a JSON object")
	}

	return validateObject(schema, inputMap)
}

func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		fields := make([]string, 0, len(required))
		for _, field := range required {
			if name, ok := field.(string); ok {
				fields = append(fields, name)
			}
		}
		return fields
	default:
		return nil
	}
}

func validateObject(schema map[string]interface{}, input map[string]interface{}) error {
	for _, fieldName := range requiredFields(schema) {
		if _, exists := input[fieldName]; !exists {
			return fmt.Errorf("missing required parameter: %s", fieldName)
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	for key, value := range input {
		propSchema, ok := properties[key].(map[string]interface{})
		if !ok {
			continue
		}
		if err := validateType(key, propSchema, value); err != nil {
			return err
		}
	}

	return nil
}

func validateType(fieldName string, schema map[string]interface{}, value interface{}) error {
	expectedType, ok := schema["type"].(string)
	if !ok {
		return nil
	}

	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("parameter '%s' expected string, got %s", fieldName, jsonType(value))
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("parameter '%s' expected number, got %s", fieldName, jsonType(value))
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("parameter '%s' expected integer, got %s", fieldName, jsonType(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter '%s' expected boolean, got %s", fieldName, jsonType(value))
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("parameter '%s' expected array, got %s", fieldName, jsonType(value))
		}
		if itemsSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateType(fmt.Sprintf("%s[%d]", fieldName, i), itemsSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("parameter '%s' expected object, got %s", fieldName, jsonType(value))
		}
		return validateObject(schema, obj)
	}

	return nil
}

func jsonType(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
