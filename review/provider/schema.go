package provider

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects a strict OpenAI-compliant JSON schema for the
// structured-output calls. Panics on reflection failure: schemas are built
// from package-level types at init time, so a failure is a programming error.
func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	ensureOpenAICompliance(m)
	return m
}

// ensureOpenAICompliance rewrites a reflected schema to what the strict
// structured-output mode accepts: objects close additionalProperties and
// require every declared property, recursively.
func ensureOpenAICompliance(schema map[string]interface{}) {
	if schemaType, ok := schema["type"].(string); ok && schemaType == "object" {
		schema["additionalProperties"] = false

		if properties, ok := schema["properties"].(map[string]interface{}); ok {
			var required []string
			for name := range properties {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}

	if properties, ok := schema["properties"].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureOpenAICompliance(items)
	}
}
