package generator

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// unmarshalModelJSON unmarshals JSON produced by a model, attempting to
// repair malformed output before giving up. Models wrap JSON in code
// fences or prose often enough that both are stripped first.
func unmarshalModelJSON(text string, v any) error {
	text = stripToJSON(text)

	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}

	fixed, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

// stripToJSON cuts the text down to the outermost JSON array or object.
func stripToJSON(text string) string {
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return text
	}

	var end int
	if text[start] == '[' {
		end = strings.LastIndex(text, "]")
	} else {
		end = strings.LastIndex(text, "}")
	}
	if end <= start {
		return text[start:]
	}
	return text[start : end+1]
}
