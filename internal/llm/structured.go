package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/go-playground/validator/v10"
	hjson "github.com/hjson/hjson-go/v4"

	"github.com/dyike/CortexFolio/internal/apperr"
)

var validate = validator.New()

// DecodeStructured extracts the JSON object in text, decodes it into out and
// validates out's struct tags. Decoding tries strict JSON, then a repaired
// document, then Hjson. All failures are classed apperr.ErrReasoning.
func DecodeStructured(text string, out any) error {
	body := extractJSON(text)
	if body == "" {
		return apperr.Reasoning(errors.New("response contains no JSON object"))
	}
	if err := smartParse(body, out); err != nil {
		return apperr.Reasoning(err)
	}
	if err := validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return apperr.Reasoning(fmt.Errorf("structured response failed validation: %w", err))
	}
	return nil
}

func smartParse(input string, out any) error {
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	var loose interface{}
	if err := hjson.Unmarshal([]byte(input), &loose); err != nil {
		return fmt.Errorf("parse structured response: %w", err)
	}
	normalized, err := json.Marshal(loose)
	if err != nil {
		return fmt.Errorf("normalize structured response: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("decode structured response: %w", err)
	}
	return nil
}

// extractJSON strips markdown fences and surrounding prose, returning the
// span from the first '{' to the last '}'.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 {
		return ""
	}
	if end < start {
		// Truncated output; let the repair step close it.
		return text[start:]
	}
	return text[start : end+1]
}
