package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// decodeBlueprint robustly extracts a Blueprint from an LLM response.
// Local models frequently wrap JSON in markdown code fences or prepend
// conversational filler. The parser:
//  1. Strips markdown code fences if present (```json ... ```)
//  2. Finds the first { and last } to extract the JSON object
//  3. Attempts json.Unmarshal on the extracted substring
func decodeBlueprint(resp string) (*Blueprint, error) {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no JSON object in response")
	}

	var bp Blueprint
	if err := json.Unmarshal([]byte(s[start:end+1]), &bp); err != nil {
		return nil, fmt.Errorf("unmarshal blueprint: %w", err)
	}
	if strings.TrimSpace(bp.Title) == "" {
		return nil, errors.New("blueprint has no title")
	}
	if len(bp.Steps) == 0 {
		return nil, errors.New("blueprint has no steps")
	}
	return &bp, nil
}
