// Package utils provides shared helpers for the sequential-thinking MCP server.
package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExtractObject returns the first balanced JSON object in s, or "" if there is
// none. Braces inside string literals are ignored.
func ExtractObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			if start != -1 {
				inString = !inString
			}
		case '{':
			if inString {
				continue
			}
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if inString || start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// DecodeArguments turns tool-call arguments into a key-value map. Besides a
// plain object it accepts raw JSON and strings that wrap a JSON object, which
// some clients send. Numbers decode as float64.
func DecodeArguments(v any) (map[string]any, error) {
	switch args := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return args, nil
	case json.RawMessage:
		return decodeObject(args)
	case []byte:
		return decodeObject(args)
	case string:
		obj := ExtractObject(args)
		if obj == "" {
			return nil, fmt.Errorf("arguments string holds no JSON object")
		}
		return decodeObject([]byte(obj))
	default:
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		return decodeObject(b)
	}
}

func decodeObject(b []byte) (map[string]any, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return m, nil
}
