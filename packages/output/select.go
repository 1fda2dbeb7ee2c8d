package output

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

// Select returns the value at path inside data. data may be decoded JSON or
// JSON text. The boolean is false when the path does not exist.
func Select(data any, path string) (any, bool, error) {
	var raw []byte
	switch d := data.(type) {
	case string:
		raw = []byte(d)
	case []byte:
		raw = d
	default:
		var err error
		if raw, err = json.Marshal(d); err != nil {
			return nil, false, fmt.Errorf("encode body: %w", err)
		}
	}
	if !gjson.ValidBytes(raw) {
		return nil, false, fmt.Errorf("response body is not JSON")
	}

	path = strings.TrimPrefix(strings.TrimSpace(path), "$")
	path = convertBracketNotation(strings.TrimPrefix(path, "."))
	if path == "" {
		return gjson.ParseBytes(raw).Value(), true, nil
	}

	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, false, nil
	}
	return result.Value(), true, nil
}
