package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/qxhr/packages/core/config"
	"github.com/abdul-hamid-achik/qxhr/packages/headers"
)

// parseHeaderFlags turns "Name: value" pairs into a header map. A name with
// an empty value is kept so that it can override a default.
func parseHeaderFlags(values []string) (headers.Map, error) {
	if len(values) == 0 {
		return nil, nil
	}
	m := headers.Map{}
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected name:value", v)
		}
		m.SetString(name, strings.TrimSpace(value))
	}
	return m, nil
}

// parseParamFlags turns key=value pairs into query parameters. Repeating a
// key collects its values into a list.
func parseParamFlags(values []string) (map[string]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	params := map[string]any{}
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", v)
		}
		switch prev := params[key].(type) {
		case nil:
			params[key] = value
		case string:
			params[key] = []string{prev, value}
		case []string:
			params[key] = append(prev, value)
		}
	}
	return params, nil
}

// parseData returns the request body. "@path" reads the body from a file
// and "@-" from stdin.
func parseData(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	if !strings.HasPrefix(data, "@") {
		return data, nil
	}

	path := strings.TrimPrefix(data, "@")
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return string(b), nil
}

// resolveConfigPath returns the config file in use, or "" when running on
// defaults.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	for _, name := range config.ConfigFilenames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
