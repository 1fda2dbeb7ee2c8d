package urlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		params map[string]any
		want   string
	}{
		{
			name: "nil params leave url unchanged",
			url:  "/echo/url",
			want: "/echo/url",
		},
		{
			name:   "keys are sorted and arrays expand",
			url:    "/echo/url",
			params: map[string]any{"foo": "bar", "baz": []int{1, 2}},
			want:   "/echo/url?baz=1&baz=2&foo=bar",
		},
		{
			name:   "existing query uses ampersand",
			url:    "/search?q=go",
			params: map[string]any{"page": 2},
			want:   "/search?q=go&page=2",
		},
		{
			name:   "nil values are skipped",
			url:    "/x",
			params: map[string]any{"a": nil, "b": "1"},
			want:   "/x?b=1",
		},
		{
			name:   "objects become json",
			url:    "/x",
			params: map[string]any{"filter": map[string]any{"a": 1}},
			want:   "/x?filter=%7B%22a%22%3A1%7D",
		},
		{
			name:   "objects inside arrays become json",
			url:    "/x",
			params: map[string]any{"f": []any{map[string]string{"k": "v"}, "plain"}},
			want:   "/x?f=%7B%22k%22%3A%22v%22%7D&f=plain",
		},
		{
			name:   "keys and values are encoded",
			url:    "/x",
			params: map[string]any{"a b": "c&d=e"},
			want:   "/x?a%20b=c%26d%3De",
		},
		{
			name:   "booleans and floats",
			url:    "/x",
			params: map[string]any{"ok": true, "n": 1.5},
			want:   "/x?n=1.5&ok=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.url, tt.params))
		})
	}
}

func TestEncodeComponent(t *testing.T) {
	assert.Equal(t, "-_.!~*'()", EncodeComponent("-_.!~*'()"))
	assert.Equal(t, "%20%2F%3F%23", EncodeComponent(" /?#"))
	assert.Equal(t, "%C3%A9", EncodeComponent("é"))
}
