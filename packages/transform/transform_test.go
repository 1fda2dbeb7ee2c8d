package transform

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Order(t *testing.T) {
	h := headers.FromMap(map[string]string{"X-Suffix": "!"})
	chain := Chain{
		func(body any, _ *headers.Getter) (any, error) { return body.(string) + "a", nil },
		func(body any, h *headers.Getter) (any, error) { return body.(string) + h.Get("x-suffix"), nil },
	}

	out, err := Apply("", h, chain)
	require.NoError(t, err)
	assert.Equal(t, "a!", out)
}

func TestApply_Single(t *testing.T) {
	out, err := Apply(2, nil, Single(func(body any, _ *headers.Getter) (any, error) {
		return body.(int) * 2, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 4, out)
}

func TestApply_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	_, err := Apply("x", nil, Chain{
		func(any, *headers.Getter) (any, error) { return nil, boom },
		func(any, *headers.Getter) (any, error) { called = true; return nil, nil },
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestJSONRequest(t *testing.T) {
	out, err := JSONRequest(map[string]any{"foo": "bar"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, out)

	for _, raw := range []any{nil, "text", []byte("bytes"), strings.NewReader("r"), json.RawMessage(`{}`)} {
		out, err := JSONRequest(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	}
}

func TestJSONRequest_TypedNil(t *testing.T) {
	type item struct{ ID int }
	for _, body := range []any{map[string]any(nil), (*item)(nil), []int(nil), []byte(nil)} {
		out, err := JSONRequest(body, nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	}

	out, err := JSONRequest([]int{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestJSONResponse(t *testing.T) {
	jsonHeaders := headers.NewGetter("Content-Type: application/json")

	t.Run("decodes json content", func(t *testing.T) {
		out, err := JSONResponse(`{"foo":"bar","n":1}`, jsonHeaders)
		require.NoError(t, err)
		m := out.(map[string]any)
		assert.Equal(t, "bar", m["foo"])
		assert.Equal(t, json.Number("1"), m["n"])
	})

	t.Run("leaves other content types alone", func(t *testing.T) {
		out, err := JSONResponse(`{"foo":"bar"}`, headers.NewGetter("Content-Type: text/plain"))
		require.NoError(t, err)
		assert.Equal(t, `{"foo":"bar"}`, out)
	})

	t.Run("leaves non-text bodies alone", func(t *testing.T) {
		body := map[string]any{"already": true}
		out, err := JSONResponse(body, jsonHeaders)
		require.NoError(t, err)
		assert.Equal(t, body, out)
	})

	t.Run("empty body stays empty", func(t *testing.T) {
		out, err := JSONResponse("", jsonHeaders)
		require.NoError(t, err)
		assert.Equal(t, "", out)
	})

	t.Run("invalid json fails", func(t *testing.T) {
		_, err := JSONResponse("{nope", jsonHeaders)
		assert.Error(t, err)
	})
}
