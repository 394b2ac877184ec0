package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pl struct {
	A int    `json:"a"`
	B string `json:"b"`
}

func TestDecode(t *testing.T) {
	for name, in := range map[string]any{
		"typed":   pl{A: 1, B: "x"},
		"pointer": &pl{A: 1, B: "x"},
		"raw":     json.RawMessage(`{"a":1,"b":"x"}`),
		"bytes":   []byte(`{"a":1,"b":"x"}`),
		"string":  `{"a":1,"b":"x"}`,
		"map":     map[string]any{"a": 1, "b": "x"},
	} {
		p, err := Decode[pl](in)
		require.NoError(t, err, name)
		assert.Equal(t, pl{A: 1, B: "x"}, p, name)
	}

	p, err := Decode[pl](nil)
	require.NoError(t, err)
	assert.Zero(t, p)

	_, err = Decode[pl](json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestRaw(t *testing.T) {
	b, err := Raw(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = Raw(json.RawMessage(`[1]`))
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(b))
}
