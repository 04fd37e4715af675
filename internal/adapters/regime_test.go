package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegime(t *testing.T) {
	cases := []struct {
		raw   string
		want  string
		shape Shape
	}{
		{`"Trending up"`, "Trending up", ShapeString},
		{`[{"text":"Range bound"},{"text":"ignored"}]`, "Range bound", ShapeTextList},
		{`{"regime_text":"Volatile","text":"ignored"}`, "Volatile", ShapeTextObject},
		{`{"description":"Quiet"}`, "Quiet", ShapeTextObject},
	}
	for _, tc := range cases {
		res := DecodeRegime([]byte(tc.raw))
		require.True(t, res.OK(), tc.raw)
		assert.Equal(t, tc.shape, res.Shape, tc.raw)
		assert.Equal(t, tc.want, *res.Value, tc.raw)
	}
}

func TestDecodeRegimeEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `[]`, `[{}]`, `{"text":"  "}`} {
		res := DecodeRegime([]byte(raw))
		assert.Equal(t, KindEmpty, res.Kind, raw)
		assert.Nil(t, res.Value, raw)
	}
}
