package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestFieldsAreStructured(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("pair", "XAUUSD"))

	l.Warn("cycle failed",
		Int("endpoints", 4),
		Bool("notify", true),
		Duration("took_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "cycle failed", line["message"])
	assert.Equal(t, "XAUUSD", line["pair"])
	assert.EqualValues(t, 4, line["endpoints"])
	assert.Equal(t, true, line["notify"])
	assert.EqualValues(t, 1500, line["took_ms"])
	assert.Equal(t, "boom", line["error"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("ignored", String("k", "v")) })
}
