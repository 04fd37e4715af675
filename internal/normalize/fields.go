package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Fields is one decoded JSON object. Values keep json.Number for numerics.
type Fields map[string]any

// ParseFields decodes a JSON object, reporting false for anything else.
func ParseFields(raw json.RawMessage) (Fields, bool) {
	var f Fields
	if err := decodeNumber(raw, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// AsFields converts an already-decoded value into Fields when it is an object.
func AsFields(v any) (Fields, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Fields(m), true
}

// Coalesce returns the first candidate key that is present and not null.
// Falsy values such as 0 or "" still win.
func (f Fields) Coalesce(names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := f[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Number coalesces and converts to float64. Numeric strings are accepted.
func (f Fields) Number(names ...string) *float64 {
	for _, n := range names {
		v, ok := f[n]
		if !ok || v == nil {
			continue
		}
		if x, ok := toFloat(v); ok {
			return &x
		}
	}
	return nil
}

// String coalesces and returns the first string value.
func (f Fields) String(names ...string) *string {
	v, ok := f.Coalesce(names...)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// Text returns the first non-empty string among candidates. A whitespace-only value still
// wins; callers trim and drop it, so it does not fall through to later fields.
func (f Fields) Text(names ...string) string {
	for _, n := range names {
		if s, ok := f[n].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Object returns a nested object field.
func (f Fields) Object(name string) (Fields, bool) {
	return AsFields(f[name])
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		return n, err == nil && finite(n)
	case float64:
		return x, finite(x)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return n, err == nil && finite(n)
	default:
		return 0, false
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func decodeNumber(raw []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dest)
}

// Decode decodes raw JSON preserving numbers as json.Number.
func Decode(raw []byte, dest any) error { return decodeNumber(raw, dest) }
