package adapters

import (
	"strings"

	"SignalDesk/internal/normalize"
)

// DecodeRegime reads the market-regime summary. Accepted layouts, in order:
// a bare JSON string, an automation list ([{text}], first element wins) and an API object
// ({regime_text|text|description}).
func DecodeRegime(raw []byte) Result[*string] {
	return decode(raw, []shape[*string]{
		{name: ShapeString, match: isString, decode: func(v any) (*string, bool, error) {
			return nonBlank(v.(string))
		}},
		{name: ShapeTextList, match: isArray, decode: func(v any) (*string, bool, error) {
			items := v.([]any)
			if len(items) == 0 {
				return nil, false, nil
			}
			f, ok := normalize.AsFields(items[0])
			if !ok {
				return nil, false, nil
			}
			return nonBlank(f.Text("text"))
		}},
		{name: ShapeTextObject, match: isObject, decode: func(v any) (*string, bool, error) {
			f, _ := normalize.AsFields(v)
			return nonBlank(f.Text("regime_text", "text", "description"))
		}},
	})
}

func nonBlank(s string) (*string, bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, false, nil
	}
	return &s, true, nil
}
