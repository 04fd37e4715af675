// Package adapters turns upstream signal payloads into normalized dashboard entities.
//
// Every decoder recognizes a fixed, ordered list of payload shapes. The first shape whose
// predicate matches decodes the payload; nothing matching is reported as ShapeUnknown.
// Decoders never panic and never return an error to the caller: failures are carried in
// Result.Kind so "no data" can be told apart from "could not read the data".
package adapters

import (
	"encoding/json"
	"fmt"

	"SignalDesk/internal/normalize"
)

// Kind classifies a decode outcome.
type Kind int

const (
	// KindParsed means the payload was recognized and produced data.
	KindParsed Kind = iota
	// KindEmpty means the payload was absent, null, or recognized but carried nothing usable.
	KindEmpty
	// KindMalformed means the payload could not be read; Err holds the cause.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindParsed:
		return "parsed"
	case KindEmpty:
		return "empty"
	default:
		return "malformed"
	}
}

// Shape names the upstream layout a payload was recognized as.
type Shape string

const (
	ShapeNone         Shape = "none"
	ShapeUnknown      Shape = "unknown"
	ShapeWebhookBatch Shape = "webhook_batch"
	ShapeRESTObject   Shape = "rest_object"
	ShapeWrappedNews  Shape = "wrapped_news"
	ShapeFlatNews     Shape = "flat_news"
	ShapeHTMLList     Shape = "html_list"
	ShapeTextObject   Shape = "text_object"
	ShapeTextList     Shape = "text_list"
	ShapeString       Shape = "string"
)

// Result carries a decoded value together with how it was obtained.
// Value is always safe to use: the zero value on Empty and Malformed.
type Result[T any] struct {
	Value T
	Kind  Kind
	Shape Shape
	Err   error
}

// OK reports whether the payload produced data.
func (r Result[T]) OK() bool { return r.Kind == KindParsed }

// shape is one recognized payload layout.
type shape[T any] struct {
	name   Shape
	match  func(v any) bool
	decode func(v any) (T, bool, error)
}

// decode runs the shapes in priority order against raw JSON.
// decode funcs return (value, nonEmpty, err).
func decode[T any](raw []byte, shapes []shape[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			res = Result[T]{Value: zero, Kind: KindMalformed, Shape: res.Shape, Err: fmt.Errorf("decode panic: %v", r)}
		}
	}()

	if len(raw) == 0 {
		return Result[T]{Kind: KindEmpty, Shape: ShapeNone}
	}
	var v any
	if err := normalize.Decode(raw, &v); err != nil {
		return Result[T]{Kind: KindMalformed, Shape: ShapeUnknown, Err: fmt.Errorf("decode json: %w", err)}
	}
	if falsy(v) {
		return Result[T]{Kind: KindEmpty, Shape: ShapeNone}
	}

	for _, s := range shapes {
		if !s.match(v) {
			continue
		}
		res.Shape = s.name
		val, ok, err := s.decode(v)
		if err != nil {
			var zero T
			return Result[T]{Value: zero, Kind: KindMalformed, Shape: s.name, Err: err}
		}
		if !ok {
			var zero T
			return Result[T]{Value: zero, Kind: KindEmpty, Shape: s.name}
		}
		return Result[T]{Value: val, Kind: KindParsed, Shape: s.name}
	}
	return Result[T]{Kind: KindMalformed, Shape: ShapeUnknown, Err: fmt.Errorf("unrecognized payload of type %T", v)}
}

// falsy mirrors the payload-absent cases: null, false, "" and 0.
func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
