package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/normalize"
)

// DecodeCurrentNews reads a news list. Both the flat API layout ({id?, content|text|summary|title})
// and the automation layout ({output:{ai_analysis_summary}}) are accepted; items whose text is
// blank are dropped.
func DecodeCurrentNews(raw []byte) Result[[]models.NewsItem] {
	return decode(raw, []shape[[]models.NewsItem]{
		{name: ShapeWrappedNews, match: isWrappedList, decode: decodeNewsList},
		{name: ShapeFlatNews, match: isArray, decode: decodeNewsList},
	})
}

func decodeNewsList(v any) ([]models.NewsItem, bool, error) {
	items := v.([]any)
	out := make([]models.NewsItem, 0, len(items))
	for i, item := range items {
		f, ok := normalize.AsFields(item)
		if !ok {
			continue
		}
		text := strings.TrimSpace(newsText(f))
		if text == "" {
			continue
		}
		out = append(out, models.NewsItem{ID: itemID(f, "news", i), Text: text})
	}
	return out, len(out) > 0, nil
}

// newsText coalesces content, text, summary, the automation summary and finally title.
func newsText(f normalize.Fields) string {
	if t := f.Text("content", "text", "summary", "ai_analysis_summary"); t != "" {
		return t
	}
	if out, ok := f.Object("output"); ok {
		if t := out.Text("ai_analysis_summary"); t != "" {
			return t
		}
	}
	return f.Text("title")
}

// isWrappedList matches arrays whose first object element carries an "output" object.
func isWrappedList(v any) bool {
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		f, ok := normalize.AsFields(item)
		if !ok {
			continue
		}
		_, wrapped := f.Object("output")
		return wrapped
	}
	return false
}

// itemID keeps an upstream id when present, else "<prefix>-<index>".
// Ids are only stable within one fetch.
func itemID(f normalize.Fields, prefix string, idx int) string {
	switch id := f["id"].(type) {
	case string:
		if id != "" {
			return id
		}
	case json.Number:
		return id.String()
	}
	return fmt.Sprintf("%s-%d", prefix, idx)
}
