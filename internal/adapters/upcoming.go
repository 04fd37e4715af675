package adapters

import (
	"strings"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/normalize"
)

// DecodeUpcoming reads upcoming-news advisories. An array becomes the html list variant,
// an object or bare string becomes the single text variant. Nothing usable yields KindEmpty
// and a nil value; a partially populated Upcoming is never returned.
func DecodeUpcoming(raw []byte) Result[*models.Upcoming] {
	return decode(raw, []shape[*models.Upcoming]{
		{name: ShapeHTMLList, match: isArray, decode: decodeUpcomingList},
		{name: ShapeTextObject, match: isObject, decode: func(v any) (*models.Upcoming, bool, error) {
			f, _ := normalize.AsFields(v)
			return upcomingText(f.Text("text", "content"))
		}},
		{name: ShapeString, match: isString, decode: func(v any) (*models.Upcoming, bool, error) {
			return upcomingText(v.(string))
		}},
	})
}

func decodeUpcomingList(v any) (*models.Upcoming, bool, error) {
	list := v.([]any)
	items := make([]models.UpcomingItem, 0, len(list))
	for i, item := range list {
		f, ok := normalize.AsFields(item)
		if !ok {
			continue
		}
		html := f.Text("text", "html", "content")
		if strings.TrimSpace(html) == "" {
			continue
		}
		items = append(items, models.UpcomingItem{ID: itemID(f, "upcoming", i), HTML: html})
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	return models.NewUpcomingHTML(items), true, nil
}

func upcomingText(text string) (*models.Upcoming, bool, error) {
	if strings.TrimSpace(text) == "" {
		return nil, false, nil
	}
	return models.NewUpcomingText(text), true, nil
}
