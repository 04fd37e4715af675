package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsEmptyListsAsArrays(t *testing.T) {
	s := DashboardState{Strategies: []Strategy{}, CurrentNews: []NewsItem{}}

	b, err := json.Marshal(s.Clone())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"strategies":[]`)
	assert.Contains(t, string(b), `"currentNews":[]`)
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := DashboardState{
		Strategies:  []Strategy{{StrategyName: "Breakout"}},
		CurrentNews: []NewsItem{{ID: "n1", Text: "Gold rallies"}},
		Upcoming:    &Upcoming{Mode: UpcomingHTML, Items: []UpcomingItem{{ID: "u1"}}},
	}
	c := s.Clone()
	c.Strategies[0].StrategyName = "Changed"
	c.CurrentNews[0].Text = "Changed"
	c.Upcoming.Items[0].ID = "changed"

	assert.Equal(t, "Breakout", s.Strategies[0].StrategyName)
	assert.Equal(t, "Gold rallies", s.CurrentNews[0].Text)
	assert.Equal(t, "u1", s.Upcoming.Items[0].ID)
}
