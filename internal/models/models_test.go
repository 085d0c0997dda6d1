package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActiveState(t *testing.T) {
	assert.Equal(t, StateActive, ParseActiveState(""))
	assert.Equal(t, StateActive, ParseActiveState("bogus"))
	assert.Equal(t, StatePaused, ParseActiveState("paused"))

	assert.Equal(t, StatePaused, StateActive.Toggle())
	assert.Equal(t, StateActive, StateActive.Toggle().Toggle())

	assert.Equal(t, "True", StateActive.String())
	assert.Equal(t, "False", StatePaused.String())
	assert.Equal(t, StatePaused, StateFromBool(false))
}

func TestResourceView(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Resource{ID: 7, Identifier: "ab12cd34", Name: "Example", URL: "https://example.com", Updated: updated, State: StatePaused}

	v := r.View()
	assert.Equal(t, "ab12cd34", v.ID)
	assert.Equal(t, updated, v.LastScan)
	assert.False(t, v.Active)
	assert.Nil(t, v.NextScan)
}

func TestUserTokenContent(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	u := User{ID: 42, Email: "jane@example.com", Created: time.Date(2024, 1, 2, 4, 5, 6, 0, loc)}

	assert.Equal(t, "422024-01-02 03:05:06jane@example.com", u.TokenContent())
}
