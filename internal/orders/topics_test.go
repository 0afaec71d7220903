package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopics_ViewOf(t *testing.T) {
	topics := Topics{Created: "c", Updated: "u"}

	assert.Equal(t, ViewCreated, topics.ViewOf("c"))
	assert.Equal(t, ViewUpdated, topics.ViewOf("u"))
	assert.Equal(t, ViewUnknown, topics.ViewOf("C"))
	assert.Equal(t, ViewUnknown, topics.ViewOf(""))

	assert.Equal(t, EventOrderCreated, topics.EventTypeFor("c"))
	assert.Equal(t, EventOrderUpdated, topics.EventTypeFor("u"))
	assert.Empty(t, topics.EventTypeFor("other"))
}

func TestIsNew(t *testing.T) {
	assert.True(t, IsNew("new"))
	assert.True(t, IsNew("NEW"))
	assert.True(t, IsNew("New"))
	assert.False(t, IsNew("shipped"))
	assert.False(t, IsNew(" new"))
	assert.False(t, IsNew(""))
}
