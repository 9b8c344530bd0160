package upload

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLatest(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	_, ok := h.Latest("42")
	assert.False(t, ok)

	h.Append("42", PhotoRecord{ID: "a", Locator: "https://files.example/a.jpg", UserID: "42"})
	h.Append("42", PhotoRecord{ID: "b", Locator: "https://files.example/b.jpg", UserID: "42"})
	h.Append("7", PhotoRecord{ID: "c", UserID: "7"})

	latest, ok := h.Latest("42")
	require.True(t, ok)
	assert.Equal(t, "b", latest.ID)
	assert.Len(t, h.Records("42"), 2)
	assert.Equal(t, 2, h.Users())
}

func TestHistoryRecordsReturnsCopy(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	h.Append("1", PhotoRecord{ID: "a"})
	records := h.Records("1")
	records[0].ID = "mutated"

	latest, _ := h.Latest("1")
	assert.Equal(t, "a", latest.ID)
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append("1", PhotoRecord{ID: fmt.Sprint(i)})
	}
	records := h.Records("1")
	require.Len(t, records, 3)
	assert.Equal(t, "2", records[0].ID)
	latest, _ := h.Latest("1")
	assert.Equal(t, "4", latest.ID)
}
