package nav_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/internal/nav"
)

func urls(entries []nav.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.URL
	}
	return out
}

func TestHistory_PushAndCurrent(t *testing.T) {
	h := nav.NewHistory(10)

	_, ok := h.Current()
	assert.False(t, ok)
	assert.False(t, h.CanGoBack())
	assert.False(t, h.CanGoForward())

	h.Push(nav.HistoryEntry{URL: "/a"})
	cur, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "/a", cur.URL)
	assert.False(t, cur.CreatedAt.IsZero())
}

func TestHistory_BackForward(t *testing.T) {
	h := nav.NewHistory(10)
	h.Push(nav.HistoryEntry{URL: "/a"})
	h.Push(nav.HistoryEntry{URL: "/b"})
	h.Push(nav.HistoryEntry{URL: "/c"})

	e, ok := h.Back()
	require.True(t, ok)
	assert.Equal(t, "/b", e.URL)

	e, ok = h.Back()
	require.True(t, ok)
	assert.Equal(t, "/a", e.URL)

	_, ok = h.Back()
	assert.False(t, ok)

	e, ok = h.Forward()
	require.True(t, ok)
	assert.Equal(t, "/b", e.URL)
}

func TestHistory_BranchTruncation(t *testing.T) {
	h := nav.NewHistory(10)
	h.Push(nav.HistoryEntry{URL: "/a"})
	h.Push(nav.HistoryEntry{URL: "/b"})
	h.Push(nav.HistoryEntry{URL: "/c"})

	_, ok := h.Back()
	require.True(t, ok)
	_, ok = h.Back()
	require.True(t, ok)

	// Pushing from the middle discards the forward branch entirely.
	h.Push(nav.HistoryEntry{URL: "/d"})

	assert.Equal(t, []string{"/a", "/d"}, urls(h.Entries()))
	assert.Equal(t, 1, h.Position())
	assert.False(t, h.CanGoForward())
}

func TestHistory_CapacityDropsOldest(t *testing.T) {
	h := nav.NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(nav.HistoryEntry{URL: fmt.Sprintf("/p%d", i)})
	}

	assert.Equal(t, []string{"/p2", "/p3", "/p4"}, urls(h.Entries()))
	assert.Equal(t, 2, h.Position())

	cur, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "/p4", cur.URL)
}

func TestHistory_SameURLCreatesNewEntry(t *testing.T) {
	h := nav.NewHistory(10)
	h.Push(nav.HistoryEntry{URL: "/a"})
	h.Push(nav.HistoryEntry{URL: "/a"})

	assert.Equal(t, 2, h.Len())
	assert.True(t, h.CanGoBack())
}

func TestHistory_Clear(t *testing.T) {
	h := nav.NewHistory(10)
	h.Push(nav.HistoryEntry{URL: "/a"})
	h.Clear()

	assert.Equal(t, 0, h.Len())
	assert.Equal(t, -1, h.Position())
	_, ok := h.Current()
	assert.False(t, ok)
}
