package tabs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/internal/errs"
	"github.com/tinkertool/tinker/internal/nav"
	"github.com/tinkertool/tinker/internal/tabs"
)

func TestRegistry_MonotonicIDs(t *testing.T) {
	r := tabs.NewRegistry(100)

	t1 := r.Create("about:blank")
	t2 := r.Create("https://example.com")
	t3 := r.Create("https://example.org")

	assert.Equal(t, uint64(1), t1.ID)
	assert.Equal(t, uint64(2), t2.ID)
	assert.Equal(t, uint64(3), t3.ID)

	// IDs are not reused after a close.
	require.NoError(t, r.Close(t3.ID))
	t4 := r.Create("about:blank")
	assert.Equal(t, uint64(4), t4.ID)
}

func TestRegistry_FirstTabBecomesActive(t *testing.T) {
	r := tabs.NewRegistry(100)

	_, ok := r.Active()
	assert.False(t, ok)

	t1 := r.Create("about:blank")
	r.Create("https://example.com")

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, t1.ID, active.ID)
}

func TestRegistry_CannotCloseLastTab(t *testing.T) {
	r := tabs.NewRegistry(100)
	t1 := r.Create("about:blank")

	err := r.Close(t1.ID)
	assert.ErrorIs(t, err, errs.ErrCannotCloseLast)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_CloseUnknownIsNoop(t *testing.T) {
	r := tabs.NewRegistry(100)
	r.Create("about:blank")

	assert.NoError(t, r.Close(99))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_CloseActivePicksLowestID(t *testing.T) {
	r := tabs.NewRegistry(100)
	r.Create("one")
	t2 := r.Create("two")
	t3 := r.Create("three")

	r.SwitchTo(t2.ID)
	require.NoError(t, r.Close(t2.ID))

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, uint64(1), active.ID)

	// Closing an inactive tab leaves the active one alone.
	r.SwitchTo(t3.ID)
	require.NoError(t, r.Close(1))
	active, ok = r.Active()
	require.True(t, ok)
	assert.Equal(t, t3.ID, active.ID)
}

func TestRegistry_SwitchToUnknownIsNoop(t *testing.T) {
	r := tabs.NewRegistry(100)
	t1 := r.Create("about:blank")

	r.SwitchTo(42)
	assert.Equal(t, t1.ID, r.ActiveID())
}

func TestRegistry_UpdateURLAndTitle(t *testing.T) {
	r := tabs.NewRegistry(100)
	t1 := r.Create("about:blank")

	require.NoError(t, r.UpdateURL(t1.ID, "https://example.com"))
	require.NoError(t, r.UpdateTitle(t1.ID, "Example"))

	got, ok := r.Get(t1.ID)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", got.URL())
	assert.Equal(t, "Example", got.Title())

	var notFound *errs.TabNotFoundError
	assert.ErrorAs(t, r.UpdateURL(99, "x"), &notFound)
	assert.ErrorAs(t, r.UpdateTitle(99, "x"), &notFound)
}

func TestRegistry_ListSortedByID(t *testing.T) {
	r := tabs.NewRegistry(100)
	for i := 0; i < 5; i++ {
		r.Create("about:blank")
	}

	list := r.List()
	require.Len(t, list, 5)
	for i, tab := range list {
		assert.Equal(t, uint64(i+1), tab.ID)
	}
}

func TestRegistry_TabOwnsHistoryAndState(t *testing.T) {
	r := tabs.NewRegistry(5)
	t1 := r.Create("about:blank")
	t2 := r.Create("about:blank")

	require.NotNil(t, t1.History)
	require.NotNil(t, t1.State)

	// Histories are independent between tabs.
	t1.History.Push(nav.HistoryEntry{URL: "/a"})
	assert.Equal(t, 1, t1.History.Len())
	assert.Equal(t, 0, t2.History.Len())
}
