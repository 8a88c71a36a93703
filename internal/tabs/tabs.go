// File: internal/tabs/tabs.go
package tabs

import (
	"sort"
	"sync"
	"time"

	"github.com/tinkertool/tinker/internal/errs"
	"github.com/tinkertool/tinker/internal/nav"
)

// Tab is one browsing context. ID, History and State are fixed at creation;
// URL and title mutate through the accessors.
type Tab struct {
	ID        uint64
	CreatedAt time.Time
	History   *nav.History
	State     *nav.StateMachine

	mu    sync.RWMutex
	url   string
	title string
}

// URL returns the tab's current address.
func (t *Tab) URL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.url
}

// Title returns the tab's current title.
func (t *Tab) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.title
}

func (t *Tab) setURL(u string) {
	t.mu.Lock()
	t.url = u
	t.mu.Unlock()
}

func (t *Tab) setTitle(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()
}

// Registry owns the set of open tabs. IDs are allocated monotonically from 1
// and never reused within a process.
type Registry struct {
	mu         sync.RWMutex
	tabs       map[uint64]*Tab
	nextID     uint64
	activeID   uint64 // 0 when no tab is active
	historyCap int
}

// NewRegistry builds an empty registry whose tabs carry histories bounded to
// historyCapacity entries.
func NewRegistry(historyCapacity int) *Registry {
	return &Registry{
		tabs:       make(map[uint64]*Tab),
		nextID:     1,
		historyCap: historyCapacity,
	}
}

// Create opens a new tab at url. The first tab created becomes active.
func (r *Registry) Create(url string) *Tab {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab := &Tab{
		ID:        r.nextID,
		CreatedAt: time.Now().UTC(),
		History:   nav.NewHistory(r.historyCap),
		State:     nav.NewStateMachine(),
		url:       url,
	}
	r.nextID++
	r.tabs[tab.ID] = tab

	if r.activeID == 0 {
		r.activeID = tab.ID
	}
	return tab
}

// Close removes the tab with the given id. Closing the only remaining tab is
// rejected; closing an unknown id is a no-op. If the active tab was closed,
// the remaining tab with the lowest ID becomes active.
func (r *Registry) Close(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tabs[id]; !ok {
		return nil
	}
	if len(r.tabs) == 1 {
		return errs.ErrCannotCloseLast
	}

	delete(r.tabs, id)
	if r.activeID == id {
		r.activeID = r.lowestIDLocked()
	}
	return nil
}

// SwitchTo makes the tab with the given id active. Unknown ids are ignored.
func (r *Registry) SwitchTo(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tabs[id]; ok {
		r.activeID = id
	}
}

// Get returns the tab with the given id.
func (r *Registry) Get(id uint64) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tab, ok := r.tabs[id]
	return tab, ok
}

// Active returns the currently active tab.
func (r *Registry) Active() (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tab, ok := r.tabs[r.activeID]
	return tab, ok
}

// ActiveID returns the active tab's id, or 0 when none is active.
func (r *Registry) ActiveID() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// UpdateURL sets the tab's current address.
func (r *Registry) UpdateURL(id uint64, url string) error {
	r.mu.RLock()
	tab, ok := r.tabs[id]
	r.mu.RUnlock()

	if !ok {
		return &errs.TabNotFoundError{ID: id}
	}
	tab.setURL(url)
	return nil
}

// UpdateTitle sets the tab's title.
func (r *Registry) UpdateTitle(id uint64, title string) error {
	r.mu.RLock()
	tab, ok := r.tabs[id]
	r.mu.RUnlock()

	if !ok {
		return &errs.TabNotFoundError{ID: id}
	}
	tab.setTitle(title)
	return nil
}

// List returns all tabs sorted by ascending ID.
func (r *Registry) List() []*Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tab, 0, len(r.tabs))
	for _, tab := range r.tabs {
		out = append(out, tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of open tabs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

func (r *Registry) lowestIDLocked() uint64 {
	var lowest uint64
	for id := range r.tabs {
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}
	return lowest
}
