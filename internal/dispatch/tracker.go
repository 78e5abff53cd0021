package dispatch

import (
	"sync"

	"pointer-relay/internal/config"
)

// Tracker is the per-tab route tracking store: tab identifier → last
// resolved rule (nil when the default endpoint was used). Entries are
// overwritten on every dispatch for that tab and deleted when the tab
// closes. Purely observational; it never feeds back into routing.
type Tracker struct {
	mu   sync.RWMutex
	tabs map[int]*config.Rule
}

// NewTracker creates an empty tracking store.
func NewTracker() *Tracker {
	return &Tracker{
		tabs: make(map[int]*config.Rule),
	}
}

// Set records the rule last resolved for a tab.
func (t *Tracker) Set(tabID int, rule *config.Rule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabs[tabID] = rule
}

// Get returns the rule last resolved for a tab. The second return
// distinguishes "tracked with no rule" from "never tracked".
func (t *Tracker) Get(tabID int) (*config.Rule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rule, ok := t.tabs[tabID]
	return rule, ok
}

// Remove deletes a tab's entry. Called when the tab closes.
func (t *Tracker) Remove(tabID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tabs, tabID)
}

// Count returns the number of tracked tabs.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tabs)
}
