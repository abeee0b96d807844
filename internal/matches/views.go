package matches

import "sync"

// ViewCache memoizes the derived per-control views between mutations. A
// lifecycle transition or a fresh scan invalidates the affected entries; reads
// always recompute from the latest snapshot after an invalidation rather than
// patching stale state.
type ViewCache struct {
	mu        sync.Mutex
	summaries map[string]Summary
	gaps      map[string][]string
}

// NewViewCache constructs an empty ViewCache.
func NewViewCache() *ViewCache {
	return &ViewCache{
		summaries: make(map[string]Summary),
		gaps:      make(map[string][]string),
	}
}

// Summary returns the cached coverage summary for a control.
func (v *ViewCache) Summary(controlID string) (Summary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.summaries[controlID]
	return s, ok
}

// StoreSummary caches a freshly computed coverage summary.
func (v *ViewCache) StoreSummary(controlID string, s Summary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.summaries[controlID] = s
}

// Gaps returns the cached gap question ids for a control.
func (v *ViewCache) Gaps(controlID string) ([]string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.gaps[controlID]
	return g, ok
}

// StoreGaps caches a freshly computed gap list.
func (v *ViewCache) StoreGaps(controlID string, questionIDs []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gaps[controlID] = questionIDs
}

// InvalidateMatchList expires views derived from the control's match list.
func (v *ViewCache) InvalidateMatchList(controlID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.summaries, controlID)
}

// InvalidateControlListing expires the control's aggregate listing entry.
func (v *ViewCache) InvalidateControlListing(controlID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.summaries, controlID)
}

// InvalidateGaps expires the control's evidence-gap computation.
func (v *ViewCache) InvalidateGaps(controlID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.gaps, controlID)
}

var _ ViewInvalidator = (*ViewCache)(nil)
