package discovery

import (
	"sort"
	"sync/atomic"
)

// Registry is the ordered set of tracked targets keyed by canonical id.
//
// Readers load an immutable snapshot and never block; the Engine is the only
// writer and publishes a new snapshot at the end of each scan, so a reader
// may observe the previous pass.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	byID map[string]*Target
	ids  []string // sorted
}

func newSnapshot(byID map[string]*Target) *snapshot {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &snapshot{byID: byID, ids: ids}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(newSnapshot(map[string]*Target{}))
	return r
}

func (r *Registry) load() *snapshot {
	return r.snap.Load()
}

func (r *Registry) publish(byID map[string]*Target) {
	r.snap.Store(newSnapshot(byID))
}

// Get returns the target tracked under id
func (r *Registry) Get(id string) (*Target, bool) {
	t, ok := r.load().byID[id]
	return t, ok
}

// Contains reports whether id is tracked
func (r *Registry) Contains(id string) bool {
	_, ok := r.load().byID[id]
	return ok
}

// Len returns the number of tracked targets
func (r *Registry) Len() int {
	return len(r.load().ids)
}

// Keys returns the tracked ids in lexicographic order
func (r *Registry) Keys() []string {
	s := r.load()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Targets returns the tracked targets ordered by id
func (r *Registry) Targets() []*Target {
	s := r.load()
	out := make([]*Target, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}
