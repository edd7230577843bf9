package discovery

// Sink receives membership changes. Calls arrive on the engine's goroutine,
// one per id per scan; consumers marshal to their own context if needed.
type Sink interface {
	Added(id string)
	Removed(id string)
}

// SinkFuncs adapts plain functions to a Sink. Nil fields are ignored.
type SinkFuncs struct {
	OnAdded   func(id string)
	OnRemoved func(id string)
}

func (s SinkFuncs) Added(id string) {
	if s.OnAdded != nil {
		s.OnAdded(id)
	}
}

func (s SinkFuncs) Removed(id string) {
	if s.OnRemoved != nil {
		s.OnRemoved(id)
	}
}

// ActivityFunc gates scans; a tick on which it returns false is skipped.
type ActivityFunc func() bool

// Diff is the outcome of one scan
type Diff struct {
	Added   []string
	Removed []string
}

// Empty reports whether the scan changed nothing
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
