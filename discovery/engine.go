// Package discovery keeps a registry of attachable processes in sync with
// the host.
//
// The Engine is the only writer of its Registry. Each Scan lists the host's
// descriptors, connects to each of them and reconciles the result against
// the previous pass: new numeric ids become Targets, ids no longer observed
// are dropped, and the Sink is told about both. Targets survive across scans
// so their property caches do too.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"vmattach/cached"
	"vmattach/metrics"
	"vmattach/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultInterval is the default time between scans
const DefaultInterval = 1000 * time.Millisecond

// Engine reconciles a Registry with the processes listed by a Provider
type Engine struct {
	provider process.Provider
	registry *Registry
	sink     Sink
	active   ActivityFunc
	interval time.Duration
	ttl      time.Duration
	metrics  metrics.Collector
	log      *logger.Logger

	// scanMu keeps passes and their notifications from interleaving
	scanMu  sync.Mutex
	trigger chan struct{}
}

// NewEngine creates an engine writing into registry
func NewEngine(provider process.Provider, registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		registry: registry,
		sink:     SinkFuncs{},
		interval: DefaultInterval,
		ttl:      cached.DefaultTTL,
		metrics:  metrics.NewNoop(),
		trigger:  make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "discovery"))
	}

	return e
}

// Registry returns the registry this engine writes to
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Interval returns the scan interval
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Run scans on every tick until ctx is done. Ticks on which the activity
// predicate returns false are skipped without shifting the schedule.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Infoln("Discovery started, interval", e.interval)
	defer e.log.Infoln("Discovery stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick()
		case <-e.trigger:
			e.tick()
		}
	}
}

// Trigger asks a running engine to scan as soon as possible. Requests made
// while one is already pending are coalesced.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

func (e *Engine) tick() {
	if !e.isActive() {
		e.metrics.ScanSkipped()
		return
	}
	e.Scan()
}

func (e *Engine) isActive() (active bool) {
	if e.active == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("Activity predicate panicked: ", r)
			active = false
		}
	}()
	return e.active()
}

type opened struct {
	conn process.Connection
	id   string
	name string
}

// Scan performs one reconciliation pass and returns what changed
func (e *Engine) Scan() Diff {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	start := time.Now()

	current := e.registry.load()
	next := maps.Clone(current.byID)

	descriptors, err := e.list()
	if err != nil {
		e.log.Warn("Failed to list processes, keeping previous state: ", err)
		return Diff{}
	}

	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		o, err := e.open(d)
		if err != nil {
			e.metrics.ConnectFailed()
			if process.KindOf(err) != process.ErrConnect {
				err = process.Fail(process.ErrConnect, describe(d), err)
			}
			e.log.Warn("Failed to connect: ", err)
			continue
		}

		if !process.IsNumericID(o.id) {
			e.log.Debugln("Ignoring non-numeric id", o.id)
			e.release(o.conn, o.id)
			continue
		}

		pid, err := process.ParseID(o.id)
		if err != nil {
			e.log.Warn("Failed to parse pid: ", err)
			e.release(o.conn, o.id)
			continue
		}

		seen[o.id] = struct{}{}

		if _, tracked := next[o.id]; tracked {
			e.release(o.conn, o.id)
			continue
		}

		next[o.id] = newTarget(o.conn, o.id, pid, o.name, e.ttl, e.metrics)
	}

	var diff Diff
	for id := range current.byID {
		if _, ok := seen[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}
	for id := range seen {
		if _, ok := current.byID[id]; !ok {
			diff.Added = append(diff.Added, id)
		}
	}
	sort.Strings(diff.Removed)
	sort.Strings(diff.Added)

	gone := make([]*Target, 0, len(diff.Removed))
	for _, id := range diff.Removed {
		gone = append(gone, next[id])
		delete(next, id)
	}

	e.registry.publish(next)

	for _, t := range gone {
		e.release(t.conn, t.id)
	}

	e.notify(diff)

	e.metrics.ScanCompleted(time.Since(start), len(diff.Added), len(diff.Removed), len(next))

	return diff
}

// Shutdown drops every tracked target, releasing its connection and
// emitting a removal for it. The engine may scan again afterwards.
func (e *Engine) Shutdown() {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	current := e.registry.load()
	e.registry.publish(map[string]*Target{})

	for _, id := range current.ids {
		e.release(current.byID[id].conn, id)
	}

	e.notify(Diff{Removed: current.ids})
	e.log.Infoln("Registry cleared,", len(current.ids), "targets released")
}

func (e *Engine) list() (descriptors []process.Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return e.provider.List()
}

func (e *Engine) open(d process.Descriptor) (o opened, err error) {
	defer func() {
		if r := recover(); r != nil {
			if o.conn != nil {
				e.release(o.conn, "")
			}
			o = opened{}
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	conn, err := d.Connect()
	if err != nil {
		return o, err
	}
	if conn == nil {
		return o, errors.New("provider returned no connection")
	}

	o.conn = conn
	o.id = conn.ID()
	o.name = d.DisplayName()
	return o, nil
}

// release detaches a connection that is not retained
func (e *Engine) release(conn process.Connection, id string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("Detach panicked: ", r)
		}
	}()
	if err := conn.Detach(); err != nil {
		e.log.Debugln("Failed to detach", id, err)
	}
}

func (e *Engine) notify(diff Diff) {
	for _, id := range diff.Removed {
		e.log.Infoln("Process removed:", id)
		e.deliver(e.sink.Removed, id)
	}
	for _, id := range diff.Added {
		e.log.Infoln("Process added:", id)
		e.deliver(e.sink.Added, id)
	}
}

func (e *Engine) deliver(fn func(string), id string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("Sink panicked: ", r)
		}
	}()
	fn(id)
}

func describe(d process.Descriptor) (id string) {
	defer func() {
		if recover() != nil {
			id = "?"
		}
	}()
	return d.ID()
}
