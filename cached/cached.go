// Package cached memoizes an expensive value for a bounded time.
//
// A Value recomputes through its Supplier when nothing has been computed yet
// or when the last computation is older than the TTL. Supplier errors are
// logged and swallowed: whatever the supplier returned alongside the error
// becomes the cached value. The timestamp advances on every supplier call,
// failed and partial ones included, so a failing supplier is retried at most
// once per TTL. Callers racing past expiry may all run the supplier; there
// is no single-flight.
package cached

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultTTL is used when no TTL option is given.
const DefaultTTL = 5000 * time.Millisecond

// Supplier computes a fresh value. It may return a partial value together
// with an error.
type Supplier[V any] func() (V, error)

type entry[V any] struct {
	value V
	at    time.Time
}

// Value is a time-bounded memoized value
type Value[V any] struct {
	supplier  Supplier[V]
	ttl       time.Duration
	now       func() time.Time
	log       *logger.Logger
	onRefresh func(error)

	current atomic.Pointer[entry[V]]
}

// New creates a Value backed by supplier
func New[V any](supplier Supplier[V], opts ...Option) *Value[V] {
	o := options{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "cached"))
	}

	return &Value[V]{
		supplier:  supplier,
		ttl:       o.ttl,
		now:       o.now,
		log:       o.log,
		onRefresh: o.onRefresh,
	}
}

// Get returns the cached value, recomputing it first if it is missing or
// older than the TTL.
func (c *Value[V]) Get() V {
	if e := c.current.Load(); e != nil && c.now().Sub(e.at) <= c.ttl {
		return e.value
	}
	return c.refresh()
}

// Invalidate drops the cached value; the next Get recomputes.
func (c *Value[V]) Invalidate() {
	c.current.Store(nil)
}

// Age returns the time since the last computation and false if nothing was
// computed yet.
func (c *Value[V]) Age() (time.Duration, bool) {
	e := c.current.Load()
	if e == nil {
		return 0, false
	}
	return c.now().Sub(e.at), true
}

// TTL returns the configured time to live
func (c *Value[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Value[V]) refresh() V {
	v, err := c.call()
	c.current.Store(&entry[V]{value: v, at: c.now()})

	if err != nil {
		c.log.Warn("Supplier failed, caching partial result: ", err)
	}
	if c.onRefresh != nil {
		c.onRefresh(err)
	}
	return v
}

func (c *Value[V]) call() (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supplier panic: %v", r)
		}
	}()
	return c.supplier()
}
