package cached

import (
	"time"

	"github.com/Moonlight-Companies/gologger/logger"
)

type options struct {
	ttl       time.Duration
	now       func() time.Time
	log       *logger.Logger
	onRefresh func(error)
}

// Option configures a Value
type Option func(*options)

// WithTTL sets how long a computed value stays fresh. Non-positive values
// are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger supplier failures are reported to
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithRefreshHook is called after every supplier invocation with its error
func WithRefreshHook(fn func(error)) Option {
	return func(o *options) {
		o.onRefresh = fn
	}
}
