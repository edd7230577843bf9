package discovery

import (
	"time"

	"vmattach/metrics"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Option configures the Engine
type Option func(*Engine)

// WithInterval sets the scan interval
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithPropertyTTL sets how long target properties stay cached
func WithPropertyTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.ttl = d
		}
	}
}

// WithSink sets the membership notification sink
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithActivity sets the predicate polled on every tick
func WithActivity(fn ActivityFunc) Option {
	return func(e *Engine) {
		e.active = fn
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(mc metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = mc
	}
}

// WithLogger sets the engine logger
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}
