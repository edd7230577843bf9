package attach

import (
	"time"

	"vmattach/metrics"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithConfirmDelay sets how long an attach must run without failing before
// success is reported
func WithConfirmDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.confirmDelay = d
		}
	}
}

// WithAgentOptions sets the option string passed to the agent
func WithAgentOptions(options string) Option {
	return func(o *Orchestrator) {
		o.agentOptions = options
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(mc metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = mc
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}
