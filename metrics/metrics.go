// Package metrics records discovery and attach activity.
package metrics

import (
	"time"
)

// Attach outcomes
const (
	OutcomeSuccess        = "success"
	OutcomePathResolution = "path_resolution"
	OutcomeAgentIO        = "agent_io"
	OutcomeAgentInit      = "agent_init"
	OutcomeAgentLoad      = "agent_load"
)

// Collector defines the interface for collecting discovery and attach metrics
type Collector interface {
	// ScanCompleted records one reconciliation pass
	ScanCompleted(duration time.Duration, added, removed, tracked int)

	// ScanSkipped records a tick suppressed by the activity gate
	ScanSkipped()

	// ConnectFailed records a descriptor that could not be connected
	ConnectFailed()

	// PropertyRefresh records a property cache recomputation
	PropertyRefresh(err error)

	// AttachStarted records the start of an attach attempt
	AttachStarted()

	// AttachFinished records the reported outcome of an attach attempt
	AttachFinished(outcome string)

	// AttachLateFailure records a failure observed after success was reported
	AttachLateFailure()
}

// noopCollector is a no-op implementation of Collector
type noopCollector struct{}

func (n *noopCollector) ScanCompleted(duration time.Duration, added, removed, tracked int) {}
func (n *noopCollector) ScanSkipped()                                                      {}
func (n *noopCollector) ConnectFailed()                                                    {}
func (n *noopCollector) PropertyRefresh(err error)                                         {}
func (n *noopCollector) AttachStarted()                                                    {}
func (n *noopCollector) AttachFinished(outcome string)                                     {}
func (n *noopCollector) AttachLateFailure()                                                {}

// NewNoop creates a no-op metrics collector
func NewNoop() Collector {
	return &noopCollector{}
}
