// Package attach loads an agent into a tracked target process.
//
// Loading an agent may block for as long as the agent's entry point runs,
// which can be forever. Attach therefore does not wait for the load call to
// return: it reports success once the confirmation delay has passed without
// a failure, and reports a failure only if one arrives before that.
//
// A failure that arrives after success was reported is logged and counted,
// never delivered. Callers that need a definitive outcome must observe the
// target themselves. An in-flight load cannot be cancelled.
package attach

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"vmattach/metrics"
	"vmattach/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

// DefaultConfirmDelay is how long an attach must run without failing before
// it is reported successful.
const DefaultConfirmDelay = 1000 * time.Millisecond

// Target is the part of a tracked process the orchestrator needs
type Target interface {
	ID() string
	Conn() process.Connection
}

// Orchestrator performs agent attaches
type Orchestrator struct {
	locator      AgentLocator
	agentOptions string
	confirmDelay time.Duration
	metrics      metrics.Collector
	log          *logger.Logger
}

// New creates an orchestrator resolving the agent through locator
func New(locator AgentLocator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		locator:      locator,
		confirmDelay: DefaultConfirmDelay,
		metrics:      metrics.NewNoop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.log == nil {
		o.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "attach"))
	}

	return o
}

// ConfirmDelay returns the optimistic success delay
func (o *Orchestrator) ConfirmDelay() time.Duration {
	return o.confirmDelay
}

const (
	stateAttaching int32 = iota
	stateSucceeded
	stateFailed
)

type attempt struct {
	id     string
	target Target
	state  atomic.Int32
	timer  *time.Timer
}

// Attach starts loading the agent into target and returns immediately.
// Exactly one of onSuccess or onError is called, once, on another goroutine.
// Errors passed to onError carry one of process.ErrPathResolution,
// process.ErrAgentIO, process.ErrAgentInit or process.ErrAgentLoad.
func (o *Orchestrator) Attach(target Target, onSuccess func(), onError func(error)) {
	o.metrics.AttachStarted()

	a := &attempt{
		id:     uuid.NewString(),
		target: target,
	}

	path, err := o.resolve()
	if err != nil {
		a.state.Store(stateFailed)
		err = process.Fail(process.ErrPathResolution, target.ID(), err)
		o.log.Warn(fmt.Sprintf("Attach %s: ", a.id), err)
		o.metrics.AttachFinished(outcome(err))
		go o.fail(onError, err)
		return
	}

	o.log.Infoln("Attempting to attach to", target.ID(), "with agent", path, "attempt", a.id)

	a.timer = time.AfterFunc(o.confirmDelay, func() {
		if !a.state.CompareAndSwap(stateAttaching, stateSucceeded) {
			return
		}
		o.log.Infoln("Attach", a.id, "to", target.ID(), "reported successful")
		o.metrics.AttachFinished(metrics.OutcomeSuccess)
		o.succeed(onSuccess)
	})

	go o.load(a, path, onError)
}

// AttachWait attaches and blocks until an outcome is reported or ctx is
// done. Returning on ctx does not stop the attach.
func (o *Orchestrator) AttachWait(ctx context.Context, target Target) error {
	done := make(chan error, 1)
	o.Attach(target,
		func() { done <- nil },
		func(err error) { done <- err },
	)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Detach releases the target's connection
func (o *Orchestrator) Detach(target Target) error {
	if err := target.Conn().Detach(); err != nil {
		err = process.Fail(process.ErrDetach, target.ID(), err)
		o.log.Warn("Detach: ", err)
		return err
	}
	o.log.Debugln("Detached from", target.ID())
	return nil
}

func (o *Orchestrator) resolve() (path string, err error) {
	if o.locator == nil {
		return "", errors.New("no agent locator configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("locator panic: %v", r)
		}
	}()
	return o.locator.Resolve()
}

func (o *Orchestrator) load(a *attempt, path string, onError func(error)) {
	err := o.call(a.target, path)
	if err == nil {
		o.log.Debugln("Agent load returned for attempt", a.id)
		return
	}
	err = classify(a.target.ID(), err)

	// The state flip must happen before onError so a pending confirmation
	// can no longer report success.
	if a.state.CompareAndSwap(stateAttaching, stateFailed) {
		a.timer.Stop()
		o.log.Warn(fmt.Sprintf("Attach %s: ", a.id), err)
		o.metrics.AttachFinished(outcome(err))
		o.fail(onError, err)
		return
	}

	o.log.Warn(fmt.Sprintf("Attach %s failed after success was reported: ", a.id), err)
	o.metrics.AttachLateFailure()
}

func (o *Orchestrator) call(target Target, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent load panic: %v", r)
		}
	}()
	return target.Conn().LoadAgent(path, o.agentOptions)
}

func (o *Orchestrator) succeed(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Warn("Success callback panicked: ", r)
		}
	}()
	fn()
}

func (o *Orchestrator) fail(fn func(error), err error) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Warn("Error callback panicked: ", r)
		}
	}()
	fn(err)
}

// classify maps a load failure onto an agent failure kind; anything
// unrecognized counts as an I/O failure.
func classify(id string, err error) error {
	kind := process.KindOf(err)
	switch kind {
	case process.ErrAgentIO, process.ErrAgentInit, process.ErrAgentLoad:
	default:
		kind = process.ErrAgentIO
	}

	var f *process.Failure
	if errors.As(err, &f) && f.Kind == kind {
		return err
	}
	return process.Fail(kind, id, err)
}

func outcome(err error) string {
	switch process.KindOf(err) {
	case process.ErrPathResolution:
		return metrics.OutcomePathResolution
	case process.ErrAgentInit:
		return metrics.OutcomeAgentInit
	case process.ErrAgentLoad:
		return metrics.OutcomeAgentLoad
	}
	return metrics.OutcomeAgentIO
}
