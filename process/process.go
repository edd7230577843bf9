// Package process defines the host-side view of attachable processes:
// descriptors, connections and the failure taxonomy shared by discovery and attach.
package process

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect is returned when a connection to a descriptor cannot be established.
	ErrConnect = errors.New("connect failed")

	// ErrPropertyFetch is returned when the property listing of a process fails.
	// A partial property map may accompany it.
	ErrPropertyFetch = errors.New("property fetch failed")

	// ErrPathResolution is returned when the local agent payload cannot be located.
	ErrPathResolution = errors.New("agent path resolution failed")

	// ErrAgentIO is returned when communication with the target fails during agent load.
	ErrAgentIO = errors.New("agent io failure")

	// ErrAgentInit is returned when the agent was loaded but its initialization failed.
	ErrAgentInit = errors.New("agent initialization failed")

	// ErrAgentLoad is returned when the target refused to load the agent.
	ErrAgentLoad = errors.New("agent load failed")

	// ErrDetach is returned when releasing a connection fails.
	ErrDetach = errors.New("detach failed")

	// ErrNotAttached is returned by connection operations after Detach.
	ErrNotAttached = errors.New("connection detached")
)

var kinds = []error{
	ErrConnect,
	ErrPropertyFetch,
	ErrPathResolution,
	ErrAgentIO,
	ErrAgentInit,
	ErrAgentLoad,
	ErrDetach,
}

// Failure carries a failure kind (one of the Err* sentinels), the id of the
// process it concerns and the underlying cause.
type Failure struct {
	Kind error
	ID   string
	Err  error
}

// Fail builds a Failure of the given kind.
func Fail(kind error, id string, err error) *Failure {
	return &Failure{Kind: kind, ID: id, Err: err}
}

func (f *Failure) Error() string {
	switch {
	case f.ID != "" && f.Err != nil:
		return fmt.Sprintf("%v: process %s: %v", f.Kind, f.ID, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%v: %v", f.Kind, f.Err)
	case f.ID != "":
		return fmt.Sprintf("%v: process %s", f.Kind, f.ID)
	}
	return f.Kind.Error()
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// KindOf returns the failure kind of err, or nil if err does not carry one.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) && f.Kind != nil {
		return f.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
