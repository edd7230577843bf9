package process

import (
	"regexp"
	"strconv"
)

// ProcessID represents a unique identifier for a process
type ProcessID int

func (pid ProcessID) String() string {
	return strconv.Itoa(int(pid))
}

var numericID = regexp.MustCompile(`^\d+$`)

// IsNumericID reports whether id is a purely numeric canonical id.
func IsNumericID(id string) bool {
	return numericID.MatchString(id)
}

// ParseID converts a numeric canonical id into a ProcessID.
func ParseID(id string) (ProcessID, error) {
	pid, err := strconv.Atoi(id)
	if err != nil {
		return 0, err
	}
	return ProcessID(pid), nil
}

// Provider enumerates attachable processes on the local host
type Provider interface {
	// List returns descriptors for every candidate process. Descriptors are
	// only valid for the pass that produced them.
	List() ([]Descriptor, error)
}

// Descriptor identifies one attachable process before a connection exists
type Descriptor interface {
	// ID returns the provider's id for the process, usually the pid
	ID() string

	// DisplayName returns a human readable name, may be empty
	DisplayName() string

	// Connect establishes a connection to the process
	Connect() (Connection, error)
}

// Connection is an established link to a target process. It must be
// released with Detach when it is not retained.
type Connection interface {
	// ID returns the canonical id of the connected process
	ID() string

	// FetchProperties returns the process' system properties. On failure the
	// properties read so far are returned alongside the error.
	FetchProperties() (map[string]string, error)

	// LoadAgent loads the agent at path into the process. It may block
	// for as long as the target takes to run the agent's entry point.
	LoadAgent(path, options string) error

	// Detach releases the connection
	Detach() error
}
