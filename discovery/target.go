package discovery

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"vmattach/cached"
	"vmattach/metrics"
	"vmattach/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Well known system properties
const (
	PropJavaCommand = "sun.java.command"
	PropVMName      = "java.vm.name"
	PropJavaVersion = "java.version"
)

// Target is one tracked process. It keeps the connection obtained when it
// was first discovered and a lazily refreshed copy of its properties.
type Target struct {
	id          string
	pid         process.ProcessID
	displayName string
	conn        process.Connection
	properties  *cached.Value[map[string]string]
	log         *logger.Logger
}

func newTarget(conn process.Connection, id string, pid process.ProcessID, displayName string, ttl time.Duration, mc metrics.Collector) *Target {
	t := &Target{
		id:          id,
		pid:         pid,
		displayName: displayName,
		conn:        conn,
		log:         logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("vm-%d", pid))),
	}

	t.properties = cached.New(t.fetchProperties,
		cached.WithTTL(ttl),
		cached.WithLogger(t.log),
		cached.WithRefreshHook(mc.PropertyRefresh),
	)

	return t
}

// NewTarget builds a target outside of discovery, for one-shot tools that
// connect to a single known process.
func NewTarget(conn process.Connection, displayName string, ttl time.Duration) (*Target, error) {
	id := conn.ID()
	if !process.IsNumericID(id) {
		return nil, fmt.Errorf("non-numeric process id %q", id)
	}
	pid, err := process.ParseID(id)
	if err != nil {
		return nil, err
	}
	return newTarget(conn, id, pid, displayName, ttl, metrics.NewNoop()), nil
}

func (t *Target) fetchProperties() (map[string]string, error) {
	props, err := t.conn.FetchProperties()
	if props == nil {
		props = map[string]string{}
	}
	if err != nil {
		return props, process.Fail(process.ErrPropertyFetch, t.id, err)
	}
	return props, nil
}

// ID returns the canonical id
func (t *Target) ID() string {
	return t.id
}

// PID returns the process id
func (t *Target) PID() process.ProcessID {
	return t.pid
}

// DisplayName returns the name reported by the provider, may be empty
func (t *Target) DisplayName() string {
	return t.displayName
}

// Conn returns the retained connection
func (t *Target) Conn() process.Connection {
	return t.conn
}

// Properties returns a copy of the cached system properties, refreshing
// them when stale.
func (t *Target) Properties() map[string]string {
	return maps.Clone(t.properties.Get())
}

// Property returns a single property or def when absent
func (t *Target) Property(key, def string) string {
	if v, ok := t.properties.Get()[key]; ok {
		return v
	}
	return def
}

// VMName returns the java.vm.name property or "?"
func (t *Target) VMName() string {
	return t.Property(PropVMName, "?")
}

// JavaVersion returns the java.version property or "?"
func (t *Target) JavaVersion() string {
	return t.Property(PropJavaVersion, "?")
}

// MainClass returns the first token of the display name, falling back to
// the sun.java.command property, or "<?>" when neither is known.
func (t *Target) MainClass() string {
	source := t.displayName
	if strings.TrimSpace(source) == "" {
		source = t.Property(PropJavaCommand, "")
	}
	fields := strings.Fields(source)
	if len(fields) == 0 {
		return "<?>"
	}
	return fields[0]
}

func (t *Target) String() string {
	return fmt.Sprintf("%d - %s", t.pid, t.MainClass())
}
