// Package hotspot discovers HotSpot JVMs on the local host and talks to
// their dynamic attach listener.
//
// Running JVMs publish a perf-data file at <tmp>/hsperfdata_<user>/<pid>;
// those files drive List. Connect makes sure the target's attach listener
// is up, starting it with the .attach_pid handshake if needed, and every
// command then opens its own short connection to <tmp>/.java_pid<pid>.
package hotspot

import "time"

const (
	// DefaultTmpDir is where JVMs publish perf-data and attach sockets
	DefaultTmpDir = "/tmp"

	// DefaultAttachTimeout bounds starting the attach listener and
	// non-load commands
	DefaultAttachTimeout = 10 * time.Second

	perfDataPrefix = "hsperfdata_"
)
