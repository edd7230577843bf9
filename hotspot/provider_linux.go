//go:build linux

package hotspot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"vmattach/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Provider implements process.Provider for local HotSpot JVMs
type Provider struct {
	tmpDir        string
	attachTimeout time.Duration
	pollInterval  time.Duration
	selfPID       int
	includeSelf   bool
	log           *logger.Logger
}

// Option configures the Provider
type Option func(*Provider)

// WithTmpDir sets the directory holding perf-data and attach sockets
func WithTmpDir(dir string) Option {
	return func(p *Provider) {
		if dir != "" {
			p.tmpDir = dir
		}
	}
}

// WithAttachTimeout bounds listener startup and non-load commands
func WithAttachTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.attachTimeout = d
		}
	}
}

// WithSelf lists the current process too, when it is itself a JVM
// publishing perf-data
func WithSelf(include bool) Option {
	return func(p *Provider) {
		p.includeSelf = include
	}
}

// WithLogger sets the provider logger
func WithLogger(log *logger.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// NewProvider creates a HotSpot provider
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		tmpDir:        DefaultTmpDir,
		attachTimeout: DefaultAttachTimeout,
		pollInterval:  100 * time.Millisecond,
		selfPID:       os.Getpid(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "hotspot"))
	}

	return p
}

// TmpDir returns the directory scanned for perf-data
func (p *Provider) TmpDir() string {
	return p.tmpDir
}

// List returns a descriptor for every live process with a perf-data file
func (p *Provider) List() ([]process.Descriptor, error) {
	dirs, err := filepath.Glob(filepath.Join(p.tmpDir, perfDataPrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob perf-data directories: %w", err)
	}

	seen := make(map[int]bool)
	var pids []int

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			p.log.Debugln("Skipping unreadable perf-data directory", dir, err)
			continue
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			pid, err := strconv.Atoi(e.Name())
			if err != nil || pid <= 0 {
				continue // not a perf-data file
			}
			if pid == p.selfPID && !p.includeSelf {
				continue
			}
			if seen[pid] || !procExists(pid) {
				continue // stale perf-data of a dead VM
			}
			seen[pid] = true
			pids = append(pids, pid)
		}
	}

	sort.Ints(pids)

	out := make([]process.Descriptor, 0, len(pids))
	for _, pid := range pids {
		out = append(out, p.descriptor(pid))
	}
	return out, nil
}

// Descriptor returns a descriptor for a known pid without listing
func (p *Provider) Descriptor(pid process.ProcessID) (process.Descriptor, error) {
	if pid <= 0 || !procExists(int(pid)) {
		return nil, fmt.Errorf("process with PID %d does not exist", pid)
	}
	return p.descriptor(int(pid)), nil
}

func (p *Provider) descriptor(pid int) *descriptor {
	name := DisplayName(readCmdline(pid))
	if name == "" {
		name = readComm(pid)
	}
	return &descriptor{p: p, pid: pid, name: name}
}

func (p *Provider) socketPath(pid int) string {
	return filepath.Join(p.tmpDir, ".java_pid"+strconv.Itoa(pid))
}

type descriptor struct {
	p    *Provider
	pid  int
	name string
}

func (d *descriptor) ID() string {
	return strconv.Itoa(d.pid)
}

func (d *descriptor) DisplayName() string {
	return d.name
}

// Connect makes sure the attach listener of the target is running and
// reachable by us.
func (d *descriptor) Connect() (process.Connection, error) {
	sock := d.p.socketPath(d.pid)

	if !isSocket(sock) {
		if err := d.p.startListener(d.pid, sock); err != nil {
			return nil, err
		}
	}

	if err := checkOwner(sock, d.ID()); err != nil {
		return nil, err
	}

	return &conn{
		id:      d.ID(),
		socket:  sock,
		timeout: d.p.attachTimeout,
		log:     d.p.log,
	}, nil
}
