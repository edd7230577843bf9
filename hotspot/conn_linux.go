//go:build linux

package hotspot

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"vmattach/hexdump"
	"vmattach/process"

	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

func isSocket(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFSOCK
}

// checkOwner refuses listeners not owned by the current user
func checkOwner(path, id string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return process.Fail(process.ErrConnect, id, fmt.Errorf("stat %s: %w", path, err))
	}
	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return process.Fail(process.ErrConnect, id, fmt.Errorf("%s is not a socket", path))
	}
	if uid := uint32(os.Geteuid()); st.Uid != uid {
		return process.Fail(process.ErrConnect, id,
			fmt.Errorf("socket %s is owned by uid %d, we are %d", path, st.Uid, uid))
	}
	return nil
}

// startListener asks the target to open its attach listener: create the
// .attach_pid file, send SIGQUIT and wait for the socket to appear.
func (p *Provider) startListener(pid int, sock string) error {
	id := strconv.Itoa(pid)

	// SIGQUIT kills a VM that has not installed its handlers yet
	caught, err := catchesSignal(pid, unix.SIGQUIT)
	if err != nil {
		return process.Fail(process.ErrConnect, id, fmt.Errorf("signal handler check: %w", err))
	}
	if !caught {
		return process.Fail(process.ErrConnect, id, errors.New("signal handler not installed"))
	}

	attachFile, err := createAttachFile(pid, p.tmpDir)
	if err != nil {
		return process.Fail(process.ErrConnect, id, err)
	}
	defer os.Remove(attachFile)

	p.log.Debugln("Starting attach listener of", pid, "via", attachFile)

	if err := unix.Kill(pid, unix.SIGQUIT); err != nil {
		return process.Fail(process.ErrConnect, id, fmt.Errorf("signal: %w", err))
	}

	deadline := time.Now().Add(p.attachTimeout)
	for !isSocket(sock) {
		if time.Now().After(deadline) {
			return process.Fail(process.ErrConnect, id,
				fmt.Errorf("attach listener did not start within %v", p.attachTimeout))
		}
		time.Sleep(p.pollInterval)
	}
	return nil
}

// createAttachFile creates .attach_pid<pid> in the target's working
// directory, falling back to the tmp directory.
func createAttachFile(pid int, tmpDir string) (string, error) {
	name := ".attach_pid" + strconv.Itoa(pid)

	candidates := []string{
		filepath.Join(procPath(pid, "cwd"), name),
		filepath.Join(tmpDir, name),
	}

	var errs []error
	for _, path := range candidates {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o660)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f.Close()
		return path, nil
	}
	return "", fmt.Errorf("failed to create attach file: %w", errors.Join(errs...))
}

// conn is a ready attach listener. Every command uses its own socket
// connection, the listener serves one request per connection.
type conn struct {
	id       string
	socket   string
	timeout  time.Duration
	detached atomic.Bool
	log      *logger.Logger
}

func (c *conn) ID() string {
	return c.id
}

// execute sends one command and reads the reply. A zero readTimeout waits
// for the reply indefinitely.
func (c *conn) execute(readTimeout time.Duration, cmd string, args ...string) (*response, error) {
	if c.detached.Load() {
		return nil, process.ErrNotAttached
	}

	nc, err := net.DialTimeout("unix", c.socket, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.socket, err)
	}
	defer nc.Close()

	if err := nc.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if err := writeRequest(nc, cmd, args...); err != nil {
		return nil, fmt.Errorf("write %s: %w", cmd, err)
	}

	if readTimeout > 0 {
		if err := nc.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return nil, err
		}
	} else if err := nc.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}

	data, readErr := io.ReadAll(nc)
	resp, err := parseResponse(data, readErr)
	if resp == nil && len(data) > 0 {
		c.log.Debugln("Unparseable reply to", cmd, "from", c.id, "\n"+hexdump.DumpCompact(data))
	}
	return resp, err
}

// FetchProperties runs the "properties" command
func (c *conn) FetchProperties() (map[string]string, error) {
	resp, err := c.execute(c.timeout, "properties")
	if resp == nil {
		if errors.Is(err, process.ErrNotAttached) {
			return nil, err
		}
		return nil, process.Fail(process.ErrPropertyFetch, c.id, err)
	}

	if resp.status != 0 {
		return nil, process.Fail(process.ErrPropertyFetch, c.id,
			fmt.Errorf("status %d: %s", resp.status, resp.message()))
	}

	props, perr := ParseProperties(resp.body)
	if err = errors.Join(err, perr); err != nil {
		return props, process.Fail(process.ErrPropertyFetch, c.id, err)
	}
	return props, nil
}

// LoadAgent runs "load instrument false <jar>[=options]". It blocks until
// the agent's entry point returns.
func (c *conn) LoadAgent(path, options string) error {
	resp, err := c.execute(0, "load", "instrument", "false", agentArgument(path, options))
	if err != nil {
		return process.Fail(process.ErrAgentIO, c.id, err)
	}

	if err := loadResult(resp); err != nil {
		var f *process.Failure
		if errors.As(err, &f) {
			f.ID = c.id
		}
		return err
	}

	c.log.Debugln("Agent", path, "loaded into", c.id)
	return nil
}

// Detach releases the connection. No socket is held between commands so
// this only stops further use.
func (c *conn) Detach() error {
	if !c.detached.CompareAndSwap(false, true) {
		return process.ErrNotAttached
	}
	return nil
}
