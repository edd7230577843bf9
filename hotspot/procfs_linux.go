//go:build linux

package hotspot

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// procRoot is where process information is read from
var procRoot = "/proc"

func procPath(pid int, parts ...string) string {
	return filepath.Join(append([]string{procRoot, strconv.Itoa(pid)}, parts...)...)
}

func procExists(pid int) bool {
	// Fast path: stat /proc/<pid>
	_, err := os.Stat(procPath(pid))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	return unix.Kill(pid, 0) == nil
}

// readCmdline returns the argument vector of pid, nil if unreadable
func readCmdline(pid int) []string {
	data, err := os.ReadFile(procPath(pid, "cmdline"))
	if err != nil || len(data) == 0 {
		return nil
	}

	// Remove the trailing NULL byte
	if data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}

	var args []string
	for _, arg := range bytes.Split(data, []byte{0}) {
		args = append(args, string(arg))
	}
	return args
}

// readComm returns the short command name of pid
func readComm(pid int) string {
	comm, err := os.ReadFile(procPath(pid, "comm"))
	if err != nil {
		return ""
	}
	return string(bytesTrimNL(comm))
}

// catchesSignal reports whether pid has a handler installed for sig, from
// the SigCgt mask in /proc/<pid>/status
func catchesSignal(pid int, sig unix.Signal) (bool, error) {
	f, err := os.Open(procPath(pid, "status"))
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rest, ok := strings.CutPrefix(scanner.Text(), "SigCgt:")
		if !ok {
			continue
		}
		mask, err := strconv.ParseUint(strings.TrimSpace(rest), 16, 64)
		if err != nil {
			return false, fmt.Errorf("malformed SigCgt %q: %w", rest, err)
		}
		return mask&(1<<(uint(sig)-1)) != 0, nil
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, errors.New("no SigCgt in status")
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
