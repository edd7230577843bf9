package hotspot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vmattach/process"
)

// Attach listener protocol, as spoken over the .java_pid<pid> socket: the
// request is a version and a command followed by exactly three arguments,
// each NUL terminated; the reply is a status line followed by free text.
const (
	protocolVersion = "1"
	maxArgs         = 3

	statusBadVersion = 101

	returnCodePrefix = "return code: "
)

// Return codes of the instrument library's Agent_OnAttach
const (
	rcOK        = 0
	rcNoMemory  = -4
	rcBadJar    = 100
	rcNotOnCP   = 101
	rcStartFail = 102
)

func writeRequest(w io.Writer, cmd string, args ...string) error {
	if len(args) > maxArgs {
		return fmt.Errorf("too many arguments for %s: %d", cmd, len(args))
	}

	var buf bytes.Buffer
	buf.WriteString(protocolVersion)
	buf.WriteByte(0)
	buf.WriteString(cmd)
	buf.WriteByte(0)
	for i := 0; i < maxArgs; i++ {
		if i < len(args) {
			buf.WriteString(args[i])
		}
		buf.WriteByte(0)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

type response struct {
	status int
	body   []byte
}

// parseResponse splits a reply read up to readErr. When the stream broke
// after the status line the partial body is returned with the read error.
func parseResponse(data []byte, readErr error) (*response, error) {
	line, body, _ := bytes.Cut(data, []byte{'\n'})
	if len(bytes.TrimSpace(line)) == 0 {
		if readErr != nil {
			return nil, readErr
		}
		return nil, errors.New("target did not respond")
	}

	status, err := strconv.Atoi(string(bytes.TrimSpace(line)))
	if err != nil {
		return nil, fmt.Errorf("malformed status line %q", line)
	}

	return &response{status: status, body: body}, readErr
}

func (r *response) message() string {
	return strings.TrimSpace(string(r.body))
}

// loadResult interprets the reply of a "load instrument" command
func loadResult(r *response) error {
	if r.status == statusBadVersion {
		return process.Fail(process.ErrAgentIO, "", errors.New("protocol mismatch with target"))
	}
	if r.status != 0 {
		msg := r.message()
		if msg == "" {
			msg = fmt.Sprintf("status %d", r.status)
		}
		return process.Fail(process.ErrAgentLoad, "", errors.New(msg))
	}

	msg := r.message()
	if msg == "" {
		return process.Fail(process.ErrAgentLoad, "", errors.New("target did not respond"))
	}

	// older targets reply with the bare return code
	rc, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(msg, returnCodePrefix)))
	if err != nil {
		return process.Fail(process.ErrAgentLoad, "", errors.New(msg))
	}
	return returnCodeError(rc)
}

func returnCodeError(rc int) error {
	switch rc {
	case rcOK:
		return nil
	case rcNoMemory:
		return process.Fail(process.ErrAgentLoad, "", errors.New("insufficient memory"))
	case rcBadJar:
		return process.Fail(process.ErrAgentLoad, "", errors.New("agent JAR not found or no Agent-Class attribute"))
	case rcNotOnCP:
		return process.Fail(process.ErrAgentLoad, "", errors.New("unable to add JAR file to system class path"))
	case rcStartFail:
		return process.Fail(process.ErrAgentInit, "", errors.New("agent JAR loaded but agent failed to initialize"))
	}
	return process.Fail(process.ErrAgentLoad, "", fmt.Errorf("failed to load agent, unknown reason: %d", rc))
}

// agentArgument joins the jar path and agent options the way the
// instrument library expects them
func agentArgument(path, options string) string {
	if options == "" {
		return path
	}
	return path + "=" + options
}
