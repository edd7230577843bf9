package hotspot

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"vmattach/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRequest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRequest(&buf, "load", "instrument", "false", "/opt/a.jar=x"))
	assert.Equal(t, "1\x00load\x00instrument\x00false\x00/opt/a.jar=x\x00", buf.String())

	buf.Reset()
	require.NoError(t, writeRequest(&buf, "properties"))
	assert.Equal(t, "1\x00properties\x00\x00\x00\x00", buf.String())

	assert.Error(t, writeRequest(&buf, "x", "1", "2", "3", "4"))
}

func TestParseResponse(t *testing.T) {
	resp, err := parseResponse(io.ReadAll(strings.NewReader("0\nreturn code: 0\n")))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.status)
	assert.Equal(t, "return code: 0", resp.message())

	_, err = parseResponse(io.ReadAll(strings.NewReader("")))
	assert.Error(t, err)

	_, err = parseResponse(io.ReadAll(strings.NewReader("garbage\n")))
	assert.Error(t, err)
}

// brokenReader returns data and then fails
type brokenReader struct {
	data []byte
	done bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.done {
		return 0, io.ErrUnexpectedEOF
	}
	b.done = true
	return copy(p, b.data), nil
}

func TestParseResponse_Partial(t *testing.T) {
	resp, err := parseResponse(io.ReadAll(&brokenReader{data: []byte("0\na=1\nb=")}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotNil(t, resp)
	assert.Equal(t, "a=1\nb=", string(resp.body))

	resp, err = parseResponse(io.ReadAll(&brokenReader{}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Nil(t, resp)
}

func TestLoadResult(t *testing.T) {
	cases := []struct {
		name string
		resp response
		kind error
	}{
		{"ok", response{0, []byte("return code: 0\n")}, nil},
		{"bare ok", response{0, []byte("0\n")}, nil},
		{"no memory", response{0, []byte("return code: -4\n")}, process.ErrAgentLoad},
		{"bad jar", response{0, []byte("return code: 100\n")}, process.ErrAgentLoad},
		{"class path", response{0, []byte("return code: 101\n")}, process.ErrAgentLoad},
		{"init failed", response{0, []byte("return code: 102\n")}, process.ErrAgentInit},
		{"unknown code", response{0, []byte("return code: 7\n")}, process.ErrAgentLoad},
		{"empty", response{0, nil}, process.ErrAgentLoad},
		{"exception", response{0, []byte("com.sun.tools.attach.AgentLoadException: boom")}, process.ErrAgentLoad},
		{"bad version", response{statusBadVersion, nil}, process.ErrAgentIO},
		{"refused", response{1, []byte("Could not find agent library instrument")}, process.ErrAgentLoad},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := loadResult(&tc.resp)
			if tc.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestAgentArgument(t *testing.T) {
	assert.Equal(t, "/a.jar", agentArgument("/a.jar", ""))
	assert.Equal(t, "/a.jar=k=v", agentArgument("/a.jar", "k=v"))
}
