package table

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tbl := New(
		Column{Header: "PID"},
		Column{Header: "MAIN CLASS", MinWidth: 12},
		Column{Header: "VERSION"},
	)
	tbl.AddRow("42", "com.example.Main", "21")
	tbl.AddRow("7", "", "17")
	tbl.AddRow("1234")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))

	want := "" +
		"PID  MAIN CLASS       VERSION\n" +
		"---- ---------------- -------\n" +
		"42   com.example.Main 21\n" +
		"7    -                17\n" +
		"1234 -                -\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 3, tbl.Len())
}

func TestRender_FormatKeepsAlignment(t *testing.T) {
	tbl := New(Column{Header: "VM", FormatFunc: Unknown}, Column{Header: "X"})
	tbl.AddRow("?", "a")
	tbl.AddRow("HotSpot", "b")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, Gray("?")+"       a", string(lines[2]))
	assert.Equal(t, "HotSpot b", string(lines[3]))
}

func TestVisibleLength(t *testing.T) {
	assert.Equal(t, 3, visibleLength(Gray("abc")))
	assert.Equal(t, 4, visibleLength("café"))
}
