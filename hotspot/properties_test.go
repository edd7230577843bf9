package hotspot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProperties(t *testing.T) {
	data := []byte(`#Sat Oct 19 12:00:00 UTC 2026
! another comment
java.version=21.0.2
java.vm.name=OpenJDK 64-Bit Server VM
sun.java.command = com.example.Main --port 8080
path.separator=:
key\ with\ spaces:value
line.separator=\n
user.dir   /home/app
multi=first \
      second
unicode=café
empty=
`)

	props, err := ParseProperties(data)
	require.NoError(t, err)

	assert.Equal(t, "21.0.2", props["java.version"])
	assert.Equal(t, "OpenJDK 64-Bit Server VM", props["java.vm.name"])
	assert.Equal(t, "com.example.Main --port 8080", props["sun.java.command"])
	assert.Equal(t, ":", props["path.separator"])
	assert.Equal(t, "value", props["key with spaces"])
	assert.Equal(t, "\n", props["line.separator"])
	assert.Equal(t, "/home/app", props["user.dir"])
	assert.Equal(t, "first second", props["multi"])
	assert.Equal(t, "café", props["unicode"])
	assert.Equal(t, "", props["empty"])
	assert.Len(t, props, 10)
}

func TestParseProperties_TooLongLine(t *testing.T) {
	data := append([]byte("a=1\nb="), bytes.Repeat([]byte("x"), 5*1024*1024)...)

	props, err := ParseProperties(data)
	assert.Error(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, props)
}

func TestParseProperties_Empty(t *testing.T) {
	props, err := ParseProperties(nil)
	require.NoError(t, err)
	assert.Empty(t, props)
}
