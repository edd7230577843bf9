package hotspot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"java"}, ""},
		{[]string{"java", "-Xmx1g", "com.example.Main", "a", "b"}, "com.example.Main a b"},
		{[]string{"java", "-cp", "lib/*", "-Dx=y", "com.example.Main"}, "com.example.Main"},
		{[]string{"java", "-jar", "app.jar", "--debug"}, "app.jar --debug"},
		{[]string{"java", "-p", "mods", "-m", "app/com.example.Main"}, "app/com.example.Main"},
		{[]string{"java", "--module=app/com.example.Main", "x"}, "app/com.example.Main x"},
		{[]string{"java", "-version"}, ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DisplayName(tc.args), "%q", tc.args)
	}
}
