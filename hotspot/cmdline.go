package hotspot

import (
	"strings"
)

// launcher options whose value is the following argument
var optionsWithValue = map[string]bool{
	"-cp":                    true,
	"-classpath":             true,
	"--class-path":           true,
	"-p":                     true,
	"--module-path":          true,
	"--upgrade-module-path":  true,
	"--add-modules":          true,
	"--add-opens":            true,
	"--add-exports":          true,
	"--add-reads":            true,
	"--patch-module":         true,
	"--limit-modules":        true,
	"--enable-native-access": true,
}

// DisplayName derives the launcher's notion of the java command from a
// process argument vector: the main class, jar or module followed by the
// program arguments. JVM options are skipped. Returns "" when nothing
// follows the options.
func DisplayName(args []string) string {
	if len(args) < 2 {
		return ""
	}

	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-jar", arg == "-m", arg == "--module":
			return strings.Join(args[i+1:], " ")
		case strings.HasPrefix(arg, "--module="):
			return strings.Join(append([]string{strings.TrimPrefix(arg, "--module=")}, args[i+1:]...), " ")
		case optionsWithValue[arg]:
			i++
		case strings.HasPrefix(arg, "-"):
		default:
			return strings.Join(args[i:], " ")
		}
	}

	return ""
}
