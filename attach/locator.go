package attach

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AgentLocator resolves the local path of the agent payload
type AgentLocator interface {
	Resolve() (string, error)
}

// LocatorFunc adapts a function to an AgentLocator
type LocatorFunc func() (string, error)

func (f LocatorFunc) Resolve() (string, error) {
	return f()
}

// FileLocator resolves a configured agent path
type FileLocator struct {
	Path string
}

// Resolve returns Path made absolute, failing if it is not a regular file
func (l FileLocator) Resolve() (string, error) {
	if l.Path == "" {
		return "", errors.New("agent path not configured")
	}
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", l.Path, err)
	}
	return checkFile(abs)
}

// ExecutableLocator finds the agent next to the running executable
type ExecutableLocator struct {
	Name string
}

// Resolve returns the path of Name in the executable's directory
func (l ExecutableLocator) Resolve() (string, error) {
	if l.Name == "" {
		return "", errors.New("agent name not configured")
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return checkFile(filepath.Join(filepath.Dir(exe), l.Name))
}

func checkFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	return path, nil
}
