//go:build !windows

package processtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// StubClient is a shell script standing in for the management client. It
// records its argument vector and one environment variable, prints a line to
// stdout and exits with a fixed status.
type StubClient struct {
	Path     string
	argsFile string
	envFile  string
}

func NewStubClient(t testing.TB, exitCode int, envKey string) *StubClient {
	t.Helper()

	dir := t.TempDir()
	stub := &StubClient{
		Path:     filepath.Join(dir, "midclt"),
		argsFile: filepath.Join(dir, "args"),
		envFile:  filepath.Join(dir, "env"),
	}

	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > '%s'
if [ -n "${%s+x}" ]; then printf '%%s' "$%s" > '%s'; fi
echo "stub output"
exit %d
`, stub.argsFile, envKey, envKey, stub.envFile, exitCode)

	if err := os.WriteFile(stub.Path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write stub client: %v", err)
	}

	return stub
}

// Invoked reports whether the stub ran at least once.
func (s *StubClient) Invoked() bool {
	_, err := os.Stat(s.argsFile)
	return err == nil
}

// Args returns the argument vector of the last invocation.
func (s *StubClient) Args(t testing.TB) []string {
	t.Helper()

	data, err := os.ReadFile(s.argsFile)
	if err != nil {
		t.Fatalf("stub client was not invoked: %v", err)
	}
	return strings.Fields(string(data))
}

// Env returns the recorded variable and whether it was set in the child.
func (s *StubClient) Env(t testing.TB) (string, bool) {
	t.Helper()

	data, err := os.ReadFile(s.envFile)
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("failed to read stub env: %v", err)
	}
	return string(data), true
}
