package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RecordsCall(t *testing.T) {
	record := filepath.Join(t.TempDir(), "calls")
	t.Setenv("FAKE_MIDCLT_RECORD", record)
	t.Setenv("LD_LIBRARY_PATH", "/usr/local/lib")

	var stdout, stderr bytes.Buffer
	code := run([]string{"call", "mdnsadvertise.start"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Equal(t, "null\n", stdout.String())

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t, "call mdnsadvertise.start LD_LIBRARY_PATH=/usr/local/lib\n", string(data))
}

func TestRun_ExitCodeFromEnvironment(t *testing.T) {
	t.Setenv("FAKE_MIDCLT_EXIT_CODE", "3")

	var stdout, stderr bytes.Buffer
	code := run([]string{"call", "mdnsadvertise.restart"}, &stdout, &stderr)

	assert.Equal(t, 3, code)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run([]string{"ping"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: fakemidclt")
}
