package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceFeed = `<services>
  <service id="s1" sid="x">
    <name>Meter check</name>
    <description>Yearly <b>verification</b></description>
  </service>
</services>`

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFlattenFile(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "services.v2.xml")
	require.NoError(t, os.WriteFile(feed, []byte(serviceFeed), 0o644))
	out := filepath.Join(dir, "out")

	stdout, stderr, err := runCmd(t, "", "--out", out, feed)
	require.NoError(t, err, stderr)

	path := strings.TrimSpace(stdout)
	assert.Equal(t, filepath.Join(out, "services_v2.csv"), path)
	assert.Contains(t, stderr, "service: 1 records")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "verification_service")
	assert.Contains(t, string(data), "Meter check")
}

func TestFlattenStdin(t *testing.T) {
	out := t.TempDir()

	stdout, _, err := runCmd(t, serviceFeed, "--out", out, "--dialect", "service", "-")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "stdin.csv"), strings.TrimSpace(stdout))
}

func TestFlattenErrors(t *testing.T) {
	out := t.TempDir()

	_, stderr, err := runCmd(t, "<html><body>down</body></html>", "--out", out, "-")
	require.Error(t, err)
	assert.Contains(t, stderr, "FEED001")

	_, stderr, err = runCmd(t, serviceFeed, "--out", out, "--dialect", "csv", "-")
	require.Error(t, err)
	assert.Contains(t, stderr, "FEED004")

	_, stderr, err = runCmd(t, serviceFeed, "--out", out, "--max-size", "10", "-")
	require.Error(t, err)
	assert.Contains(t, stderr, "FILE001")

	_, _, err = runCmd(t, "")
	assert.Error(t, err, "a file argument is required")
}
