// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/linkfeed/internal/observability"
)

// resetForTest restores package state between tests.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	original := newBrowserSession
	t.Cleanup(func() {
		newBrowserSession = original
		observability.ResetForTest()
	})
}

// writeConfig writes a YAML config into a temp dir with logging kept out of
// the working directory, and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	logging := "logger:\n  level: error\n  format: json\n  log_file: " + filepath.Join(dir, "linkfeed.log") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(logging+body), 0o644))
	return path
}

// execute runs a fresh command tree with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

