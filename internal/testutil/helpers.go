package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"repdata/internal/common"
)

// TestHelper provides common test utilities
type TestHelper struct {
	t *testing.T
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// WriteFile writes content to a file in the given directory
func (h *TestHelper) WriteFile(dir, filename, content string) string {
	h.t.Helper()
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionSecure); err != nil {
		h.t.Fatalf("Failed to create directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), common.FilePermissionSecure); err != nil {
		h.t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// CaptureStdout captures stdout during function execution
func (h *TestHelper) CaptureStdout(f func()) string {
	h.t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()

	f()

	w.Close()
	os.Stdout = old
	return <-done
}

// SQLiteConfig writes a config file whose source and destination both point
// at the sqlite database dbPath, and returns the config path.
func (h *TestHelper) SQLiteConfig(dir, dbPath string) string {
	h.t.Helper()
	return h.WriteFile(dir, "config.yaml", `source:
  dialect: sqlite
  dsn: `+dbPath+`
  quotes_table: quotes
  outbounds_table: outbounds
destination:
  dialect: sqlite
  dsn: `+dbPath+`
  repdata_table: repdata
  attempt_details_table: attempt_details
  batch_size: 50
pipeline:
  strategy: memory
  organic_filter: last-entry-or-unbound
  ordering_key: created
  unknown_label: Unknown
logging:
  level: error
  format: text
`)
}
