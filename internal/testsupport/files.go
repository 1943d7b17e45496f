package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteArtifact creates path, and any missing parents, holding size filler
// bytes. A positive age backdates the file and its parent directory so
// expiry sweeps treat them as stale.
func WriteArtifact(t testing.TB, path string, size int, age time.Duration) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, max(size, 0)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if age <= 0 {
		return
	}
	stamp := time.Now().Add(-age)
	for _, p := range []string{path, filepath.Dir(path)} {
		if err := os.Chtimes(p, stamp, stamp); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}
}
