package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ytclip/internal/logging"
)

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	oldLog := filepath.Join(dir, "ytclip-old.log")
	freshLog := filepath.Join(dir, "ytclip-fresh.log")
	current := filepath.Join(dir, "ytclip.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{oldLog, freshLog, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{oldLog, current, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{Dir: dir, Pattern: "ytclip*.log", Exclude: []string{current}})
	if result.Removed != 1 || result.FreedBytes != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, err=%v", err)
	}
	for _, path := range []string{freshLog, current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", filepath.Base(path), err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ytclip-old.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(0, 0, -365)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	if result := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir}); result.Removed != 0 {
		t.Fatalf("expected no removals, got %+v", result)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to remain: %v", err)
	}
}
