package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ytclip/internal/services/process"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunForwardsStdoutAndStderr(t *testing.T) {
	script := writeScript(t, "echo out-one\necho err-one >&2\necho out-two\n")
	var mu sync.Mutex
	var stdout, stderr []string
	err := process.NewExecutor().Run(context.Background(), script, nil,
		func(line string) { mu.Lock(); stdout = append(stdout, line); mu.Unlock() },
		func(line string) { mu.Lock(); stderr = append(stderr, line); mu.Unlock() },
	)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(stdout) != 2 || stdout[0] != "out-one" || stdout[1] != "out-two" {
		t.Fatalf("unexpected stdout lines: %v", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "err-one" {
		t.Fatalf("unexpected stderr lines: %v", stderr)
	}
}

func TestRunReportsExitCodeWithTail(t *testing.T) {
	script := writeScript(t, "echo 'ERROR: Video unavailable' >&2\nexit 3\n")
	err := process.NewExecutor().Run(context.Background(), script, nil, nil, nil)
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.Code)
	}
	if len(exitErr.Tail) != 1 || exitErr.Tail[0] != "ERROR: Video unavailable" {
		t.Fatalf("unexpected tail: %v", exitErr.Tail)
	}
}

func TestRunCancelledContextKillsProcess(t *testing.T) {
	script := writeScript(t, "sleep 30 &\nwait\n")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := process.NewExecutor().Run(ctx, script, nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("process was not killed on cancellation")
	}
}

func TestRunMissingBinary(t *testing.T) {
	err := process.NewExecutor().Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}
