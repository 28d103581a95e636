package runner

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// TestMain lets this test binary double as its own trampoline target, the
// same way the real machetli binary does in cmd/machetli/main.go.
func TestMain(m *testing.M) {
	MaybeRunTrampoline()
	os.Exit(m.Run())
}

func TestRun_CapturesStdoutAndExitCode(t *testing.T) {
	result, err := Run(context.Background(), []string{"sh", "-c", "echo hello; exit 3"}, time.Second, 64, "")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "hello" {
		t.Fatalf("stdout = %q, want %q", got, "hello")
	}
	if result.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestRun_CapturesStderr(t *testing.T) {
	result, err := Run(context.Background(), []string{"sh", "-c", "echo oops 1>&2"}, time.Second, 64, "")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stderr)); got != "oops" {
		t.Fatalf("stderr = %q, want %q", got, "oops")
	}
}

func TestRun_WritesInputFileToStdin(t *testing.T) {
	dir := t.TempDir()
	inputPath := dir + "/input.txt"
	if err := os.WriteFile(inputPath, []byte("piped data\n"), 0o644); err != nil {
		t.Fatalf("writing input fixture: %v", err)
	}

	result, err := Run(context.Background(), []string{"cat"}, time.Second, 64, inputPath)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "piped data" {
		t.Fatalf("stdout = %q, want %q", got, "piped data")
	}
}

func TestRun_MissingExecutableIsFatal(t *testing.T) {
	_, err := Run(context.Background(), []string{"machetli-nonexistent-command-xyz"}, time.Second, 64, "")
	if err == nil {
		t.Fatal("expected an error for a missing executable")
	}
}

func TestRun_CPUTimeLimitKillsBusyLoop(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	// A tight busy loop in a subshell burns CPU time fast enough that a
	// 1-second soft limit plus 5-second grace reliably trips within the
	// test's own timeout.
	result, err := Run(context.Background(), []string{"sh", "-c", "i=0; while true; do i=$((i+1)); done"}, time.Second, 64, "")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Signal == 0 {
		t.Fatalf("expected the busy loop to be killed by a signal, got exit code %d", result.ExitCode)
	}
}
