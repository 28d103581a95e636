// Package runner executes a child process with CPU-time, address-space,
// and core-dump resource limits, and captures its stdout, stderr, and exit
// status. It is the sole place in the engine that spawns a subprocess to
// evaluate anything; every Environment's evaluation path funnels through
// it via internal/evaluation.
//
// Go's os/exec has no equivalent of Python's subprocess preexec_fn, so
// resource limits cannot be installed between fork and exec from the
// parent process directly. Instead Run re-executes the calling binary
// itself with a hidden environment-variable signal; main() checks for that
// signal before doing anything else (see MaybeRunTrampoline) and, if
// present, installs the limits with golang.org/x/sys/unix.Setrlimit and
// then syscall.Execs the real target command, replacing its own image. The
// parent only ever talks to this trampoline process through the normal
// os/exec stdio plumbing.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// trampolineEnvVar, when set to "1" in a child's environment, tells
	// MaybeRunTrampoline to install resource limits and exec the real
	// command instead of letting the calling binary's normal main run.
	trampolineEnvVar = "MACHETLI_RUNNER_TRAMPOLINE"

	envCPUSoftSeconds = "MACHETLI_RUNNER_CPU_SOFT_SECONDS"
	envCPUHardSeconds = "MACHETLI_RUNNER_CPU_HARD_SECONDS"
	envAddressSpace   = "MACHETLI_RUNNER_ADDRESS_SPACE_BYTES"
)

// cpuLimitGraceSeconds is the gap between the CPU soft and hard limits. A
// well-behaved evaluator can catch SIGXCPU when the soft limit fires and
// exit cleanly with machetli.ExitCodeTimeout before the hard limit kills it
// outright.
const cpuLimitGraceSeconds = 5

// Result captures the outcome of one Run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	// Signal is non-zero when the process was terminated by a signal
	// instead of exiting on its own (for example SIGXCPU from the CPU
	// resource limit, or SIGKILL from an OOM kill). ExitCode is still
	// populated in that case using the conventional 128+signal encoding,
	// for callers that only look at the numeric code.
	Signal syscall.Signal
}

// Run spawns command as a child with inherited environment, plus a CPU
// time limit of timeLimit seconds (hard limit timeLimit+5s), an
// address-space limit of memoryLimitMiB mebibytes, and a zero core-dump
// limit. If inputFile is non-empty, its contents are written to the
// child's stdin and then stdin is closed; otherwise stdin is closed
// immediately. stdout and stderr are captured in full.
//
// Run returns an error only when the command itself could not be started
// (for example the executable does not exist); a non-zero or
// signal-terminated exit is reported through Result, not through err.
func Run(ctx context.Context, command []string, timeLimit time.Duration, memoryLimitMiB int64, inputFile string) (Result, error) {
	if len(command) == 0 {
		return Result{}, fmt.Errorf("runner: empty command")
	}

	resolved, err := exec.LookPath(command[0])
	if err != nil {
		return Result{}, fmt.Errorf("runner: executable not found: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		return Result{}, fmt.Errorf("runner: cannot locate own executable for trampoline: %w", err)
	}

	args := append([]string{resolved}, command[1:]...)
	cmd := exec.CommandContext(ctx, self, args...)
	cmd.Env = append(os.Environ(),
		trampolineEnvVar+"=1",
		fmt.Sprintf("%s=%d", envCPUSoftSeconds, int64(timeLimit.Seconds())),
		fmt.Sprintf("%s=%d", envCPUHardSeconds, int64(timeLimit.Seconds())+cpuLimitGraceSeconds),
		fmt.Sprintf("%s=%d", envAddressSpace, memoryLimitMiB*1024*1024),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if inputFile != "" {
		data, readErr := os.ReadFile(inputFile)
		if readErr != nil {
			return Result{}, fmt.Errorf("runner: reading input file: %w", readErr)
		}
		cmd.Stdin = bytes.NewReader(data)
	}

	runErr := cmd.Run()

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if runErr == nil {
		result.ExitCode = 0
		return result, nil
	}

	exitErr, ok := runErr.(*exec.ExitError)
	if !ok {
		// The process could not be started at all (distinct from the
		// LookPath check above only in a race where the binary
		// disappeared between the check and exec).
		return Result{}, fmt.Errorf("runner: starting command: %w", runErr)
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && status.Signaled() {
		result.Signal = status.Signal()
		result.ExitCode = 128 + int(status.Signal())
		return result, nil
	}

	result.ExitCode = exitErr.ExitCode()
	return result, nil
}

// MaybeRunTrampoline must be called at the very start of main, before any
// flag or command-line parsing. If the current process was launched by Run
// as a resource-limited child, it installs the requested rlimits and execs
// the real target command (os.Args[1:]), never returning on success. If
// the trampoline environment variable is not set, it returns immediately
// and the caller's normal startup proceeds.
func MaybeRunTrampoline() {
	if os.Getenv(trampolineEnvVar) != "1" {
		return
	}

	cpuSoft := mustParseEnvInt(envCPUSoftSeconds)
	cpuHard := mustParseEnvInt(envCPUHardSeconds)
	addressSpace := mustParseEnvInt(envAddressSpace)

	if cpuSoft > 0 {
		setRlimit(unix.RLIMIT_CPU, uint64(cpuSoft), uint64(cpuHard))
	}
	if addressSpace > 0 {
		setRlimit(unix.RLIMIT_AS, uint64(addressSpace), uint64(addressSpace))
	}
	setRlimit(unix.RLIMIT_CORE, 0, 0)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "runner trampoline: no target command given")
		os.Exit(127)
	}

	env := os.Environ()
	if err := syscall.Exec(os.Args[1], os.Args[1:], env); err != nil {
		fmt.Fprintf(os.Stderr, "runner trampoline: exec %q failed: %v\n", os.Args[1], err)
		os.Exit(127)
	}
}

func mustParseEnvInt(name string) int64 {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner trampoline: malformed %s=%q\n", name, v)
		os.Exit(127)
	}
	return n
}
