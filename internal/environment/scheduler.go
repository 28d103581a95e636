package environment

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/aibasel/machetli-go/internal/machetlierr"
)

// TaskState is a scheduler-reported status for a single array-job task.
type TaskState string

const (
	StatePending   TaskState = "PENDING"
	StateRunning   TaskState = "RUNNING"
	StateRequeued  TaskState = "REQUEUED"
	StateSuspended TaskState = "SUSPENDED"
	StateCompleted TaskState = "COMPLETED"
)

// busy returns true for a state under which the task has not yet
// terminated.
func (s TaskState) busy() bool {
	switch s {
	case StatePending, StateRunning, StateRequeued, StateSuspended:
		return true
	default:
		return false
	}
}

// done returns true for a state indicating the task terminated
// successfully from the scheduler's point of view (says nothing about the
// evaluator's own verdict, which lives in the task's exit_code file).
func (s TaskState) done() bool {
	return s == StateCompleted
}

// critical returns true for any state that is neither busy nor done --
// FAILED, CANCELLED, TIMEOUT, NODE_FAIL, and anything else the scheduler
// reports.
func (s TaskState) critical() bool {
	return !s.busy() && !s.done()
}

// Scheduler abstracts the two commands the cluster environment depends on
// so tests can fake both without shelling out to a real sbatch/sacct.
// Concrete implementations grounded on machetli's reference workflow:
// Submit reads a job-spec file and forwards the named environment
// variables, returning the parsed job ID; Query reports the per-task state
// of a previously submitted array job.
type Scheduler interface {
	Submit(ctx context.Context, scriptPath string, exportVars []string) (jobID string, err error)
	Query(ctx context.Context, jobID string, numTasks int) (map[int]TaskState, error)
}

// SlurmScheduler drives real sbatch/sacct binaries on the machine it runs
// on. SubmitCmd/QueryCmd default to "sbatch"/"sacct" and are overridable
// for environments with wrapped scheduler binaries.
type SlurmScheduler struct {
	SubmitCmd string
	QueryCmd  string
}

func NewSlurmScheduler() *SlurmScheduler {
	return &SlurmScheduler{SubmitCmd: "sbatch", QueryCmd: "sacct"}
}

var submittedJobPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// Submit invokes `sbatch --export=VAR1,VAR2,... scriptPath` and parses the
// job ID out of "Submitted batch job <id>", matching the reference's
// re.match(r"Submitted batch job (\d*)").
func (s *SlurmScheduler) Submit(ctx context.Context, scriptPath string, exportVars []string) (string, error) {
	cmd := exec.CommandContext(ctx, s.SubmitCmd, "--export", strings.Join(exportVars, ","), scriptPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &machetlierr.SubmissionError{Cause: fmt.Errorf("%s: %w: %s", s.SubmitCmd, err, stderr.String())}
	}

	match := submittedJobPattern.FindStringSubmatch(stdout.String())
	if match == nil {
		return "", &machetlierr.SubmissionError{Cause: fmt.Errorf("no job ID found in %s output: %q", s.SubmitCmd, stdout.String())}
	}
	return match[1], nil
}

var taskStatePattern = regexp.MustCompile(`^\s*\d+_(\d+)\+?\s+(\S+?)\+?\s*$`)

// Query invokes `sacct -j <id> --format=jobid,state --noheader --allocations`
// and parses lines matching `^\s*<job>_<task>\+?\s+<STATE>\+?\s*$`.
func (s *SlurmScheduler) Query(ctx context.Context, jobID string, numTasks int) (map[int]TaskState, error) {
	cmd := exec.CommandContext(ctx, s.QueryCmd, "-j", jobID, "--format=jobid,state", "--noheader", "--allocations")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &machetlierr.PollingError{Cause: fmt.Errorf("%s: %w: %s", s.QueryCmd, err, stderr.String())}
	}

	states := make(map[int]TaskState, numTasks)
	for _, line := range strings.Split(stdout.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		match := taskStatePattern.FindStringSubmatch(line)
		if match == nil {
			return nil, &machetlierr.PollingError{Cause: fmt.Errorf("malformed %s line: %q", s.QueryCmd, line)}
		}
		taskID, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, &machetlierr.PollingError{Cause: fmt.Errorf("malformed task index in %s line: %q", s.QueryCmd, line)}
		}
		states[taskID] = TaskState(match[2])
	}
	return states, nil
}
