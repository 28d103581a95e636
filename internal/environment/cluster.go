package environment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/aibasel/machetli-go/internal/evaluation"
	"github.com/aibasel/machetli-go/internal/machetlierr"
	"github.com/aibasel/machetli-go/internal/statestore"
	"github.com/aibasel/machetli-go/pkg/machetli"
)

var whitespacePattern = regexp.MustCompile(`\s`)

// evalTask is one array-job task: a single successor materialized into its
// own run directory.
type evalTask struct {
	index     int
	dir       string
	successor machetli.Successor
	state     TaskState
}

// evalBatch is the in-flight array job for one Submit/WaitUntilFinished/
// GetImprovingSuccessor cycle.
type evalBatch struct {
	jobID string
	tasks []*evalTask
}

// ClusterOptions configures a Cluster environment. Partition, QOS, and
// MemoryPerCPU have no defaults here -- concrete cluster deployments are
// expected to supply their own defaults the way the reference's
// BaselSlurmEnvironment subclass does for DEFAULT_PARTITION et al.
type ClusterOptions struct {
	EvalDir       string
	Scheduler     Scheduler
	Store         *statestore.Store
	Partition     string
	QOS           string
	MemoryPerCPU  string
	CPUsPerTask   int
	Nice          int
	Export        []string
	Setup         string
	ExtraOptions  string
	BatchSize     int
	Deterministic bool

	PollingInterval    time.Duration
	FilesystemInterval time.Duration
	FilesystemLimit    time.Duration
	StateFilename      string
}

// Cluster submits one array job per batch to a Scheduler and polls a shared
// filesystem for results, following the six-step workflow: materialize,
// render, submit, poll, handle critical tasks, collect.
type Cluster struct {
	scheduler Scheduler
	store     *statestore.Store

	evalDir      string
	scriptDir    string
	partition    string
	qos          string
	memoryPerCPU string
	cpusPerTask  int
	nice         int
	export       []string
	setup        string
	extraOptions string

	batchSize             int
	allowNondeterministic bool

	pollingInterval    time.Duration
	fsInterval         time.Duration
	fsLimit            time.Duration
	stateFilename      string

	batchCounter int
	phase        machetli.Phase
	currentJob   *evalBatch

	// deterministicWinner is the task collectSequential selected while
	// still inside WaitUntilFinished; GetImprovingSuccessor only reads it
	// back, so a deterministic-mode collection failure aborts the search
	// from WaitUntilFinished's own error return instead of being deferred.
	deterministicWinner *evalTask

	// truncatedByCritical records, for the batch currently being
	// collected, whether a critical scheduler state truncated it (see §8
	// scenario 5): in that case an all-FAILURE collection result aborts
	// the search rather than merely reporting no winner.
	truncatedByCritical bool
}

// NewCluster validates opts and returns a ready Cluster environment. A
// whitespace character anywhere in EvalDir, or a malformed MemoryPerCPU,
// is a fatal misconfiguration, detected here rather than at first Submit.
func NewCluster(opts ClusterOptions) (*Cluster, error) {
	if whitespacePattern.MatchString(opts.EvalDir) {
		return nil, &machetlierr.ConfigurationError{Message: "evaluation root must not contain whitespace characters"}
	}
	if _, err := parseMemoryKiB(opts.MemoryPerCPU); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.PollingInterval <= 0 {
		opts.PollingInterval = 15 * time.Second
	}
	if opts.FilesystemInterval <= 0 {
		opts.FilesystemInterval = 3 * time.Second
	}
	if opts.FilesystemLimit <= 0 {
		opts.FilesystemLimit = 60 * time.Second
	}
	if opts.StateFilename == "" {
		opts.StateFilename = "state.bin"
	}
	if opts.Store == nil {
		opts.Store = statestore.New(nil)
	}

	if err := os.MkdirAll(opts.EvalDir, 0o755); err != nil {
		return nil, &machetlierr.ConfigurationError{Message: fmt.Sprintf("creating eval dir: %v", err)}
	}
	opts.Store.WaitFor([]string{opts.EvalDir}, opts.FilesystemInterval, opts.FilesystemLimit)

	return &Cluster{
		scheduler:             opts.Scheduler,
		store:                 opts.Store,
		evalDir:               opts.EvalDir,
		scriptDir:             opts.EvalDir,
		partition:             opts.Partition,
		qos:                   opts.QOS,
		memoryPerCPU:          opts.MemoryPerCPU,
		cpusPerTask:           max(opts.CPUsPerTask, 1),
		nice:                  opts.Nice,
		export:                opts.Export,
		setup:                 opts.Setup,
		extraOptions:          opts.ExtraOptions,
		batchSize:             opts.BatchSize,
		allowNondeterministic: !opts.Deterministic,
		pollingInterval:       opts.PollingInterval,
		fsInterval:            opts.FilesystemInterval,
		fsLimit:               opts.FilesystemLimit,
		stateFilename:         opts.StateFilename,
	}, nil
}

func (e *Cluster) BatchSize() int { return e.batchSize }

// Submit materializes the batch's run directories, renders and submits the
// array-job script, and records the returned job ID.
func (e *Cluster) Submit(ctx context.Context, batch machetli.Batch, evaluatorPath string) error {
	if e.phase != machetli.PhaseIdle {
		panic("environment: Submit called while a batch is in flight")
	}

	e.batchCounter++
	batchName := fmt.Sprintf("batch_%03d", e.batchCounter)
	batchDir := filepath.Join(e.evalDir, batchName)

	tasks := make([]*evalTask, 0, len(batch))
	dirs := make([]string, 0, len(batch))
	for i, succ := range batch {
		dir := filepath.Join(batchDir, fmt.Sprintf("%03d", i))
		if _, err := os.Stat(dir); err == nil {
			return &machetlierr.SubmissionError{Cause: fmt.Errorf("run directory %s already exists", dir)}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &machetlierr.SubmissionError{Cause: fmt.Errorf("creating run directory %s: %w", dir, err)}
		}
		statePath := filepath.Join(dir, e.stateFilename)
		if err := e.store.Write(succ.State, statePath); err != nil {
			return &machetlierr.SubmissionError{Cause: fmt.Errorf("writing state for task %d: %w", i, err)}
		}
		tasks = append(tasks, &evalTask{index: i, dir: dir, successor: succ})
		dirs = append(dirs, dir)
	}

	if !e.store.WaitFor(dirs, e.fsInterval, e.fsLimit) {
		return &machetlierr.FilesystemTimeout{Path: strings.Join(dirs, ", ")}
	}

	memKiB, err := parseMemoryKiB(e.memoryPerCPU)
	if err != nil {
		return err
	}
	softLimitKiB := int64(0.98 * float64(e.cpusPerTask) * float64(memKiB))

	jobName := fmt.Sprintf("%s_%s", strings.TrimSuffix(filepath.Base(evaluatorPath), filepath.Ext(evaluatorPath)), batchName)
	script, err := renderJobSpec(jobSpecParams{
		JobName:            jobName,
		LastTaskIndex:      len(batch) - 1,
		Partition:          e.partition,
		QOS:                e.qos,
		CPUsPerTask:        e.cpusPerTask,
		MemoryPerCPU:       e.memoryPerCPU,
		Nice:               e.nice,
		LogFile:            "slurm.log",
		ErrFile:            "slurm.err",
		MailType:           "NONE",
		ExtraOptions:       e.extraOptions,
		EnvironmentSetup:   e.setup,
		SoftMemoryLimitKiB: softLimitKiB,
		RunDirs:            strings.Join(dirs, " "),
		Evaluator:          evaluatorPath,
		StateFilename:      e.stateFilename,
	})
	if err != nil {
		return &machetlierr.ConfigurationError{Message: fmt.Sprintf("rendering job spec: %v", err)}
	}

	scriptPath := filepath.Join(e.scriptDir, "slurm-array-job.sbatch")
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return &machetlierr.SubmissionError{Cause: fmt.Errorf("writing job spec: %w", err)}
	}

	jobID, err := e.scheduler.Submit(ctx, scriptPath, e.export)
	if err != nil {
		return err
	}

	e.currentJob = &evalBatch{jobID: jobID, tasks: tasks}
	e.phase = machetli.PhaseSubmitted
	return nil
}

// WaitUntilFinished polls the scheduler every pollingInterval until no task
// is left in a busy state, then applies the critical-task policy governed
// by allowNondeterministic: in nondeterministic mode critical tasks are
// excluded from the surviving set; in deterministic mode the first
// critical task in index order truncates the batch, aborting it entirely
// if that task is at index 0, or if it is at a later index and none of the
// earlier, untruncated tasks succeeded (§8 scenario 5: a truncated batch
// with no earlier SUCCESS aborts the search, it does not just report no
// winner and move on). In deterministic mode this also performs the
// sequential exit_code collection (collectSequential) before returning, so
// a State Store filesystem timeout aborts the search from here -- the
// blocking step -- rather than being deferred to a later call that might
// never come (e.g. when this is the pipeline's last batch).
func (e *Cluster) WaitUntilFinished(ctx context.Context) error {
	if e.phase != machetli.PhaseSubmitted {
		panic("environment: WaitUntilFinished called out of phase")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		timer := time.NewTimer(e.pollingInterval)
		<-timer.C

		states, err := e.scheduler.Query(ctx, e.currentJob.jobID, len(e.currentJob.tasks))
		if err != nil {
			e.phase = machetli.PhaseIdle
			e.currentJob = nil
			return err
		}

		busy := 0
		firstCritical := -1
		for i, t := range e.currentJob.tasks {
			st, reported := states[t.index]
			if !reported {
				busy++
				continue
			}
			t.state = st
			switch {
			case st.busy():
				busy++
			case st.critical() && firstCritical == -1:
				firstCritical = i
			}
		}
		if busy > 0 {
			continue
		}

		if e.allowNondeterministic {
			survivors := e.currentJob.tasks[:0]
			for _, t := range e.currentJob.tasks {
				if !t.state.critical() {
					survivors = append(survivors, t)
				}
			}
			e.currentJob.tasks = survivors
		} else if firstCritical == 0 {
			jobID := e.currentJob.jobID
			e.phase = machetli.PhaseIdle
			e.currentJob = nil
			return &machetlierr.EvaluatorError{Cause: fmt.Errorf("job %s: task 0 entered a critical scheduler state, aborting batch", jobID)}
		} else if firstCritical > 0 {
			e.currentJob.tasks = e.currentJob.tasks[:firstCritical]
			e.truncatedByCritical = true
		}
		break
	}

	e.deterministicWinner = nil
	if !e.allowNondeterministic {
		survivors := e.currentJob.tasks
		winner, err := e.collectSequential(survivors)
		if err != nil {
			e.phase = machetli.PhaseIdle
			e.currentJob = nil
			e.truncatedByCritical = false
			return err
		}
		// §8 scenario 5: when a critical task truncated the batch,
		// winner is the lowest-indexed survivor if SUCCESS, otherwise
		// the search aborts -- the critical task is not simply
		// "skipped" the way nondeterministic mode skips it.
		if winner == nil && e.truncatedByCritical {
			jobID := e.currentJob.jobID
			e.phase = machetli.PhaseIdle
			e.currentJob = nil
			e.truncatedByCritical = false
			return &machetlierr.EvaluatorError{Cause: fmt.Errorf("job %s: critical scheduler state truncated the batch and no earlier task succeeded, aborting batch", jobID)}
		}
		e.truncatedByCritical = false
		e.deterministicWinner = winner
	}

	e.phase = machetli.PhaseWaited
	return nil
}

// GetImprovingSuccessor walks the surviving tasks and returns the winning
// successor per the active commit policy. In deterministic mode the winner
// was already determined by WaitUntilFinished's sequential exit_code
// collection (in index order, matching sequential evaluation); this just
// reads it back. In nondeterministic mode, all survivors' exit_code files
// are probed concurrently with a bounded conc pool, and whichever reports
// SUCCESS first wins -- a real race on wall-clock arrival, not index.
func (e *Cluster) GetImprovingSuccessor() (machetli.Successor, bool) {
	if e.phase != machetli.PhaseWaited {
		panic("environment: GetImprovingSuccessor called out of phase")
	}
	e.phase = machetli.PhaseIdle
	survivors := e.currentJob.tasks
	e.currentJob = nil

	if len(survivors) == 0 {
		return machetli.Successor{}, false
	}

	if e.allowNondeterministic {
		winner := e.collectRace(survivors)
		if winner == nil {
			return machetli.Successor{}, false
		}
		return winner.successor, true
	}

	winner := e.deterministicWinner
	e.deterministicWinner = nil
	if winner == nil {
		return machetli.Successor{}, false
	}
	return winner.successor, true
}

func (e *Cluster) collectSequential(tasks []*evalTask) (*evalTask, error) {
	for _, t := range tasks {
		path := filepath.Join(t.dir, "exit_code")
		if !e.store.WaitFor([]string{path}, e.fsInterval, e.fsLimit) {
			return nil, &machetlierr.FilesystemTimeout{Path: path}
		}
		code, err := readExitCode(path)
		if err != nil {
			return nil, err
		}
		if evaluation.ClassifyExitCode(code, 0) == machetli.Success {
			return t, nil
		}
	}
	return nil, nil
}

func (e *Cluster) collectRace(tasks []*evalTask) *evalTask {
	var mu sync.Mutex
	var winner *evalTask

	p := pool.New().WithMaxGoroutines(len(tasks))
	for _, t := range tasks {
		t := t
		p.Go(func() {
			path := filepath.Join(t.dir, "exit_code")
			if !e.store.WaitFor([]string{path}, e.fsInterval, e.fsLimit) {
				return
			}
			code, err := readExitCode(path)
			if err != nil || evaluation.ClassifyExitCode(code, 0) != machetli.Success {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if winner == nil {
				winner = t
			}
		})
	}
	p.Wait()
	return winner
}

func readExitCode(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("malformed exit code file %s: %w", path, err)
	}
	return code, nil
}
