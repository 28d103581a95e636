package report

import (
	"time"

	"github.com/aibasel/machetli-go/pkg/machetli"
)

// Format selects the rendering produced by Generate.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Summary is the run data a report is rendered from. It is deliberately
// decoupled from internal/history.Run so that a report can also be
// generated for a run still in progress, before anything is persisted.
type Summary struct {
	Environment  string                  `json:"environment"`
	EvalDir      string                  `json:"eval_dir,omitempty"`
	InitialLabel string                  `json:"initial_label"`
	FinalLabel   string                  `json:"final_label"`
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Outcome      string                  `json:"outcome"`
	Error        string                  `json:"error,omitempty"`
	Commits      []machetli.CommitRecord `json:"commits"`
}

// Duration is the wall-clock time the run took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
