package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aibasel/machetli-go/pkg/machetli"
)

func sampleSummary() Summary {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return Summary{
		Environment:  "local",
		InitialLabel: "initial",
		FinalLabel:   "minimized-2",
		StartedAt:    start,
		FinishedAt:   start.Add(90 * time.Second),
		Outcome:      "ok",
		Commits: []machetli.CommitRecord{
			{GeneratorIndex: 0, ChangeLabel: "drop-clause", Timestamp: start.Add(10 * time.Second)},
			{GeneratorIndex: 0, ChangeLabel: "drop-clause-again", Timestamp: start.Add(40 * time.Second)},
		},
	}
}

func TestGenerate_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(sampleSummary(), FormatText, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "initial -> minimized-2") {
		t.Errorf("expected state transition in output, got:\n%s", out)
	}
	if !strings.Contains(out, "drop-clause-again") {
		t.Errorf("expected commit label in output, got:\n%s", out)
	}
}

func TestGenerate_TextNoCommits(t *testing.T) {
	summary := sampleSummary()
	summary.Commits = nil
	summary.FinalLabel = summary.InitialLabel

	var buf bytes.Buffer
	if err := Generate(summary, FormatText, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(buf.String(), "never improved upon") {
		t.Errorf("expected no-improvement message, got:\n%s", buf.String())
	}
}

func TestGenerate_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(sampleSummary(), FormatJSON, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"final_label": "minimized-2"`) {
		t.Errorf("expected final_label field, got:\n%s", out)
	}
	if !strings.Contains(out, `"change_label": "drop-clause"`) {
		t.Errorf("expected commit change_label field, got:\n%s", out)
	}
}

func TestGenerate_HTML(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(sampleSummary(), FormatHTML, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<html") {
		t.Errorf("expected html document, got:\n%s", out)
	}
	if !strings.Contains(out, "minimized-2") {
		t.Errorf("expected final label in html, got:\n%s", out)
	}
}

func TestGenerate_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(sampleSummary(), Format("yaml"), &buf); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestSummary_Duration(t *testing.T) {
	s := sampleSummary()
	if s.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want %v", s.Duration(), 90*time.Second)
	}
}
