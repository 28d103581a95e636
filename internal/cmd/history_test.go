package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibasel/machetli-go/internal/history"
)

func TestHistoryCommand_PrintsRecordedRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(dbPath)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := store.RecordRun(history.Run{
		StartedAt:    start,
		FinishedAt:   start.Add(time.Minute),
		Environment:  "local",
		InitialLabel: "initial",
		FinalLabel:   "minimized",
		Outcome:      "ok",
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	store.Close()

	buf := new(bytes.Buffer)
	historyCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"history", "--history-db", dbPath})
	defer rootCmd.SetArgs(nil)

	if err := historyCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("initial -> minimized")) {
		t.Errorf("expected recorded run in output, got:\n%s", buf.String())
	}
}

func TestHistoryCommand_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	buf := new(bytes.Buffer)
	historyCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"history", "--history-db", dbPath})
	defer rootCmd.SetArgs(nil)

	if err := historyCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
