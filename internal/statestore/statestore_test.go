package statestore

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibasel/machetli-go/pkg/machetli"
)

type fixtureState struct {
	N     int
	Label string
}

func init() {
	gob.Register(fixtureState{})
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := New(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "state.gob")

	original := fixtureState{N: 7, Label: "seven"}
	if err := store.Write(original, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	roundTripped, ok := got.(fixtureState)
	if !ok {
		t.Fatalf("Read returned %T, want fixtureState", got)
	}
	if roundTripped != original {
		t.Fatalf("round trip = %+v, want %+v", roundTripped, original)
	}
}

func TestWaitFor_ReturnsTrueWhenAllPathsAppear(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	if err := os.WriteFile(pathA, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(pathB, []byte("y"), 0o644)
	}()

	store := New(nil)
	if !store.WaitFor([]string{pathA, pathB}, 10*time.Millisecond, time.Second) {
		t.Fatal("WaitFor returned false, want true")
	}
}

func TestWaitFor_ReturnsFalseOnTimeout(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "never-appears")

	store := New(nil)
	start := time.Now()
	ok := store.WaitFor([]string{missing}, 10*time.Millisecond, 50*time.Millisecond)
	elapsed := time.Since(start)

	if ok {
		t.Fatal("WaitFor returned true, want false")
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("WaitFor took %v, expected to bail out near the configured limit", elapsed)
	}
}

func TestWaitFor_EmptyPathsIsImmediatelyTrue(t *testing.T) {
	store := New(nil)
	if !store.WaitFor(nil, time.Millisecond, time.Millisecond) {
		t.Fatal("WaitFor with no paths should return true")
	}
}

var _ machetli.Codec = machetli.NewGobCodec()
