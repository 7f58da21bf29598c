package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

func mustOpen(t *testing.T, dir string, capacity int) *Store {
	t.Helper()
	s, err := Open(dir, capacity)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestNameRoundTrip(t *testing.T) {
	name := Name(baseTime)
	if name != "dog_20260314_092653.jpg" {
		t.Errorf("expected dog_20260314_092653.jpg, got %s", name)
	}
	taken, err := ParseName(name)
	if err != nil {
		t.Fatalf("ParseName failed: %v", err)
	}
	if !taken.Equal(baseTime) {
		t.Errorf("expected %v, got %v", baseTime, taken)
	}
}

func TestParseNameRejectsForeignNames(t *testing.T) {
	bad := []string{
		"cat_20260314_092653.jpg",
		"dog_20260314_092653.png",
		"dog_2026031_092653.jpg",
		"dog_20260314_092653.jpg.tmp",
		"../dog_20260314_092653.jpg",
		"status.json",
		"",
	}
	for _, name := range bad {
		if _, err := ParseName(name); err == nil {
			t.Errorf("expected ParseName(%q) to fail", name)
		}
	}
}

func TestOpenRejectsZeroCapacity(t *testing.T) {
	if _, err := Open(t.TempDir(), 0); err == nil {
		t.Fatal("expected error for capacity 0")
	}
}

func TestInsertWritesFrameToDisk(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, 10)

	rec, err := s.Insert([]byte("jpeg-bytes"), baseTime)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rec.Name != "dog_20260314_092653.jpg" {
		t.Errorf("expected frame name dog_20260314_092653.jpg, got %s", rec.Name)
	}

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("reading stored frame: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("expected stored bytes, got %q", data)
	}

	// No temp file may remain after a successful insert.
	if _, err := os.Stat(rec.Path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be gone, stat err = %v", err)
	}
}

// Fifteen inserts into a store of ten must retain exactly the ten newest,
// with the five oldest gone from disk as well as from the listing.
func TestCapacityEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, 10)

	for i := 0; i < 15; i++ {
		ts := baseTime.Add(time.Duration(i) * time.Second)
		if _, err := s.Insert([]byte(fmt.Sprintf("frame-%d", i)), ts); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	if got := s.Count(); got != 10 {
		t.Fatalf("expected 10 retained frames, got %d", got)
	}

	list := s.List(0)
	if len(list) != 10 {
		t.Fatalf("expected 10 listed frames, got %d", len(list))
	}
	for i, rec := range list {
		want := Name(baseTime.Add(time.Duration(14-i) * time.Second))
		if rec.Name != want {
			t.Errorf("list[%d]: expected %s, got %s", i, want, rec.Name)
		}
	}

	// The five oldest files are deleted from disk.
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, Name(baseTime.Add(time.Duration(i)*time.Second)))
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected %s to be evicted, stat err = %v", path, err)
		}
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := mustOpen(t, t.TempDir(), 10)
	for i := 0; i < 5; i++ {
		ts := baseTime.Add(time.Duration(i) * time.Second)
		if _, err := s.Insert([]byte("x"), ts); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	list := s.List(3)
	if len(list) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(list))
	}
	if list[0].Name != Name(baseTime.Add(4*time.Second)) {
		t.Errorf("expected newest first, got %s", list[0].Name)
	}
	if list[2].Name != Name(baseTime.Add(2*time.Second)) {
		t.Errorf("expected third newest last, got %s", list[2].Name)
	}

	// Limit beyond the store size returns everything retained.
	if got := len(s.List(50)); got != 5 {
		t.Errorf("expected 5 frames for oversized limit, got %d", got)
	}
}

func TestInsertSameSecondReplaces(t *testing.T) {
	s := mustOpen(t, t.TempDir(), 10)

	if _, err := s.Insert([]byte("first"), baseTime); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	rec, err := s.Insert([]byte("second"), baseTime)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if got := s.Count(); got != 1 {
		t.Fatalf("expected 1 frame after same-second insert, got %d", got)
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("reading stored frame: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected newer bytes to win, got %q", data)
	}
}

func TestOpenRescansExistingFrames(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, 10)
	for i := 0; i < 4; i++ {
		if _, err := s.Insert([]byte("x"), baseTime.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Foreign files must not be picked up by the rescan.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("writing foreign file: %v", err)
	}

	reopened := mustOpen(t, dir, 10)
	if got := reopened.Count(); got != 4 {
		t.Fatalf("expected 4 frames after reopen, got %d", got)
	}
	list := reopened.List(1)
	if list[0].Name != Name(baseTime.Add(3*time.Second)) {
		t.Errorf("expected newest surviving frame first, got %s", list[0].Name)
	}
}

// Reopening with more frames on disk than capacity trims the oldest, as
// after a crash mid-eviction.
func TestOpenAppliesCapacityBound(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, 20)
	for i := 0; i < 12; i++ {
		if _, err := s.Insert([]byte("x"), baseTime.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	reopened := mustOpen(t, dir, 10)
	if got := reopened.Count(); got != 10 {
		t.Fatalf("expected 10 frames after bounded reopen, got %d", got)
	}
	oldest := filepath.Join(dir, Name(baseTime))
	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Errorf("expected oldest frame removed on reopen, stat err = %v", err)
	}
}

func TestInsertFailureIsTransientThenFatal(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, 10)

	// Removing the directory makes every write fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("removing frame dir: %v", err)
	}

	for i := 0; i < failLimit-1; i++ {
		_, err := s.Insert([]byte("x"), baseTime.Add(time.Duration(i)*time.Second))
		if err == nil {
			t.Fatalf("expected write %d to fail", i)
		}
		if errors.Is(err, ErrStorageFailing) {
			t.Fatalf("write %d: expected transient error, got fatal: %v", i, err)
		}
	}

	_, err := s.Insert([]byte("x"), baseTime.Add(time.Duration(failLimit)*time.Second))
	if !errors.Is(err, ErrStorageFailing) {
		t.Fatalf("expected ErrStorageFailing after %d failures, got %v", failLimit, err)
	}
}

func TestInsertSuccessResetsFailureCount(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, 10)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("removing frame dir: %v", err)
	}
	for i := 0; i < failLimit-1; i++ {
		if _, err := s.Insert([]byte("x"), baseTime); err == nil {
			t.Fatal("expected write to fail")
		}
	}

	// Storage recovers; the streak must reset.
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("restoring frame dir: %v", err)
	}
	if _, err := s.Insert([]byte("x"), baseTime); err != nil {
		t.Fatalf("expected recovery insert to succeed, got %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("removing frame dir: %v", err)
	}
	_, err := s.Insert([]byte("x"), baseTime.Add(time.Second))
	if err == nil {
		t.Fatal("expected write to fail")
	}
	if errors.Is(err, ErrStorageFailing) {
		t.Fatalf("expected transient error after reset, got fatal: %v", err)
	}
}
