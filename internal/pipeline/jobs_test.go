package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
)

func TestNewJob(t *testing.T) {
	job := NewJob("doc1", "a.md", "A", true, []byte("# A"))
	if job.ID == "" {
		t.Fatal("expected a job id")
	}
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("expected queued job, got %q/%q", job.Status, job.Phase)
	}
	if !job.Force {
		t.Error("expected force flag to be kept")
	}
	if string(job.FileData()) != "# A" {
		t.Errorf("unexpected file data %q", job.FileData())
	}

	other := NewJob("doc1", "a.md", "A", false, nil)
	if other.ID == job.ID {
		t.Error("expected distinct job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusIndexing, "indexing"},
		{StatusSyncing, "syncing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{StatusQueued, false},
		{StatusParsing, false},
		{StatusIndexing, false},
		{StatusSyncing, false},
		{StatusCompleted, true},
		{StatusNoStructure, true},
		{StatusFailed, true},
		{StatusDupSkipped, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%q.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse failed")
	job.AddError("graph sync wrote 1 of 2 sections")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parse failed" {
		t.Errorf("expected first error %q, got %q", "parse failed", snap.Progress.Errors[0])
	}

	// The snapshot must not alias the job's error slice.
	snap.Progress.Errors[0] = "mutated"
	if job.Snapshot().Progress.Errors[0] != "parse failed" {
		t.Error("snapshot errors alias job state")
	}
}

func TestJob_ProgressSetters(t *testing.T) {
	job := &Job{ID: "progress-test", UpdatedAt: time.Now()}
	job.SetParsed(1200, "abc123")
	job.SetRecord(&doctree.Record{Method: doctree.MethodHeaders, NodeCount: 7, Version: 2})
	job.SetSync(graphsync.Result{SectionsCreated: 7, EdgesCreated: 9, EntityLinks: 2})
	job.SetDuplicateOf("doc0")

	snap := job.Snapshot()
	if snap.ContentHash != "abc123" || snap.Progress.ContentChars != 1200 {
		t.Errorf("unexpected parse progress %+v", snap)
	}
	if snap.Progress.Method != doctree.MethodHeaders || snap.Progress.Sections != 7 || snap.Progress.Version != 2 {
		t.Errorf("unexpected build progress %+v", snap.Progress)
	}
	if snap.Progress.GraphNodes != 7 || snap.Progress.GraphEdges != 9 || snap.Progress.EntityLinks != 2 {
		t.Errorf("unexpected sync progress %+v", snap.Progress)
	}
	if snap.Progress.DuplicateOf != "doc0" {
		t.Errorf("expected duplicate_of doc0, got %q", snap.Progress.DuplicateOf)
	}
}

func TestJob_FileData(t *testing.T) {
	data := []byte("file content here")
	job := NewJob("doc1", "notes.txt", "", false, data)
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
	job.releaseFileData()
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
