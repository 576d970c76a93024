package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/treeindex/internal/config"
	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
	"github.com/dgallion1/treeindex/internal/store"
)

type fakeBuilder struct {
	mu      sync.Mutex
	rec     *doctree.Record
	err     error
	calls   int
	title   string
	content string
}

func (f *fakeBuilder) Build(_ context.Context, docID, title, content string) (*doctree.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.title, f.content = title, content
	if f.err != nil || f.rec == nil {
		return nil, f.err
	}
	rec := *f.rec
	rec.DocumentID = docID
	rec.FullContent = content
	return &rec, nil
}

type fakeHashes struct {
	docID string
	err   error
}

func (f fakeHashes) FindByHash(context.Context, string) (string, bool, error) {
	return f.docID, f.docID != "", f.err
}

type countingGraph struct {
	mu    sync.Mutex
	nodes int
	edges int
}

func (g *countingGraph) AddNode(context.Context, graphsync.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes++
	return nil
}

func (g *countingGraph) AddEdge(context.Context, graphsync.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges++
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleDoc = "# Intro\nhello\n# Body\nworld\n# End\nbye\n"

func builtRecord() *doctree.Record {
	return &doctree.Record{
		Method:    doctree.MethodHeaders,
		NodeCount: 2,
		Version:   1,
		Tree: &doctree.TreeNode{
			Title: "doc", CharStart: 0, CharEnd: len(sampleDoc),
			Children: []*doctree.TreeNode{
				{Title: "Intro", CharStart: 0, CharEnd: 13},
				{Title: "Body", CharStart: 14, CharEnd: len(sampleDoc)},
			},
		},
	}
}

func TestWorkerProcess(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		data       string
		force      bool
		builder    *fakeBuilder
		hashes     fakeHashes
		graph      *countingGraph
		wantStatus JobStatus
		wantBuilds int
	}{
		{
			name: "completed without graph", filename: "a.md", data: sampleDoc,
			builder: &fakeBuilder{rec: builtRecord()}, wantStatus: StatusCompleted, wantBuilds: 1,
		},
		{
			name: "completed with graph sync", filename: "a.md", data: sampleDoc,
			builder: &fakeBuilder{rec: builtRecord()}, graph: &countingGraph{},
			wantStatus: StatusCompleted, wantBuilds: 1,
		},
		{
			name: "duplicate skipped", filename: "a.md", data: sampleDoc,
			builder: &fakeBuilder{rec: builtRecord()}, hashes: fakeHashes{docID: "doc0"},
			wantStatus: StatusDupSkipped, wantBuilds: 0,
		},
		{
			name: "force rebuilds duplicate", filename: "a.md", data: sampleDoc, force: true,
			builder: &fakeBuilder{rec: builtRecord()}, hashes: fakeHashes{docID: "doc0"},
			wantStatus: StatusCompleted, wantBuilds: 1,
		},
		{
			name: "dedup lookup error proceeds", filename: "a.md", data: sampleDoc,
			builder: &fakeBuilder{rec: builtRecord()}, hashes: fakeHashes{err: errors.New("db locked")},
			wantStatus: StatusCompleted, wantBuilds: 1,
		},
		{
			name: "no structure", filename: "a.txt", data: "plain words",
			builder: &fakeBuilder{}, wantStatus: StatusNoStructure, wantBuilds: 1,
		},
		{
			name: "save failure", filename: "a.md", data: sampleDoc,
			builder: &fakeBuilder{err: errors.New("save tree index: disk full")},
			wantStatus: StatusFailed, wantBuilds: 1,
		},
		{
			name: "unsupported format", filename: "a.exe", data: "MZ",
			builder: &fakeBuilder{}, wantStatus: StatusFailed, wantBuilds: 0,
		},
		{
			name: "empty content", filename: "a.txt", data: "  \n\n ",
			builder: &fakeBuilder{}, wantStatus: StatusFailed, wantBuilds: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g graphsync.Graph
			if tt.graph != nil {
				g = tt.graph
			}
			w := NewWorker(tt.builder, tt.hashes, g, discard())
			job := NewJob("doc1", tt.filename, "", tt.force, []byte(tt.data))

			w.Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != tt.wantStatus {
				t.Fatalf("expected status %q, got %q (errors %v)", tt.wantStatus, snap.Status, snap.Progress.Errors)
			}
			if tt.builder.calls != tt.wantBuilds {
				t.Errorf("expected %d builds, got %d", tt.wantBuilds, tt.builder.calls)
			}
			if job.FileData() != nil {
				t.Error("expected upload to be released after parsing")
			}
			if tt.wantStatus == StatusFailed && len(snap.Progress.Errors) == 0 {
				t.Error("expected failure to record an error")
			}
			if tt.graph != nil {
				if tt.graph.nodes != 2 || tt.graph.edges != 2 {
					t.Errorf("expected 2 nodes and 2 edges, got %d/%d", tt.graph.nodes, tt.graph.edges)
				}
				if snap.Progress.GraphNodes != 2 {
					t.Errorf("expected graph_nodes 2, got %d", snap.Progress.GraphNodes)
				}
			}
		})
	}
}

func TestWorkerUsesTitleOverrideAndHash(t *testing.T) {
	b := &fakeBuilder{rec: builtRecord()}
	w := NewWorker(b, fakeHashes{}, nil, discard())
	job := NewJob("doc1", "notes.md", "Custom title", false, []byte(sampleDoc))

	w.Process(context.Background(), job)

	if b.title != "Custom title" {
		t.Errorf("expected title override, got %q", b.title)
	}
	if b.content != sampleDoc {
		t.Errorf("expected markdown content passed through, got %q", b.content)
	}
	snap := job.Snapshot()
	if snap.ContentHash != store.ContentHash(sampleDoc) {
		t.Errorf("expected content hash of parsed text, got %q", snap.ContentHash)
	}
	if snap.Progress.Sections != 2 || snap.Progress.Method != doctree.MethodHeaders {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
}

func TestOrchestratorRunsJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4
	b := &fakeBuilder{rec: builtRecord()}
	o := NewOrchestrator(cfg, NewWorker(b, fakeHashes{}, nil, discard()), discard())
	o.Start(context.Background())
	defer o.Stop()

	var jobs []*Job
	for i := range 3 {
		job := NewJob(fmt.Sprintf("doc%d", i), "a.md", "", false, []byte(sampleDoc))
		if err := o.Submit(job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		jobs = append(jobs, job)
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, job := range jobs {
		for !job.Snapshot().Status.Terminal() {
			if time.Now().After(deadline) {
				t.Fatalf("job %s did not finish", job.ID)
			}
			time.Sleep(5 * time.Millisecond)
		}
		if got := o.GetJob(job.ID); got != job {
			t.Errorf("GetJob(%s) returned a different job", job.ID)
		}
		if s := job.Snapshot().Status; s != StatusCompleted {
			t.Errorf("expected completed, got %q", s)
		}
	}
}

func TestOrchestratorQueueFull(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxQueueSize = 1
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, NewWorker(&fakeBuilder{}, fakeHashes{}, nil, discard()), discard())

	if err := o.Submit(NewJob("a", "a.md", "", false, nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	overflow := NewJob("b", "b.md", "", false, nil)
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue full error")
	}
	if overflow.Snapshot().Status != StatusFailed {
		t.Errorf("expected overflow job to fail, got %q", overflow.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
