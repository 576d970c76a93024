package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
	"github.com/dgallion1/treeindex/internal/parser"
	"github.com/dgallion1/treeindex/internal/store"
)

// IndexBuilder builds and persists a tree index.
type IndexBuilder interface {
	Build(ctx context.Context, documentID, title, content string) (*doctree.Record, error)
}

// HashIndex finds a document already indexed with the same content.
type HashIndex interface {
	FindByHash(ctx context.Context, hash string) (string, bool, error)
}

// Worker processes a single document job.
type Worker struct {
	builder IndexBuilder
	hashes  HashIndex
	mapper  *graphsync.Mapper
	graph   graphsync.Graph
	log     *slog.Logger
}

// NewWorker creates a worker. A nil graph disables graph sync after builds.
func NewWorker(builder IndexBuilder, hashes HashIndex, graph graphsync.Graph, log *slog.Logger) *Worker {
	return &Worker{
		builder: builder,
		hashes:  hashes,
		mapper:  graphsync.NewMapper(log),
		graph:   graph,
		log:     log,
	}
}

// Process runs parse, dedup, build and optional graph sync for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	status := w.process(ctx, log, job)
	jobsTotal.WithLabelValues(string(status)).Inc()
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, job *Job) JobStatus {
	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	job.releaseFileData()
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		return w.fail(job, "parsing", err.Error())
	}

	doc, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		return w.fail(job, "parsing", fmt.Sprintf("parse: %s", err))
	}
	if job.Title != "" {
		doc.Title = job.Title
	}
	if strings.TrimSpace(doc.Content) == "" {
		log.Warn("no extractable content")
		return w.fail(job, "parsing", "no extractable content")
	}

	hash := store.ContentHash(doc.Content)
	job.SetParsed(len(doc.Content), hash)

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, found, err := w.hashes.FindByHash(ctx, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if found {
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.SetDuplicateOf(existing)
			job.SetStatus(StatusDupSkipped, "dedup")
			return StatusDupSkipped
		}
	}

	// Phase 2: Build
	job.SetStatus(StatusIndexing, "indexing")
	rec, err := w.builder.Build(ctx, job.DocID, doc.Title, doc.Content)
	if err != nil {
		log.Error("build failed", "error", err)
		return w.fail(job, "indexing", err.Error())
	}
	if rec == nil {
		job.SetStatus(StatusNoStructure, "indexing")
		return StatusNoStructure
	}
	job.SetRecord(rec)

	// Phase 3: Graph sync
	if w.graph != nil {
		job.SetStatus(StatusSyncing, "syncing")
		res := w.mapper.Sync(ctx, rec, w.graph, nil)
		job.SetSync(res)
		if res.SectionsCreated < rec.NodeCount {
			job.AddError(fmt.Sprintf("graph sync wrote %d of %d sections", res.SectionsCreated, rec.NodeCount))
		}
	}

	job.SetStatus(StatusCompleted, "done")
	return StatusCompleted
}

func (w *Worker) fail(job *Job, phase, msg string) JobStatus {
	job.AddError(msg)
	job.SetStatus(StatusFailed, phase)
	return StatusFailed
}
