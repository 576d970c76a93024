package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
)

// JobStatus represents the state of a build job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusIndexing    JobStatus = "indexing"
	StatusSyncing     JobStatus = "syncing"
	StatusCompleted   JobStatus = "completed"
	StatusNoStructure JobStatus = "no_structure"
	StatusFailed      JobStatus = "failed"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single tree index build.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Force    bool      `json:"force"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress reports what the build produced so far.
type Progress struct {
	ContentChars int      `json:"content_chars"`
	Method       string   `json:"method,omitempty"`
	Sections     int      `json:"sections"`
	Version      int      `json:"version,omitempty"`
	DuplicateOf  string   `json:"duplicate_of,omitempty"`
	GraphNodes   int      `json:"graph_nodes"`
	GraphEdges   int      `json:"graph_edges"`
	EntityLinks  int      `json:"entity_links"`
	Errors       []string `json:"errors"`
}

// NewJob creates a queued job. Job ids are UUIDv7 so they sort by creation time.
func NewJob(docID, filename, title string, force bool, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        newJobID(),
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Title:     title,
		Force:     force,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetParsed records the parsed content size and hash.
func (j *Job) SetParsed(chars int, hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ContentChars = chars
	j.ContentHash = hash
	j.UpdatedAt = time.Now()
}

// SetDuplicateOf records the document that already holds this content.
func (j *Job) SetDuplicateOf(docID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DuplicateOf = docID
	j.UpdatedAt = time.Now()
}

// SetRecord records the persisted tree index.
func (j *Job) SetRecord(rec *doctree.Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Method = rec.Method
	j.Progress.Sections = rec.NodeCount
	j.Progress.Version = rec.Version
	j.UpdatedAt = time.Now()
}

// SetSync records graph sync counts.
func (j *Job) SetSync(res graphsync.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.GraphNodes = res.SectionsCreated
	j.Progress.GraphEdges = res.EdgesCreated
	j.Progress.EntityLinks = res.EntityLinks
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it has been parsed.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress := j.Progress
	progress.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Progress:    progress,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusNoStructure, StatusFailed, StatusDupSkipped:
		return true
	}
	return false
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
