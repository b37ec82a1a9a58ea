package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of a novel run.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusProbing        RunStatus = "probing"
	StatusFetching       RunStatus = "fetching"
	StatusExtracting     RunStatus = "extracting"
	StatusTranslating    RunStatus = "translating"
	StatusAppending      RunStatus = "appending"
	StatusPackaging      RunStatus = "packaging"
	StatusCompleted      RunStatus = "completed"
	StatusCompletedEmpty RunStatus = "completed_empty"
	StatusFailed         RunStatus = "failed"
)

// Terminal reports whether a status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedEmpty, StatusFailed:
		return true
	}
	return false
}

// Params are the caller-supplied settings for one run. Zero values fall
// back to the driver's configured defaults.
type Params struct {
	BaseURL      string        `json:"base_url"`
	StartPage    int           `json:"start_page"`
	MaxPages     int           `json:"max_pages,omitempty"`
	Delay        time.Duration `json:"-"`
	MaxChunkSize int           `json:"max_chunk_size,omitempty"`
	SourceLang   string        `json:"source_lang,omitempty"`
	TargetLang   string        `json:"target_lang,omitempty"`
	Formats      []string      `json:"formats,omitempty"`
	OutputDir    string        `json:"-"`
	FetchRetries int           `json:"-"`
}

// Progress tracks per-run counters.
type Progress struct {
	PagesFetched   int `json:"pages_fetched"`
	PagesSkipped   int `json:"pages_skipped"`
	ChunksFallback int `json:"chunks_fallback"`
	LastPage       int `json:"last_page"`
}

// Run tracks the state of a single novel acquisition.
type Run struct {
	mu sync.Mutex

	ID     string    `json:"run_id"`
	Params Params    `json:"params"`
	Status RunStatus `json:"status"`

	Title        string            `json:"title,omitempty"`
	ArtifactPath string            `json:"artifact_path,omitempty"`
	Outputs      map[string]string `json:"outputs,omitempty"`
	Err          string            `json:"error,omitempty"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun creates a queued run with a fresh ID.
func NewRun(params Params) *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.NewString(),
		Params:    params,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates the run state atomically.
func (r *Run) SetStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.UpdatedAt = time.Now()
}

// SetTitle records the discovered novel title.
func (r *Run) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Title = title
	r.UpdatedAt = time.Now()
}

// PageFetched records a successfully processed page.
func (r *Run) PageFetched(index, fallbackChunks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.PagesFetched++
	r.Progress.ChunksFallback += fallbackChunks
	r.Progress.LastPage = index
	r.UpdatedAt = time.Now()
}

// PageSkipped records a page lost to a transient failure.
func (r *Run) PageSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.PagesSkipped++
	r.UpdatedAt = time.Now()
}

// Fail marks the run fatally failed.
func (r *Run) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusFailed
	r.Err = err.Error()
	r.UpdatedAt = time.Now()
}

// Complete marks the run finished with its outputs.
func (r *Run) Complete(artifactPath string, outputs map[string]string, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ArtifactPath = artifactPath
	r.Outputs = outputs
	if empty {
		r.Status = StatusCompletedEmpty
	} else {
		r.Status = StatusCompleted
	}
	r.UpdatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID           string            `json:"run_id"`
	BaseURL      string            `json:"base_url"`
	Status       RunStatus         `json:"status"`
	Title        string            `json:"title,omitempty"`
	ArtifactPath string            `json:"artifact_path,omitempty"`
	Outputs      map[string]string `json:"outputs,omitempty"`
	Err          string            `json:"error,omitempty"`
	Progress     Progress          `json:"progress"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Snapshot returns a copy of the run state safe to serialize.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	outputs := make(map[string]string, len(r.Outputs))
	for k, v := range r.Outputs {
		outputs[k] = v
	}
	return RunSnapshot{
		ID:           r.ID,
		BaseURL:      r.Params.BaseURL,
		Status:       r.Status,
		Title:        r.Title,
		ArtifactPath: r.ArtifactPath,
		Outputs:      outputs,
		Err:          r.Err,
		Progress:     r.Progress,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes terminal runs not updated within the TTL.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		snap := run.Snapshot()
		if snap.Status.Terminal() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.runs, id)
		}
	}
}
