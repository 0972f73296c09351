package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/facegallery/facegallery/internal/pipeline"
)

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one asynchronous processing run.
type Job struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Stats       *pipeline.Stats `json:"stats,omitempty"`
}

// JobManager tracks processing jobs. Only one run executes at a time, the
// rest are rejected; finished jobs stay queryable until the next run.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	busy bool
}

func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

// Begin registers a new running job, failing when one is already active.
func (m *JobManager) Begin() (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return nil, false
	}
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusRunning,
		StartedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	m.busy = true
	return job, true
}

// Finish records the outcome of a job.
func (m *JobManager) Finish(id string, stats *pipeline.Stats, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = JobStatusCompleted
		job.Stats = stats
	}
	m.busy = false
}

// Get returns a job by ID.
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// snapshot returns a copy safe for JSON encoding while the job may still
// be updated.
func (m *JobManager) snapshot(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// RunFunc executes a processing run and returns its stats. The web layer
// owns swapping the gallery projection after a successful run.
type RunFunc func(ctx context.Context, opts pipeline.Options) (*pipeline.Stats, error)

// ProcessHandler triggers pipeline runs over HTTP.
type ProcessHandler struct {
	jobs *JobManager
	run  RunFunc
	opts pipeline.Options
}

func NewProcessHandler(jobs *JobManager, run RunFunc, defaults pipeline.Options) *ProcessHandler {
	return &ProcessHandler{jobs: jobs, run: run, opts: defaults}
}

type processRequest struct {
	Force       bool `json:"force"`
	Concurrency int  `json:"concurrency"`
	Limit       int  `json:"limit"`
}

// Start launches a run in the background and returns the job ID.
func (h *ProcessHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	job, ok := h.jobs.Begin()
	if !ok {
		respondError(w, http.StatusConflict, "a processing job is already running")
		return
	}

	opts := h.opts
	opts.Force = req.Force
	if req.Concurrency > 0 {
		opts.Concurrency = req.Concurrency
	}
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}

	go func() {
		stats, err := h.run(context.Background(), opts)
		if err != nil {
			log.Printf("processing job %s failed: %v", job.ID, err)
		}
		h.jobs.Finish(job.ID, stats, err)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// Status reports the state of a job.
func (h *ProcessHandler) Status(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.snapshot(chi.URLParam(r, "jobID"))
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}
