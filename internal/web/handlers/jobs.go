package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one long-running operation triggered over the API.
type Job struct {
	mu sync.RWMutex

	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a copy safe to serialize while the job is running.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Error:       j.Error,
		Result:      j.Result,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// JobManager tracks async jobs by ID.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates an empty job manager.
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

// Start registers a new job and runs fn in a goroutine. The job transitions
// to completed or failed when fn returns.
func (m *JobManager) Start(kind string, fn func() (any, error)) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go func() {
		job.mu.Lock()
		job.Status = JobStatusRunning
		job.mu.Unlock()

		result, err := fn()

		now := time.Now()
		job.mu.Lock()
		defer job.mu.Unlock()
		job.CompletedAt = &now
		if err != nil {
			job.Status = JobStatusFailed
			job.Error = err.Error()
			return
		}
		job.Status = JobStatusCompleted
		job.Result = result
	}()

	return job
}

// Get returns a job by ID, nil if unknown.
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}
