// Package queue holds the in-memory registry of asynchronous jobs and
// the client that hands payloads to the external dispatch worker.
package queue

import (
	"sync"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job tracks one asynchronous unit of work. Dispatched jobs stay in the
// registry for the life of the process; the registry is best-effort and
// its lifecycle ends with a restart.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is the authoritative in-memory job mapping. It is
// process-local: under a multi-instance deployment each instance sees
// only its own jobs unless replaced by a shared backend.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
	}
}

// Create registers a new pending job
func (r *Registry) Create(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &Job{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// UpdateStatus advances a job. Unknown ids are a no-op, and repeating an
// update with the same arguments is idempotent, which covers
// at-least-once redelivery to the worker.
func (r *Registry) UpdateStatus(id string, status Status, result any, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Result = result
	job.Error = errMsg
}

// Remove drops a job record. Used when a registered job never made it
// to the dispatcher and its id was never handed out.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Get returns a copy of the job
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}
