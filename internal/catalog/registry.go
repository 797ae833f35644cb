package catalog

import (
	"log/slog"
	"sort"
	"sync"

	"dagtemplate/internal/core"
)

// Registry holds the job definitions this process exposes to the orchestrator.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*core.Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*core.Job)}
}

// Register adds job to the registry.
//
// Registering the same version again is a no-op. A new version with the same
// schedule replaces the old one and logs a warning. A new schedule under an
// existing id is refused with core.ErrScheduleChanged: run history is keyed by
// id, so a schedule change needs a new id.
func (r *Registry) Register(job *core.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := job.ID()
	if prev, exists := r.jobs[id]; exists {
		if prev.Version() == job.Version() {
			return nil
		}
		if prev.Schedule().String() != job.Schedule().String() {
			return core.ScheduleChanged(id, prev.Schedule().String(), job.Schedule().String())
		}
		slog.Warn("Job definition being replaced in registry",
			"job_id", id,
			"old_version", prev.Version(),
			"new_version", job.Version())
	}
	r.jobs[id] = job
	slog.Debug("Job definition registered", "job_id", id, "version", job.Version(), "steps", job.StepCount())
	return nil
}

// Get retrieves a job by id.
func (r *Registry) Get(id string) (*core.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// List returns every registered job ordered by id.
func (r *Registry) List() []*core.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*core.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Unregister removes a job. It reports whether the job was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	delete(r.jobs, id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Scanner finds serialized definitions, e.g. a directory of definition files.
type Scanner interface {
	Scan() ([]*core.Job, error)
}

// LoadFrom registers every job the scanner finds. It stops at the first
// registration error.
func (r *Registry) LoadFrom(s Scanner) (int, error) {
	jobs, err := s.Scan()
	if err != nil {
		return 0, err
	}
	for i, job := range jobs {
		if err := r.Register(job); err != nil {
			return i, err
		}
	}
	return len(jobs), nil
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry holding the bundled definitions.
func Default() *Registry { return defaultRegistry }

// MustRegister builds a bundled definition and adds it to the default
// registry. A broken bundled definition is a programming error.
func MustRegister(build func() (*core.Job, error)) {
	job, err := build()
	if err != nil {
		panic("catalog: " + err.Error())
	}
	if err := defaultRegistry.Register(job); err != nil {
		panic("catalog: " + err.Error())
	}
}
