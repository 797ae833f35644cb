package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"dagtemplate/internal/core"
)

var (
	ErrUnsafeID    = errors.New("job id cannot be used as a file name")
	ErrIDCollision = errors.New("definition file belongs to another job")
)

// DefinitionStore manages the directory of definition files the orchestrator
// scans.
type DefinitionStore struct {
	BaseDir string
}

// NewDefinitionStore creates a store rooted at baseDir.
func NewDefinitionStore(baseDir string) *DefinitionStore {
	return &DefinitionStore{BaseDir: baseDir}
}

// Path returns where a job's definition lives for the given format.
func (ds *DefinitionStore) Path(jobID string, format core.Format) string {
	return filepath.Join(ds.BaseDir, sanitize(jobID)+format.Ext())
}

// Save encodes job and writes it to its deterministic path. The write goes
// through a temp file and a rename so a scanning orchestrator never reads a
// half-written definition.
//
// Ids that sanitize would alter are refused, so distinct ids never share a file.
func (ds *DefinitionStore) Save(job *core.Job, format core.Format) (string, []byte, error) {
	if safe := sanitize(job.ID()); safe != job.ID() {
		return "", nil, fmt.Errorf("%w: %q would be stored as %q", ErrUnsafeID, job.ID(), safe)
	}

	data, err := core.Encode(job, format)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", job.ID(), err)
	}

	// Ensure base directory exists
	if err := os.MkdirAll(ds.BaseDir, 0775); err != nil {
		return "", nil, err
	}

	path := ds.Path(job.ID(), format)
	if existing, err := core.LoadJob(path); err == nil && existing.ID() != job.ID() {
		return "", nil, fmt.Errorf("%w: %s holds %q, not %q", ErrIDCollision, path, existing.ID(), job.ID())
	}

	tmp, err := os.CreateTemp(ds.BaseDir, ".tmp-"+sanitize(job.ID())+"-*")
	if err != nil {
		return "", nil, err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return path, data, nil
}

// Scan decodes every definition file in the directory, in file name order.
// A missing directory yields no jobs.
func (ds *DefinitionStore) Scan() ([]*core.Job, error) {
	entries, err := os.ReadDir(ds.BaseDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := core.FormatFromPath(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	jobs := make([]*core.Job, 0, len(names))
	for _, name := range names {
		job, err := core.LoadJob(filepath.Join(ds.BaseDir, name))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// sanitize removes special characters from job ids for filenames
func sanitize(name string) string {
	clean := ""
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			clean += string(r)
		}
	}
	if clean == "" || clean[0] == '.' {
		return "job" + clean
	}
	return clean
}
