package core

import (
	"sort"
	"time"
)

// Job is an immutable job definition: metadata plus a step graph.
// Build one with NewJob; the zero value is not useful.
type Job struct {
	id       string
	owner    string
	schedule Schedule
	timeout  time.Duration
	doc      string
	tags     []string // sorted, unique

	steps []Step // declaration order
	edges []Edge // declaration order
	index map[string]int

	version string
}

func (j *Job) ID() string             { return j.id }
func (j *Job) Owner() string          { return j.owner }
func (j *Job) Schedule() Schedule     { return j.schedule }
func (j *Job) Timeout() time.Duration { return j.timeout }
func (j *Job) Doc() string            { return j.doc }
func (j *Job) Version() string        { return j.version }
func (j *Job) Tags() []string         { return append([]string(nil), j.tags...) }
func (j *Job) Steps() []Step          { return append([]Step(nil), j.steps...) }
func (j *Job) Edges() []Edge          { return append([]Edge(nil), j.edges...) }
func (j *Job) StepCount() int         { return len(j.steps) }
func (j *Job) StepIDs() []string      { return stepIDs(j.steps) }
func (j *Job) String() string         { return j.id + "@" + j.schedule.String() }

// HasTag reports whether tag is one of the job's tags.
func (j *Job) HasTag(tag string) bool {
	i := sort.SearchStrings(j.tags, tag)
	return i < len(j.tags) && j.tags[i] == tag
}

// StepIndex returns the declaration position of a step, or -1.
func (j *Job) StepIndex(id string) int {
	i, ok := j.index[id]
	if !ok {
		return -1
	}
	return i
}

// Step looks a step up by id.
func (j *Job) Step(id string) (Step, bool) {
	i, ok := j.index[id]
	if !ok {
		return Step{}, false
	}
	return j.steps[i], true
}

func stepIDs(steps []Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.ID)
	}
	return out
}
