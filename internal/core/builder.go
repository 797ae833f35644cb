package core

import (
	"sort"
	"strings"
	"time"
)

// Builder assembles a Job. The first error sticks and is returned by Build, so
// a definition can be written as a straight sequence of calls.
type Builder struct {
	job   Job
	edges map[Edge]struct{}
	err   error
}

// StepRef is a handle to a step declared on a Builder. Edges can only be
// declared between refs, so an edge to an undeclared step cannot be written.
type StepRef struct {
	id string
	b  *Builder
}

func (r StepRef) ID() string { return r.id }

// Then declares r -> down and returns down, so chains read left to right.
func (r StepRef) Then(down StepRef) StepRef {
	owner := r.b
	if owner == nil {
		owner = down.b
	}
	if owner != nil {
		owner.Edge(r, down)
	}
	return down
}

// After declares every up -> r edge and returns r.
func (r StepRef) After(ups ...StepRef) StepRef {
	for _, up := range ups {
		up.Then(r)
	}
	return r
}

func NewJob(id string) *Builder {
	b := &Builder{
		job: Job{
			id:    strings.TrimSpace(id),
			index: make(map[string]int),
		},
		edges: make(map[Edge]struct{}),
	}
	if b.job.id == "" {
		b.fail(invalidf("job id is required"))
	}
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns the first error recorded so far.
func (b *Builder) Err() error { return b.err }

func (b *Builder) Owner(owner string) *Builder {
	b.job.owner = strings.TrimSpace(owner)
	return b
}

func (b *Builder) Schedule(expr string) *Builder {
	s, err := ParseSchedule(expr)
	if err != nil {
		b.fail(err)
		return b
	}
	b.job.schedule = s
	return b
}

func (b *Builder) Timeout(d time.Duration) *Builder {
	if d < 0 {
		b.fail(invalidf("timeout must not be negative, got %s", d))
		return b
	}
	b.job.timeout = d
	return b
}

func (b *Builder) Doc(doc string) *Builder {
	b.job.doc = strings.TrimSpace(doc)
	return b
}

// Tags adds tags to the job. Duplicates and blank tags are dropped at Build.
func (b *Builder) Tags(tags ...string) *Builder {
	b.job.tags = append(b.job.tags, tags...)
	return b
}

// Shell declares a step that runs command in a shell.
func (b *Builder) Shell(id, command string) StepRef {
	return b.Add(Step{ID: id, Kind: StepKindShell, Command: Command(command)})
}

// NoOp declares a step that does nothing.
func (b *Builder) NoOp(id string) StepRef {
	return b.Add(Step{ID: id, Kind: StepKindNoOp})
}

// Add declares a step. On error the returned ref is the zero StepRef.
func (b *Builder) Add(step Step) StepRef {
	step.ID = strings.TrimSpace(step.ID)
	if step.ID == "" {
		b.fail(invalidf("step[%d] id is required", len(b.job.steps)))
		return StepRef{}
	}
	if _, exists := b.job.index[step.ID]; exists {
		b.fail(invalidf("duplicate step id: %q", step.ID))
		return StepRef{}
	}
	if !step.Kind.Valid() {
		b.fail(invalidf("step %q: invalid kind %s", step.ID, step.Kind))
		return StepRef{}
	}
	hasCommand := strings.TrimSpace(string(step.Command)) != ""
	if step.Kind == StepKindShell && !hasCommand {
		b.fail(invalidf("step %q: shell step needs a command", step.ID))
		return StepRef{}
	}
	if step.Kind == StepKindNoOp && hasCommand {
		b.fail(invalidf("step %q: noop step must not have a command", step.ID))
		return StepRef{}
	}

	b.job.index[step.ID] = len(b.job.steps)
	b.job.steps = append(b.job.steps, step)
	return StepRef{id: step.ID, b: b}
}

// Ref returns the handle of an already declared step. Decoders use it to turn
// identifiers back into refs; an unknown id is recorded as an error.
func (b *Builder) Ref(id string) StepRef {
	id = strings.TrimSpace(id)
	if _, ok := b.job.index[id]; !ok {
		b.fail(unknownStepf("%q is not declared in job %q", id, b.job.id))
		return StepRef{}
	}
	return StepRef{id: id, b: b}
}

// Edge declares up -> down.
func (b *Builder) Edge(up, down StepRef) *Builder {
	if up.b == nil || down.b == nil {
		b.fail(unknownStepf("edge %q -> %q references an undeclared step", up.id, down.id))
		return b
	}
	if up.b != b || down.b != b {
		b.fail(invalidf("edge %q -> %q uses a step declared on another job", up.id, down.id))
		return b
	}
	if up.id == down.id {
		b.fail(invalidf("self-loop: %q -> %q", up.id, down.id))
		return b
	}
	e := Edge{Upstream: up.id, Downstream: down.id}
	if _, exists := b.edges[e]; exists {
		b.fail(invalidf("duplicate edge: %s", e))
		return b
	}
	b.edges[e] = struct{}{}
	b.job.edges = append(b.job.edges, e)
	return b
}

// Build returns the finished Job. Acyclicity is not checked here; the
// orchestrator does that when it loads the definition, and graph.Inspect can
// report it ahead of time.
func (b *Builder) Build() (*Job, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.job.schedule.IsZero() {
		return nil, invalidf("job %q: schedule is required", b.job.id)
	}
	if len(b.job.steps) == 0 {
		return nil, invalidf("job %q: no steps", b.job.id)
	}

	job := &Job{
		id:       b.job.id,
		owner:    b.job.owner,
		schedule: b.job.schedule,
		timeout:  b.job.timeout,
		doc:      b.job.doc,
		tags:     normalizeTags(b.job.tags),
		steps:    append([]Step(nil), b.job.steps...),
		edges:    append([]Edge(nil), b.job.edges...),
		index:    make(map[string]int, len(b.job.index)),
	}
	for id, i := range b.job.index {
		job.index[id] = i
	}

	version, err := computeVersion(job)
	if err != nil {
		return nil, err
	}
	job.version = version
	return job, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
