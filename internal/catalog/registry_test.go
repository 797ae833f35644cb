package catalog

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"dagtemplate/internal/core"
)

// captureSlogOutput swaps the default logger for a JSON one writing to a buffer.
func captureSlogOutput(fn func()) string {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	old := slog.Default()
	slog.SetDefault(slog.New(handler))
	defer slog.SetDefault(old)

	fn()
	return buf.String()
}

func buildJob(t *testing.T, id, schedule, cmd string) *core.Job {
	t.Helper()
	b := core.NewJob(id).Schedule(schedule)
	b.Shell("only", cmd)
	job, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return job
}

type fakeScanner struct {
	jobs []*core.Job
	err  error
}

func (f fakeScanner) Scan() ([]*core.Job, error) { return f.jobs, f.err }

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	job := buildJob(t, "j1", "@daily", "echo 1")
	if err := r.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Get("j1")
	if !ok || got != job {
		t.Fatal("expected to get the registered job back")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("unexpected job")
	}
}

func TestRegisterSameVersionIsNoOp(t *testing.T) {
	r := NewRegistry()
	first := buildJob(t, "j1", "@daily", "echo 1")
	again := buildJob(t, "j1", "@daily", "echo 1")
	if err := r.Register(first); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(again); err != nil {
		t.Fatalf("register again: %v", err)
	}
	if got, _ := r.Get("j1"); got != first {
		t.Fatal("identical version must not replace the registered job")
	}
}

func TestRegisterReplacementWarns(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(buildJob(t, "j1", "@daily", "echo 1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	replacement := buildJob(t, "j1", "@daily", "echo 2")

	var err error
	out := captureSlogOutput(func() { err = r.Register(replacement) })
	if err != nil {
		t.Fatalf("register replacement: %v", err)
	}
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"job_id":"j1"`) {
		t.Fatalf("expected replacement warning, got: %s", out)
	}
	if got, _ := r.Get("j1"); got != replacement {
		t.Fatal("expected replacement to win")
	}
}

func TestRegisterRefusesScheduleChange(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(buildJob(t, "j1", "@daily", "echo 1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register(buildJob(t, "j1", "@hourly", "echo 1"))
	if !errors.Is(err, core.ErrScheduleChanged) {
		t.Fatalf("expected ErrScheduleChanged, got %v", err)
	}
}

func TestListSortedAndUnregister(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Register(buildJob(t, id, "@daily", "true")); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	var ids []string
	for _, job := range r.List() {
		ids = append(ids, job.ID())
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("unexpected order %v", ids)
	}
	if !r.Unregister("b") || r.Unregister("b") {
		t.Fatal("unexpected Unregister result")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", r.Len())
	}
}

func TestLoadFrom(t *testing.T) {
	r := NewRegistry()
	n, err := r.LoadFrom(fakeScanner{jobs: []*core.Job{
		buildJob(t, "x", "@daily", "true"),
		buildJob(t, "y", "@daily", "true"),
	}})
	if err != nil || n != 2 {
		t.Fatalf("LoadFrom = %d, %v", n, err)
	}

	scanErr := errors.New("disk gone")
	if _, err := r.LoadFrom(fakeScanner{err: scanErr}); !errors.Is(err, scanErr) {
		t.Fatalf("expected scan error, got %v", err)
	}

	n, err = r.LoadFrom(fakeScanner{jobs: []*core.Job{buildJob(t, "x", "@hourly", "true")}})
	if !errors.Is(err, core.ErrScheduleChanged) || n != 0 {
		t.Fatalf("LoadFrom = %d, %v", n, err)
	}
}

func TestDefaultRegistryHasTemplate(t *testing.T) {
	job, ok := Default().Get(SimpleTemplateID)
	if !ok {
		t.Fatalf("expected %s in the default registry", SimpleTemplateID)
	}
	if job.Schedule().String() != "0 0 * * *" {
		t.Fatalf("unexpected schedule %q", job.Schedule())
	}
}

func TestMustRegisterPanicsOnBrokenDefinition(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustRegister(func() (*core.Job, error) { return core.NewJob("").Build() })
}
