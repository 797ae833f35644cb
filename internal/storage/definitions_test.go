package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dagtemplate/internal/core"
)

func testJob(t *testing.T, id string) *core.Job {
	t.Helper()
	b := core.NewJob(id).Schedule("@daily")
	b.Shell("a", "echo a").Then(b.NoOp("done"))
	job, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return job
}

func TestSaveAndScan(t *testing.T) {
	store := NewDefinitionStore(filepath.Join(t.TempDir(), "dags"))

	first := testJob(t, "first-v1")
	second := testJob(t, "second-v1")
	if _, _, err := store.Save(first, core.FormatYAML); err != nil {
		t.Fatalf("save yaml: %v", err)
	}
	path, data, err := store.Save(second, core.FormatJSON)
	if err != nil {
		t.Fatalf("save json: %v", err)
	}
	if filepath.Base(path) != "second-v1.json" || len(data) == 0 {
		t.Fatalf("unexpected path %q", path)
	}

	// Files that are not definitions are ignored.
	if err := os.WriteFile(filepath.Join(store.BaseDir, "README.md"), []byte("notes"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	jobs, err := store.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID() != "first-v1" || jobs[1].ID() != "second-v1" {
		t.Fatalf("unexpected scan result: %v", jobs)
	}
	if jobs[0].Version() != first.Version() || jobs[1].Version() != second.Version() {
		t.Fatal("scanned definitions differ from saved ones")
	}
}

func TestSaveOverwritesInPlace(t *testing.T) {
	store := NewDefinitionStore(t.TempDir())
	job := testJob(t, "same")
	for i := 0; i < 2; i++ {
		if _, _, err := store.Save(job, core.FormatYAML); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	entries, err := os.ReadDir(store.BaseDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single file, got %d", len(entries))
	}
}

func TestSaveRefusesUnsafeIDs(t *testing.T) {
	store := NewDefinitionStore(t.TempDir())
	if _, _, err := store.Save(testJob(t, "ab"), core.FormatYAML); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, id := range []string{"a/b", "a b", "../../etc", ".hidden"} {
		if _, _, err := store.Save(testJob(t, id), core.FormatYAML); !errors.Is(err, ErrUnsafeID) {
			t.Fatalf("Save(%q) = %v, want ErrUnsafeID", id, err)
		}
	}

	jobs, err := store.Scan()
	if err != nil || len(jobs) != 1 || jobs[0].ID() != "ab" {
		t.Fatalf("refused saves must leave ab untouched: %v, %v", jobs, err)
	}
}

func TestSaveDetectsForeignFile(t *testing.T) {
	store := NewDefinitionStore(t.TempDir())
	other := testJob(t, "other")
	data, err := core.Encode(other, core.FormatYAML)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(store.Path("mine", core.FormatYAML), data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Save(testJob(t, "mine"), core.FormatYAML); !errors.Is(err, ErrIDCollision) {
		t.Fatalf("expected ErrIDCollision, got %v", err)
	}
}

func TestScanMissingDir(t *testing.T) {
	jobs, err := NewDefinitionStore(filepath.Join(t.TempDir(), "nope")).Scan()
	if err != nil || len(jobs) != 0 {
		t.Fatalf("Scan = %v, %v", jobs, err)
	}
}

func TestScanReportsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: [unterminated"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewDefinitionStore(dir).Scan(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"Lendkey_DagTemplate-Simple-V1": "Lendkey_DagTemplate-Simple-V1",
		"a/b c":                         "abc",
		"../../etc":                     "job....etc",
		"":                              "job",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
