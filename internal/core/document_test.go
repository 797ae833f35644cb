package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	job := sampleJob(t)

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(job, format)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			back, err := Decode(data, format)
			if err != nil {
				t.Fatalf("decode: %v\n%s", err, data)
			}

			if !reflect.DeepEqual(back.Steps(), job.Steps()) {
				t.Fatalf("steps differ: %v vs %v", back.Steps(), job.Steps())
			}
			if !reflect.DeepEqual(back.Edges(), job.Edges()) {
				t.Fatalf("edges differ: %v vs %v", back.Edges(), job.Edges())
			}
			if back.ID() != job.ID() || back.Owner() != job.Owner() || back.Doc() != job.Doc() {
				t.Fatal("metadata differs after round trip")
			}
			if back.Schedule().String() != job.Schedule().String() || back.Timeout() != job.Timeout() {
				t.Fatal("schedule or timeout differs after round trip")
			}
			if !reflect.DeepEqual(back.Tags(), job.Tags()) {
				t.Fatalf("tags differ: %v vs %v", back.Tags(), job.Tags())
			}
			if back.Version() != job.Version() {
				t.Fatalf("version differs: %s vs %s", back.Version(), job.Version())
			}
		})
	}
}

func TestEncodeKeepsTokensVerbatim(t *testing.T) {
	data, err := Encode(sampleJob(t), FormatYAML)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, token := range []string{"{{ task_instance_key_str }}", "{{ run_id }}"} {
		if !strings.Contains(string(data), token) {
			t.Fatalf("expected %q in output:\n%s", token, data)
		}
	}
}

func TestDecodeRejectsUndeclaredEdge(t *testing.T) {
	data := []byte(`
id: broken
schedule: "@daily"
steps:
  - id: a
    kind: shell
    command: echo a
edges:
  - upstream: a
    downstream: ghost
`)
	_, err := ParseJob(data)
	if !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	yamlDoc := []byte("id: j\nschedule: '@daily'\nretries: 3\nsteps:\n  - id: a\n    kind: noop\nedges: []\n")
	if _, err := Decode(yamlDoc, FormatYAML); err == nil {
		t.Fatal("expected unknown yaml field to be rejected")
	}
	jsonDoc := []byte(`{"id":"j","schedule":"@daily","retries":3,"steps":[{"id":"a","kind":"noop"}],"edges":[]}`)
	if _, err := Decode(jsonDoc, FormatJSON); err == nil {
		t.Fatal("expected unknown json field to be rejected")
	}
}

func TestDecodeInfersStepKind(t *testing.T) {
	data := []byte(`
id: inferred
schedule: "@hourly"
timeout: 30m
steps:
  - id: run
    command: echo hi
  - id: done
edges:
  - upstream: run
    downstream: done
`)
	job, err := ParseJob(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	run, _ := job.Step("run")
	done, _ := job.Step("done")
	if run.Kind != StepKindShell || done.Kind != StepKindNoOp {
		t.Fatalf("unexpected kinds: %s %s", run.Kind, done.Kind)
	}
	if job.Timeout().Minutes() != 30 {
		t.Fatalf("unexpected timeout %s", job.Timeout())
	}
}

func TestDecodeRejectsBadTimeout(t *testing.T) {
	data := []byte("id: j\nschedule: '@daily'\ntimeout: soon\nsteps:\n  - id: a\nedges: []\n")
	if _, err := ParseJob(data); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestLoadJob(t *testing.T) {
	dir := t.TempDir()
	job := sampleJob(t)

	data, err := Encode(job, FormatJSON)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, "sample.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadJob(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Version() != job.Version() {
		t.Fatal("loaded job differs from the encoded one")
	}

	if _, err := LoadJob(filepath.Join(dir, "sample.txt")); err == nil {
		t.Fatal("expected unsupported extension error")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatYAML, "YML": FormatYAML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Fatal("expected error for toml")
	}
}
