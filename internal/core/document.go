package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is a serialization of a Job that the orchestrator can load.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Ext returns the file extension used for the format, with the leading dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".yaml"
}

// document is the on-the-wire shape of a Job.
type document struct {
	ID       string        `json:"id" yaml:"id"`
	Owner    string        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Schedule string        `json:"schedule" yaml:"schedule"`
	Timeout  string        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Doc      string        `json:"doc,omitempty" yaml:"doc,omitempty"`
	Tags     []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Steps    []stepPayload `json:"steps" yaml:"steps"`
	Edges    []edgePayload `json:"edges" yaml:"edges"`
}

type stepPayload struct {
	ID      string `json:"id" yaml:"id"`
	Kind    string `json:"kind" yaml:"kind"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

type edgePayload struct {
	Upstream   string `json:"upstream" yaml:"upstream"`
	Downstream string `json:"downstream" yaml:"downstream"`
}

func documentFromJob(job *Job) document {
	doc := document{
		ID:       job.id,
		Owner:    job.owner,
		Schedule: job.schedule.String(),
		Doc:      job.doc,
		Tags:     append([]string(nil), job.tags...),
		Steps:    make([]stepPayload, 0, len(job.steps)),
		Edges:    make([]edgePayload, 0, len(job.edges)),
	}
	if job.timeout > 0 {
		doc.Timeout = job.timeout.String()
	}
	for _, s := range job.steps {
		doc.Steps = append(doc.Steps, stepPayload{ID: s.ID, Kind: s.Kind.String(), Command: string(s.Command)})
	}
	for _, e := range job.edges {
		doc.Edges = append(doc.Edges, edgePayload{Upstream: e.Upstream, Downstream: e.Downstream})
	}
	return doc
}

// canonical orders steps and edges so that equal graphs serialize identically.
func (d document) canonical() document {
	sort.Slice(d.Steps, func(i, j int) bool { return d.Steps[i].ID < d.Steps[j].ID })
	sort.Slice(d.Edges, func(i, j int) bool {
		a, b := d.Edges[i], d.Edges[j]
		if a.Upstream != b.Upstream {
			return a.Upstream < b.Upstream
		}
		return a.Downstream < b.Downstream
	})
	return d
}

func (d document) build() (*Job, error) {
	b := NewJob(d.ID).
		Owner(d.Owner).
		Schedule(d.Schedule).
		Doc(d.Doc).
		Tags(d.Tags...)

	if strings.TrimSpace(d.Timeout) != "" {
		timeout, err := time.ParseDuration(strings.TrimSpace(d.Timeout))
		if err != nil {
			return nil, invalidf("job %q: timeout %q: %v", d.ID, d.Timeout, err)
		}
		b.Timeout(timeout)
	}

	for i, s := range d.Steps {
		kind, err := ParseStepKind(s.Kind)
		if err != nil {
			// Steps without an explicit kind are shell steps when they carry a command.
			if strings.TrimSpace(s.Kind) != "" {
				return nil, invalidf("step[%d] %q: %v", i, s.ID, err)
			}
			kind = StepKindNoOp
			if strings.TrimSpace(s.Command) != "" {
				kind = StepKindShell
			}
		}
		b.Add(Step{ID: s.ID, Kind: kind, Command: Command(s.Command)})
	}
	for _, e := range d.Edges {
		b.Edge(b.Ref(e.Upstream), b.Ref(e.Downstream))
	}
	return b.Build()
}

// Encode serializes job in the given format.
func Encode(job *Job, format Format) ([]byte, error) {
	doc := documentFromJob(job)
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Decode parses a serialized job. Edges naming undeclared steps fail with
// ErrUnknownStep; unknown fields are rejected.
func Decode(data []byte, format Format) (*Job, error) {
	var doc document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json definition: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml definition: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return doc.build()
}
