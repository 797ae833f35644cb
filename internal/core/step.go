package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

// StepKind says what a step does when the orchestrator runs it.
type StepKind int8

const (
	StepKindMin   StepKind = iota
	StepKindShell          // runs Command in a shell
	StepKindNoOp           // does nothing, used as a join point
	StepKindMax
)

func (k StepKind) String() string {
	switch k {
	case StepKindShell:
		return "shell"
	case StepKindNoOp:
		return "noop"
	default:
		return "unknown-step-kind-" + strconv.Itoa(int(k))
	}
}

func (k StepKind) Valid() bool {
	return k > StepKindMin && k < StepKindMax
}

// ParseStepKind is the inverse of StepKind.String.
func ParseStepKind(s string) (StepKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shell", "bash":
		return StepKindShell, nil
	case "noop", "dummy":
		return StepKindNoOp, nil
	default:
		return StepKindMin, fmt.Errorf("unknown step kind %q", s)
	}
}

// Command is a shell command template. Substitution tokens such as {{ run_id }}
// are resolved by the orchestrator at run time and are kept verbatim here.
type Command string

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Tokens returns the substitution tokens referenced by the command, in order of
// first appearance.
func (c Command) Tokens() []string {
	matches := tokenPattern.FindAllStringSubmatch(string(c), -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// Argv splits the first simple command of the line into words. Everything after
// a control operator (&&, ;, |) is left to the shell.
func (c Command) Argv() ([]string, error) {
	if strings.TrimSpace(string(c)) == "" {
		return nil, nil
	}
	return shellwords.Parse(string(c))
}

// Program returns the first word of the command, or "" for an empty command.
func (c Command) Program() string {
	argv, err := c.Argv()
	if err != nil || len(argv) == 0 {
		return ""
	}
	return argv[0]
}

// Step is one unit of work inside a Job.
type Step struct {
	ID      string   // unique within the job
	Kind    StepKind // shell or noop
	Command Command  // empty for noop steps
}

// Edge says Downstream must not start until Upstream completes.
type Edge struct {
	Upstream   string
	Downstream string
}

func (e Edge) String() string { return e.Upstream + " -> " + e.Downstream }
