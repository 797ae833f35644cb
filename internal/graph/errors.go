package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycleFound  = errors.New("cycle detected")
	ErrNoSoleSink  = errors.New("graph has no sole sink")
	ErrUnknownStep = errors.New("unknown step")
)

// GraphError carries one of the sentinels above plus detail.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycleFound, Msg: msg}
}

func sinkErrorf(format string, args ...any) error {
	return &GraphError{Kind: ErrNoSoleSink, Msg: fmt.Sprintf(format, args...)}
}

func unknownf(format string, args ...any) error {
	return &GraphError{Kind: ErrUnknownStep, Msg: fmt.Sprintf(format, args...)}
}
