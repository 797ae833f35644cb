package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDefinition = errors.New("invalid job definition")
	ErrUnknownStep       = errors.New("unknown step")
	ErrScheduleChanged   = errors.New("schedule changed for existing job id")
)

// DefinitionError wraps a definition-time failure with one of the sentinels above.
type DefinitionError struct {
	Kind error
	Msg  string
}

func (e *DefinitionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *DefinitionError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &DefinitionError{Kind: ErrInvalidDefinition, Msg: fmt.Sprintf(format, args...)}
}

func unknownStepf(format string, args ...any) error {
	return &DefinitionError{Kind: ErrUnknownStep, Msg: fmt.Sprintf(format, args...)}
}

// ScheduleChanged reports an attempt to reuse a job id under a different schedule.
func ScheduleChanged(jobID, was, now string) error {
	return &DefinitionError{
		Kind: ErrScheduleChanged,
		Msg:  fmt.Sprintf("job %q was scheduled %q, got %q (use a new id)", jobID, was, now),
	}
}
