package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a request stopped
type ErrorKind uint8

const (
	InputError ErrorKind = iota
	NoDataError
	UnexpectedError
)

func (k ErrorKind) Name() string {
	switch k {
	case InputError:
		return "InputError"
	case NoDataError:
		return "NoDataError"
	case UnexpectedError:
		return "UnexpectedError"
	default:
		return ""
	}
}

// PipelineError is terminal for the request it came from
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (pe *PipelineError) Error() string {
	if pe.Err == nil {
		return pe.Message
	}
	return fmt.Sprintf("%s: %v", pe.Message, pe.Err)
}

func (pe *PipelineError) Unwrap() error {
	return pe.Err
}

func newPipelineError(kind ErrorKind, err error, format string, args ...any) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the kind of a PipelineError anywhere in the chain, anything else is unexpected
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return UnexpectedError
}
