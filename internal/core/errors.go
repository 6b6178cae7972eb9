package core

import (
	"errors"
	"fmt"
)

// IngestionErrorKind classifies fatal ingestion failures.
type IngestionErrorKind string

const (
	KindUnrecognizedFormat IngestionErrorKind = "unrecognized_format"
	KindNoValidRows        IngestionErrorKind = "no_valid_rows"
)

// Sentinels for errors.Is matching against *IngestionError.
var (
	ErrUnrecognizedFormat = errors.New("unrecognized format")
	ErrNoValidRows        = errors.New("no valid glucose rows")
)

// IngestionError is returned by Normalize when the batch cannot be used.
// Report is set when rows were processed before the failure.
type IngestionError struct {
	Kind    IngestionErrorKind
	Message string
	Report  *IngestionReport
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel().Error(), e.Message)
}

func (e *IngestionError) sentinel() error {
	switch e.Kind {
	case KindNoValidRows:
		return ErrNoValidRows
	default:
		return ErrUnrecognizedFormat
	}
}

// Is matches the sentinel for the error's kind.
func (e *IngestionError) Is(target error) bool {
	return target == e.sentinel()
}

func unrecognized(format string, args ...any) *IngestionError {
	return &IngestionError{Kind: KindUnrecognizedFormat, Message: fmt.Sprintf(format, args...)}
}

// AsIngestionError extracts an *IngestionError from an error chain.
func AsIngestionError(err error) (*IngestionError, bool) {
	var ie *IngestionError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
