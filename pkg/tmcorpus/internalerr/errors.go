package internalerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMissingInput     = errors.New("missing input")
	ErrPreprocessing    = errors.New("preprocessing failed")
	ErrConsistency      = errors.New("corpus table inconsistent")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// MissingInputError is returned when a preprocessing session starts on a table
// that carries neither texts nor tokens.
type MissingInputError struct {
	Dataset string
}

func (e *MissingInputError) Error() string {
	if e.Dataset == "" {
		return "no texts available for preprocessing, load a dataset first"
	}
	return fmt.Sprintf("dataset %q: no texts available for preprocessing, load a dataset first", e.Dataset)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

// PreprocessingError wraps a failure raised by a preprocessor capability.
// The table and the step registry are left untouched when it is returned.
type PreprocessingError struct {
	Language string
	Cause    error
}

func (e *PreprocessingError) Error() string {
	return fmt.Sprintf("preprocess batch (language %s): %v", e.Language, e.Cause)
}

func (e *PreprocessingError) Unwrap() error { return e.Cause }

func (e *PreprocessingError) Is(target error) bool { return target == ErrPreprocessing }

// ConsistencyError reports a column length or token/text divergence inside a
// corpus table. It always indicates a bug upstream.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "corpus table inconsistent: " + e.Detail
}

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }

// NotFoundError is returned when no data exists at any candidate location.
type NotFoundError struct {
	Name  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("dataset %q not found", e.Name)
	}
	return fmt.Sprintf("dataset %q not found, tried: %s", e.Name, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
