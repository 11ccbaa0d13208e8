package munger

import (
	"errors"
	"fmt"
)

// ErrorKind classifies load-time failures.
type ErrorKind int

// Load failure kinds.
const (
	ConfigFailure ErrorKind = iota + 1
	RetrievalFailure
	DecodeFailure
	ReprojectionFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigFailure:
		return "config failure"
	case RetrievalFailure:
		return "retrieval failure"
	case DecodeFailure:
		return "decode failure"
	case ReprojectionFailure:
		return "reprojection failure"
	default:
		return "unknown failure"
	}
}

// LoadError is returned when a layer cannot be built. The whole load fails
// with the first LoadError; no partial Munger is returned.
type LoadError struct {
	Kind  ErrorKind
	Layer string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("munger: %s for layer %q: %v", e.Kind, e.Layer, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(kind ErrorKind, layer string, err error) *LoadError {
	return &LoadError{Kind: kind, Layer: layer, Err: err}
}

// IsKind reports whether err wraps a LoadError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == kind
}
