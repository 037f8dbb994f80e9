package mutators

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownMutator indicates that no mutator is registered under the name
	ErrUnknownMutator = errors.New("unknown mutator")

	// ErrInvalidArgs indicates that mutation arguments could not be decoded
	ErrInvalidArgs = errors.New("invalid mutation arguments")
)

// Failure describes one failed sub-mutation of a batch.
type Failure struct {
	Err      error  `json:"-"`
	Mutation string `json:"mutation"`
	Key      string `json:"key"`
}

// BatchError collects the failures of updateFromStore sub-mutations.
// Sibling sub-mutations that succeeded have been applied, so the log commits
// the transaction and only reports this error to the submitter.
type BatchError struct {
	Failures []Failure
	Applied  int
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s %s: %v", f.Mutation, f.Key, f.Err))
	}
	return fmt.Sprintf("%d of %d sub-mutations failed: %s",
		len(e.Failures), len(e.Failures)+e.Applied, strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// IsPartial reports whether err is a batch error whose successful parts must be kept.
func IsPartial(err error) bool {
	var batchErr *BatchError
	return errors.As(err, &batchErr)
}
