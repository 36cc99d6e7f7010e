package reconcile

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error kinds. Adapters mark their errors with one of these so the engine can
// decide whether to skip a record, abort a cycle or refuse to start.
var (
	// ErrConfiguration marks a malformed Mapping, AttributeMap or registry.
	// It is fatal and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrPersistence marks an adapter-level rejection of a create or update
	// (validation, uniqueness). It is reported per record and does not abort the cycle.
	ErrPersistence = errors.New("persistence error")

	// ErrTransient marks an adapter I/O failure. The cycle for the mapping stops
	// early and its window is not advanced.
	ErrTransient = errors.New("transient error")

	// ErrNotFound is returned by Find when no record carries the identity.
	ErrNotFound = errors.New("record not found")
)

// Configurationf creates a configuration error with a formatted message.
func Configurationf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// Persistence wraps err as a persistence error.
func Persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrPersistence)
}

// Transient wraps err as a transient error.
func Transient(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrTransient)
}

// NotFoundf creates a not-found error for the given record type and identity.
func NotFoundf(recordType, id string) error {
	return errors.Mark(errors.Newf("%s %q not found", recordType, id), ErrNotFound)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return err != nil && errors.Is(err, ErrConfiguration)
}

// IsPersistence reports whether err is a per-record persistence error.
func IsPersistence(err error) bool {
	return err != nil && errors.Is(err, ErrPersistence)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// IsTransient reports whether err should stop the cycle and leave the window
// untouched. Context cancellation and deadlines count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Failure describes a record that could not be created or updated.
// The attempted attribute patch is kept for the report.
type Failure struct {
	Key        ChangeKey  `json:"key"`
	Operation  string     `json:"operation"`
	Side       Side       `json:"side"`
	Attributes Attributes `json:"attributes,omitempty"`
	Err        error      `json:"-"`
	Message    string     `json:"error"`
}

func newFailure(key ChangeKey, op string, side Side, attrs Attributes, err error) Failure {
	return Failure{
		Key:        key,
		Operation:  op,
		Side:       side,
		Attributes: attrs,
		Err:        err,
		Message:    err.Error(),
	}
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s on %s: %v", f.Operation, f.Key, f.Side, f.Err)
}
