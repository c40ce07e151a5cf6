package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across the four recoverable/fatal
// kinds described in the error handling design. ResourceUnavailable and
// NotFound are locally recoverable; ConfigError is surfaced to the CLI;
// InvariantViolation is fatal and aborts the simulation.
var (
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrConfig              = errors.New("config error")
	ErrInvariantViolation  = errors.New("invariant violated")
	ErrNotFound            = errors.New("not found")
)

// ResourceUnavailableError reports that a reservation or placement could
// not be satisfied given current capacity or affinity constraints.
type ResourceUnavailableError struct {
	Resource string
	Detail   string
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("resource unavailable: %s: %s", e.Resource, e.Detail)
}

func (e *ResourceUnavailableError) Unwrap() error { return ErrResourceUnavailable }

// NewResourceUnavailable constructs a ResourceUnavailableError.
func NewResourceUnavailable(resource, detail string) error {
	return &ResourceUnavailableError{Resource: resource, Detail: detail}
}

// ConfigErr reports a missing or unresolvable name in a scenario document.
type ConfigErr struct {
	Field  string
	Detail string
}

func (e *ConfigErr) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Detail)
}

func (e *ConfigErr) Unwrap() error { return ErrConfig }

// NewConfigError constructs a ConfigErr.
func NewConfigError(field, detail string) error {
	return &ConfigErr{Field: field, Detail: detail}
}

// InvariantViolation is a fatal programmer error: negative reserved
// resources, a thread without an owning core while executing, a zombie
// still present in a sorted index, a transmission with payload < -1 byte,
// or an infinite next-event delta outside the THREAD-GEN transitional
// case. The driver never recovers from this; it aborts with a diagnostic.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Invariant, e.Detail)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariantViolation }

// Violatef panics with an InvariantViolation. Fatal invariants are bugs,
// not recoverable conditions, so they panic rather than return an error;
// callers at the driver boundary may recover and re-report as a diagnostic.
func Violatef(invariant, format string, args ...any) {
	panic(&InvariantViolation{Invariant: invariant, Detail: fmt.Sprintf(format, args...)})
}

// NotFoundErr reports a scenario id or service chain name absent at query time.
type NotFoundErr struct {
	Kind string
	Name string
}

func (e *NotFoundErr) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.Name)
}

func (e *NotFoundErr) Unwrap() error { return ErrNotFound }

// NewNotFound constructs a NotFoundErr.
func NewNotFound(kind, name string) error {
	return &NotFoundErr{Kind: kind, Name: name}
}
