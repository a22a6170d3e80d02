// Package apperr defines the error taxonomy shared by all stores.
//
// Each failure class has a sentinel for errors.Is checks and, where a
// caller needs specifics (which entity, which references broke), a
// carrier struct whose Unwrap returns the sentinel.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("duplicate name")
	ErrFormat        = errors.New("unrecognized format")
	ErrValidation    = errors.New("validation failed")
	ErrReference     = errors.New("dangling reference")
	ErrConflict      = errors.New("conflict")
	ErrIO            = errors.New("io failure")
)

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	Kind string // "node", "edge", "snapshot", "diagram", "file"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// DuplicateNameError reports a label collision on create or rename.
type DuplicateNameError struct {
	Label      string
	ExistingID string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a node named %q already exists (id %s)", e.Label, e.ExistingID)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// FormatError reports an unparseable or unrecognized-version document.
type FormatError struct {
	Path   string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Detail)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// Format builds a FormatError.
func Format(path, detail string) error {
	return &FormatError{Path: path, Detail: detail}
}

// Formatf builds a FormatError with a formatted detail message.
func Formatf(path, format string, args ...any) error {
	return &FormatError{Path: path, Detail: fmt.Sprintf(format, args...)}
}

// ValidationError carries the full list of referential-integrity
// violations found in a document, so callers can surface every broken
// reference rather than the first one.
type ValidationError struct {
	Path       string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d violation(s): %s", e.Path, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ReferenceError reports a single dangling link from one entity to another.
type ReferenceError struct {
	From   string
	To     string
	Detail string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s references missing %s: %s", e.From, e.To, e.Detail)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

// IO wraps an underlying file-store failure. Not-found conditions must
// use NotFound instead so callers can tell the two apart.
func IO(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrIO, err)
}
