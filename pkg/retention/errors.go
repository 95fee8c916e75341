package retention

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies retention errors.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindStorage
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// KindOf returns the kind of the outermost retention error in err's chain.
// A StorageError wrapping a NotFoundError is a storage failure.
func KindOf(err error) Kind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *ValidationError, ValidationErrors:
			return KindValidation
		case *NotFoundError:
			return KindNotFound
		case *StorageError:
			return KindStorage
		}
	}
	return KindUnknown
}

// ValidationError reports a rejected input. It is returned synchronously by
// mutating operations and is never retried.
type ValidationError struct {
	Field   string // Offending field ("name", "retention_period", etc.)
	Message string // Human readable reason
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ValidationErrors aggregates several field errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// As lets errors.As find the first contained ValidationError.
func (e ValidationErrors) As(target any) bool {
	if len(e) == 0 {
		return false
	}
	if t, ok := target.(**ValidationError); ok {
		*t = e[0]
		return true
	}
	return false
}

// NotFoundError reports a missing entity, such as a file whose folder has no
// active policy.
type NotFoundError struct {
	Resource string // "policy", "file_retention", "file", etc.
	ID       string // Identifier that was looked up
	Message  string // Optional detail
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found", e.Resource)
	if e.ID != "" {
		msg = fmt.Sprintf("%s not found [id=%s]", e.Resource, e.ID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource string, id any, message string) *NotFoundError {
	e := &NotFoundError{Resource: resource, Message: message}
	if id != nil {
		e.ID = fmt.Sprint(id)
	}
	return e
}

// StorageError represents a failure of the database or file tree.
type StorageError struct {
	Backend   string // "sqlite", "postgres", "filetree", etc.
	Operation string // Operation that failed ("copy", "create_folder", etc.)
	FileID    int64  // Affected item, zero when not applicable
	PolicyID  int64  // Governing policy, zero when not applicable
	Action    Action // Retention action in progress, if any
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "storage error [backend=%s, operation=%s", e.Backend, e.Operation)
	if e.FileID != 0 {
		fmt.Fprintf(&b, ", file_id=%d", e.FileID)
	}
	if e.PolicyID != 0 {
		fmt.Fprintf(&b, ", policy_id=%d", e.PolicyID)
	}
	if e.Action != "" {
		fmt.Fprintf(&b, ", action=%s", e.Action)
	}
	fmt.Fprintf(&b, "]: %v", e.Cause)
	return b.String()
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// NewActionError creates a StorageError for a failed file action.
func NewActionError(r *FileRetention, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   "filetree",
		Operation: operation,
		FileID:    r.FileID,
		PolicyID:  r.PolicyID,
		Action:    r.Action,
		Cause:     cause,
	}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
