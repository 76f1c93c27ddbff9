package shareaudit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrDownloadNotFound indicates a download audit record was not found
	ErrDownloadNotFound = errors.New("download audit record not found")

	// ErrFileNotFound indicates a file lookup failed
	ErrFileNotFound = errors.New("file not found")

	// ErrAccountNotFound indicates a user lookup failed
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvitationNotFound indicates an invitation lookup failed
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrSettingNotFound indicates a configuration key has no stored value
	ErrSettingNotFound = errors.New("setting not found")

	// ErrUnknownSetting indicates a configuration key was never registered
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidSettingValue indicates a setting write failed validation
	ErrInvalidSettingValue = errors.New("invalid setting value")

	// ErrInvalidDateRange indicates a malformed explicit date range
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrRowCapExceeded indicates an export was truncated at its row cap
	ErrRowCapExceeded = errors.New("row cap exceeded")
)

// AuditError represents an error related to download audit operations
type AuditError struct {
	RecordID uuid.UUID
	Op       string
	Err      error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("audit operation %s failed for record %s: %v", e.Op, e.RecordID, e.Err)
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

// ActivityError represents an error related to activity log operations
type ActivityError struct {
	Action string
	Op     string
	Err    error
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("activity operation %s failed for action %q: %v", e.Op, e.Action, e.Err)
}

func (e *ActivityError) Unwrap() error {
	return e.Err
}

// SettingError represents an error related to the settings registry
type SettingError struct {
	Key string
	Op  string
	Err error
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("setting operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *SettingError) Unwrap() error {
	return e.Err
}

// ExportError represents an error raised while streaming an export
type ExportError struct {
	Format string
	Op     string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export operation %s failed for format %s: %v", e.Op, e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
