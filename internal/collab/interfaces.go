// Package collab declares the boundary interfaces the sync engine consumes:
// a walker over the document store and a gateway to the reminder service.
// Concrete implementations live under internal/gateway/*.
package collab

import (
	"context"
	"errors"

	"github.com/dnoble/vaultsync/internal/model"
)

// WriteResult reports the outcome of a document-side line mutation.
type WriteResult int

const (
	// WriteOK indicates the mutation succeeded.
	WriteOK WriteResult = iota
	// WriteNotFound indicates the target line no longer matches the
	// expected block id (the file changed underneath the caller).
	WriteNotFound
	// WriteIOError indicates a filesystem error occurred.
	WriteIOError
)

// DocumentWalker lists and mutates tasks in the document store (a vault of
// Markdown files). Implemented by internal/gateway/markdown.Walker.
type DocumentWalker interface {
	// ListTasks returns every task in the vault, optionally excluding
	// done ones. Cancelled tasks are always returned.
	ListTasks(ctx context.Context, vaultPath string, includeCompleted bool) ([]model.DocumentTask, error)

	// RewriteTaskLine replaces the line at lineNumber in absolutePath with
	// newRawLine, provided the line still carries expectedBlockID (or the
	// line has no block id and expectedBlockID is empty).
	RewriteTaskLine(ctx context.Context, absolutePath string, lineNumber int, newRawLine string, expectedBlockID string) (WriteResult, error)

	// DeleteTaskLine removes the line at lineNumber, under the same
	// expectedBlockID guard as RewriteTaskLine.
	DeleteTaskLine(ctx context.Context, absolutePath string, lineNumber int, expectedBlockID string) (WriteResult, error)

	// AppendTask appends formattedLine to targetFile, optionally under a
	// given Markdown heading (creating the heading if absent), and
	// returns the new line's number and its block id (minted and appended
	// to the line when formattedLine carries none).
	AppendTask(ctx context.Context, targetFile, formattedLine, heading string) (lineNumber int, blockID string, err error)
}

// GatewayErrorKind classifies a ReminderGateway failure so callers can
// decide whether to retry, skip, or abort.
type GatewayErrorKind int

const (
	// GatewayErrorUnknown is an unclassified failure.
	GatewayErrorUnknown GatewayErrorKind = iota
	// GatewayErrorAuthDenied indicates the gateway rejected credentials.
	GatewayErrorAuthDenied
	// GatewayErrorTimeout indicates the call did not complete in time.
	GatewayErrorTimeout
	// GatewayErrorNotFound indicates the targeted record does not exist.
	GatewayErrorNotFound
)

// GatewayError wraps a reminder-service failure with a classified kind.
type GatewayError struct {
	Kind    GatewayErrorKind
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

// IsAuthDenied reports whether err is a GatewayError classified as an
// authorization failure. Component boundaries that call into a
// ReminderGateway check this to short-circuit further gateway calls for
// the current run rather than retrying a credential that won't recover
// mid-run.
func IsAuthDenied(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind == GatewayErrorAuthDenied
	}
	return false
}

// FieldChanges carries a sparse set of field updates for ReminderGateway.Update.
// Nil pointers mean "leave unchanged".
type FieldChanges struct {
	Title    *string
	Notes    *string
	DueDate  *model.Date
	Priority *model.Priority
	Status   *model.Status

	// ListID moves the record to a different list (a reroute).
	ListID *string
}

// ReminderGateway lists and mutates records in the external reminder
// service, one list and one record at a time. Implemented by
// internal/gateway/hatodo.Adapter and internal/gateway/eventkit.Adapter.
type ReminderGateway interface {
	// ListTasks returns every record across the given lists, optionally
	// excluding completed ones.
	ListTasks(ctx context.Context, listIDs []string, includeCompleted bool) ([]model.ReminderTask, error)

	// Create adds a new record to listID and returns its native item id.
	Create(ctx context.Context, listID string, task model.ReminderTask) (itemID string, err error)

	// Update applies a sparse field change set to an existing record.
	Update(ctx context.Context, itemID string, changes FieldChanges) error

	// Delete removes a record by its native item id.
	Delete(ctx context.Context, itemID string) error
}

// CalendarImporter appends daily-note calendar-event sections to the
// document store. Out of scope for the core sync loop; no implementation
// ships in this module.
type CalendarImporter interface {
	ImportDay(ctx context.Context, vaultPath string, day model.Date) error
}
