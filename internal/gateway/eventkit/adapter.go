// Package eventkit implements collab.ReminderGateway against Apple
// Reminders via the go-eventkit wrapper, converting between native
// EventKit types and the shared [model.ReminderTask] representation.
//
// The adapter exposes only the operations needed by the sync engine. It
// accepts context.Context on every method for API consistency with the
// rest of the codebase, even though the underlying cgo calls are
// non-cancellable (sub-200ms latency).
package eventkit

import (
	"context"
	"fmt"
	"log/slog"

	ekreminders "github.com/BRO3886/go-eventkit/reminders"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/model"
)

// EventKitClient is the subset of [ekreminders.Client] methods used by the
// adapter. Defining it as an interface allows mock injection in tests.
type EventKitClient interface {
	Reminders(opts ...ekreminders.ListOption) ([]ekreminders.Reminder, error)
	CreateReminder(input ekreminders.CreateReminderInput) (*ekreminders.Reminder, error)
	UpdateReminder(id string, input ekreminders.UpdateReminderInput) (*ekreminders.Reminder, error)
	DeleteReminder(id string) error
	CompleteReminder(id string) (*ekreminders.Reminder, error)
	UncompleteReminder(id string) (*ekreminders.Reminder, error)
}

// Adapter implements collab.ReminderGateway against Apple Reminders via
// EventKit. Create one with [NewAdapter] or [NewAdapterWithClient].
type Adapter struct {
	client EventKitClient
	log    *slog.Logger
}

// NewAdapter creates an Adapter backed by a real EventKit client.
// This triggers the macOS TCC permissions prompt on first use.
func NewAdapter(logger *slog.Logger) (*Adapter, error) {
	c, err := ekreminders.New()
	if err != nil {
		return nil, fmt.Errorf("initialising reminders client: %w", err)
	}
	return &Adapter{client: c, log: logger}, nil
}

// NewAdapterWithClient creates an Adapter with a caller-supplied client.
// Intended for testing with a mock [EventKitClient].
func NewAdapterWithClient(client EventKitClient, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, log: logger}
}

// ListTasks returns reminders across the given list names, optionally
// excluding completed ones. listIDs and list names are the same string for
// this gateway — EventKit has no separate stable list identifier.
func (a *Adapter) ListTasks(ctx context.Context, listIDs []string, includeCompleted bool) ([]model.ReminderTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	var tasks []model.ReminderTask
	for _, name := range listIDs {
		a.log.Debug("fetching reminders", "list", name)

		rems, err := a.client.Reminders(ekreminders.WithList(name))
		if err != nil {
			return nil, fmt.Errorf("fetching reminders for list %q: %w", name, err)
		}

		for i := range rems {
			t := reminderToTask(&rems[i], name)
			if !includeCompleted && t.Status == model.StatusDone {
				continue
			}
			tasks = append(tasks, t)
		}
		a.log.Debug("fetched reminders", "list", name, "count", len(rems))
	}
	return tasks, nil
}

// Create creates a new reminder from a [model.ReminderTask] and returns the
// UID assigned by EventKit.
func (a *Adapter) Create(ctx context.Context, listID string, task model.ReminderTask) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("create reminder: %w", err)
	}

	input := taskToCreateInput(listID, task)
	a.log.Debug("creating reminder", "title", task.Title, "list", listID)

	rem, err := a.client.CreateReminder(input)
	if err != nil {
		return "", fmt.Errorf("creating reminder %q in list %q: %w", task.Title, listID, err)
	}

	// CreateReminder always creates an incomplete reminder; complete it now
	// if the task already carries a done status.
	if task.Status == model.StatusDone {
		if _, err := a.client.CompleteReminder(rem.ID); err != nil {
			return rem.ID, fmt.Errorf("marking new reminder %q as completed: %w", rem.ID, err)
		}
	}

	return rem.ID, nil
}

// Update applies a sparse field change set to an existing reminder.
// Status changes go through the dedicated Complete/Uncomplete APIs so
// EventKit's CompletionDate is set or cleared correctly. ListID has no
// in-place move in EventKit; a reroute is applied as create-then-delete.
func (a *Adapter) Update(ctx context.Context, itemID string, changes collab.FieldChanges) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}

	if changes.ListID != nil {
		return a.reroute(ctx, itemID, *changes.ListID, changes)
	}

	a.log.Debug("updating reminder", "item_id", itemID)

	local := fieldChanges{title: changes.Title, notes: changes.Notes, dueDate: changes.DueDate, priority: changes.Priority}
	input := taskToUpdateInput(local)
	if _, err := a.client.UpdateReminder(itemID, input); err != nil {
		return fmt.Errorf("updating reminder %q: %w", itemID, err)
	}

	if changes.Status != nil {
		if *changes.Status == model.StatusDone {
			if _, err := a.client.CompleteReminder(itemID); err != nil {
				return fmt.Errorf("completing reminder %q: %w", itemID, err)
			}
		} else {
			if _, err := a.client.UncompleteReminder(itemID); err != nil {
				return fmt.Errorf("uncompleting reminder %q: %w", itemID, err)
			}
		}
	}

	return nil
}

func (a *Adapter) reroute(ctx context.Context, itemID, targetList string, changes collab.FieldChanges) error {
	rems, err := a.client.Reminders()
	if err != nil {
		return fmt.Errorf("reroute %q: listing current state: %w", itemID, err)
	}
	var current *ekreminders.Reminder
	for i := range rems {
		if rems[i].ID == itemID {
			current = &rems[i]
			break
		}
	}
	if current == nil {
		return &collab.GatewayError{Kind: collab.GatewayErrorNotFound, Message: fmt.Sprintf("reminder %q not found for reroute", itemID)}
	}

	task := reminderToTask(current, targetList)
	if changes.Title != nil {
		task.Title = *changes.Title
	}
	if changes.Notes != nil {
		task.Notes = *changes.Notes
	}
	if changes.DueDate != nil {
		task.DueDate = *changes.DueDate
	}
	if changes.Priority != nil {
		task.Priority = *changes.Priority
	}
	if changes.Status != nil {
		task.Status = *changes.Status
	}

	if _, err := a.Create(ctx, targetList, task); err != nil {
		return fmt.Errorf("reroute %q to %s: %w", itemID, targetList, err)
	}
	if err := a.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("reroute %q: removing original: %w", itemID, err)
	}
	return nil
}

// Delete permanently removes a reminder by UID.
func (a *Adapter) Delete(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	a.log.Debug("deleting reminder", "item_id", itemID)
	if err := a.client.DeleteReminder(itemID); err != nil {
		return fmt.Errorf("deleting reminder %q: %w", itemID, err)
	}
	return nil
}
