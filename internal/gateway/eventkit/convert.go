package eventkit

import (
	ekreminders "github.com/BRO3886/go-eventkit/reminders"

	"github.com/dnoble/vaultsync/internal/model"
)

// reminderToTask converts an EventKit Reminder to a [model.ReminderTask].
// listName is passed explicitly because the go-eventkit Reminder.List field
// may differ from the config mapping key in edge cases (e.g. leading or
// trailing whitespace).
func reminderToTask(r *ekreminders.Reminder, listName string) model.ReminderTask {
	status := model.StatusTodo
	if r.Completed {
		status = model.StatusDone
	}

	task := model.ReminderTask{
		ItemID:   r.ID,
		ListID:   listName,
		ListName: listName,
		Status:   status,
		Title:    r.Title,
		Notes:    r.Notes,
		Priority: model.PriorityFromReminderScale(int(r.Priority)),
	}

	if r.DueDate != nil {
		task.DueDate = model.NewDate(*r.DueDate)
	}
	if r.ModifiedAt != nil {
		task.ModifiedAt = *r.ModifiedAt
	}

	return task
}

// taskToCreateInput builds an EventKit CreateReminderInput from a
// [model.ReminderTask].
func taskToCreateInput(listID string, task model.ReminderTask) ekreminders.CreateReminderInput {
	input := ekreminders.CreateReminderInput{
		Title:    task.Title,
		Notes:    task.Notes,
		ListName: listID,
		Priority: priorityToEventKit(task.Priority),
	}

	if !task.DueDate.IsZero() {
		t := task.DueDate.Time()
		input.DueDate = &t
	}

	return input
}

// taskToUpdateInput builds an EventKit UpdateReminderInput carrying only the
// fields present in changes.
func taskToUpdateInput(changes fieldChanges) ekreminders.UpdateReminderInput {
	var input ekreminders.UpdateReminderInput

	if changes.title != nil {
		input.Title = changes.title
	}
	if changes.notes != nil {
		input.Notes = changes.notes
	}
	if changes.priority != nil {
		prio := priorityToEventKit(*changes.priority)
		input.Priority = &prio
	}
	if changes.dueDate != nil {
		if changes.dueDate.IsZero() {
			input.ClearDueDate = true
		} else {
			t := changes.dueDate.Time()
			input.DueDate = &t
		}
	}

	return input
}

// fieldChanges is the eventkit-local projection of collab.FieldChanges.
// Status is handled separately via CompleteReminder/UncompleteReminder, and
// ListID has no EventKit analogue for an in-place move (see Adapter.Update).
type fieldChanges struct {
	title    *string
	notes    *string
	dueDate  *model.Date
	priority *model.Priority
}

// priorityToEventKit maps a model.Priority back to the EventKit constant.
// The mapping is lossless because model.Priority values are a subset of
// EventKit priorities (0, 1, 5, 9).
func priorityToEventKit(p model.Priority) ekreminders.Priority {
	switch p {
	case model.PriorityHigh:
		return ekreminders.PriorityHigh
	case model.PriorityMedium:
		return ekreminders.PriorityMedium
	case model.PriorityLow:
		return ekreminders.PriorityLow
	default:
		return ekreminders.PriorityNone
	}
}
