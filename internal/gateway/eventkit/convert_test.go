package eventkit

import (
	"testing"
	"time"

	ekreminders "github.com/BRO3886/go-eventkit/reminders"

	"github.com/dnoble/vaultsync/internal/model"
)

// ---------------------------------------------------------------------------
// reminderToTask
// ---------------------------------------------------------------------------

func TestReminderToTask_FullFields(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mod := time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)

	r := &ekreminders.Reminder{
		ID:         "EK-UID-123",
		Title:      "Buy milk",
		Notes:      "Whole milk preferred",
		List:       "Shopping",
		DueDate:    &due,
		ModifiedAt: &mod,
		Priority:   ekreminders.PriorityHigh,
		Completed:  false,
	}

	got := reminderToTask(r, "Shopping")

	if got.ItemID != "EK-UID-123" {
		t.Errorf("ItemID = %q, want %q", got.ItemID, "EK-UID-123")
	}
	if got.Title != "Buy milk" {
		t.Errorf("Title = %q, want %q", got.Title, "Buy milk")
	}
	if got.Notes != "Whole milk preferred" {
		t.Errorf("Notes = %q, want %q", got.Notes, "Whole milk preferred")
	}
	if got.DueDate.IsZero() || !got.DueDate.Equal(model.NewDate(due)) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.Priority != model.PriorityHigh {
		t.Errorf("Priority = %v, want %v", got.Priority, model.PriorityHigh)
	}
	if got.Status != model.StatusTodo {
		t.Error("Status = done, want todo")
	}
	if !got.ModifiedAt.Equal(mod) {
		t.Errorf("ModifiedAt = %v, want %v", got.ModifiedAt, mod)
	}
	if got.ListID != "Shopping" || got.ListName != "Shopping" {
		t.Errorf("ListID/ListName = %q/%q, want Shopping", got.ListID, got.ListName)
	}
}

func TestReminderToTask_NilOptionals(t *testing.T) {
	r := &ekreminders.Reminder{ID: "EK-UID-456", Title: "No due date", Priority: ekreminders.PriorityNone}

	got := reminderToTask(r, "Default")

	if !got.DueDate.IsZero() {
		t.Errorf("DueDate = %v, want zero", got.DueDate)
	}
	if got.Priority != model.PriorityNone {
		t.Errorf("Priority = %v, want %v", got.Priority, model.PriorityNone)
	}
}

func TestReminderToTask_PriorityNormalization(t *testing.T) {
	tests := []struct {
		ekPriority ekreminders.Priority
		want       model.Priority
	}{
		{0, model.PriorityNone},
		{1, model.PriorityHigh},
		{ekreminders.Priority(3), model.PriorityMedium},
		{5, model.PriorityMedium},
		{ekreminders.Priority(7), model.PriorityLow},
		{9, model.PriorityLow},
	}

	for _, tt := range tests {
		r := &ekreminders.Reminder{ID: "test", Priority: tt.ekPriority}
		got := reminderToTask(r, "Test")
		if got.Priority != tt.want {
			t.Errorf("priority(%d) -> %v, want %v", tt.ekPriority, got.Priority, tt.want)
		}
	}
}

func TestReminderToTask_CompletedState(t *testing.T) {
	r := &ekreminders.Reminder{ID: "done-task", Title: "Already done", Completed: true}
	got := reminderToTask(r, "Work")
	if got.Status != model.StatusDone {
		t.Error("Status = todo, want done")
	}
}

// ---------------------------------------------------------------------------
// taskToCreateInput
// ---------------------------------------------------------------------------

func TestTaskToCreateInput_FullFields(t *testing.T) {
	due := model.NewDate(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	task := model.ReminderTask{Title: "Write tests", Notes: "All edge cases", DueDate: due, Priority: model.PriorityMedium}

	got := taskToCreateInput("Work", task)

	if got.Title != "Write tests" {
		t.Errorf("Title = %q, want %q", got.Title, "Write tests")
	}
	if got.Notes != "All edge cases" {
		t.Errorf("Notes = %q, want %q", got.Notes, "All edge cases")
	}
	if got.ListName != "Work" {
		t.Errorf("ListName = %q, want %q", got.ListName, "Work")
	}
	if got.DueDate == nil || !got.DueDate.Equal(due.Time()) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.Priority != ekreminders.PriorityMedium {
		t.Errorf("Priority = %v, want %v", got.Priority, ekreminders.PriorityMedium)
	}
}

func TestTaskToCreateInput_NoDueDate(t *testing.T) {
	task := model.ReminderTask{Title: "No deadline", Priority: model.PriorityNone}
	got := taskToCreateInput("Personal", task)
	if got.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", got.DueDate)
	}
}

// ---------------------------------------------------------------------------
// taskToUpdateInput
// ---------------------------------------------------------------------------

func TestTaskToUpdateInput_FullFields(t *testing.T) {
	due := model.NewDate(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	title := "Updated title"
	notes := "Updated notes"
	prio := model.PriorityLow
	changes := fieldChanges{title: &title, notes: &notes, dueDate: &due, priority: &prio}

	got := taskToUpdateInput(changes)

	if got.Title == nil || *got.Title != "Updated title" {
		t.Errorf("Title = %v, want %q", got.Title, "Updated title")
	}
	if got.Notes == nil || *got.Notes != "Updated notes" {
		t.Errorf("Notes = %v, want %q", got.Notes, "Updated notes")
	}
	if got.DueDate == nil || !got.DueDate.Equal(due.Time()) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.Priority == nil || *got.Priority != ekreminders.PriorityLow {
		t.Errorf("Priority = %v, want %v", got.Priority, ekreminders.PriorityLow)
	}
	if got.ClearDueDate {
		t.Error("ClearDueDate = true, want false when DueDate is set")
	}
}

func TestTaskToUpdateInput_ClearDueDate(t *testing.T) {
	zero := model.Date{}
	changes := fieldChanges{dueDate: &zero}
	got := taskToUpdateInput(changes)
	if !got.ClearDueDate {
		t.Error("ClearDueDate = false, want true when DueDate is zero")
	}
	if got.DueDate != nil {
		t.Errorf("DueDate = %v, want nil when ClearDueDate is true", got.DueDate)
	}
}

func TestTaskToUpdateInput_NoFieldsChanged(t *testing.T) {
	got := taskToUpdateInput(fieldChanges{})
	if got.Title != nil || got.Notes != nil || got.Priority != nil || got.DueDate != nil || got.ClearDueDate {
		t.Errorf("expected an empty update input, got %+v", got)
	}
}

// ---------------------------------------------------------------------------
// priorityToEventKit
// ---------------------------------------------------------------------------

func TestPriorityToEventKit(t *testing.T) {
	tests := []struct {
		p    model.Priority
		want ekreminders.Priority
	}{
		{model.PriorityNone, ekreminders.PriorityNone},
		{model.PriorityHigh, ekreminders.PriorityHigh},
		{model.PriorityMedium, ekreminders.PriorityMedium},
		{model.PriorityLow, ekreminders.PriorityLow},
	}
	for _, tt := range tests {
		if got := priorityToEventKit(tt.p); got != tt.want {
			t.Errorf("priorityToEventKit(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Round-trip: ReminderTask -> CreateInput -> Reminder -> ReminderTask
// ---------------------------------------------------------------------------

func TestConversionRoundTrip(t *testing.T) {
	due := model.NewDate(time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC))
	mod := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)

	original := model.ReminderTask{
		Title:    "Round trip task",
		Notes:    "Test notes",
		DueDate:  due,
		Priority: model.PriorityHigh,
		Status:   model.StatusTodo,
		ListID:   "Shopping",
	}

	createInput := taskToCreateInput("Shopping", original)

	ekReminder := &ekreminders.Reminder{
		ID:         "new-uid",
		Title:      createInput.Title,
		Notes:      createInput.Notes,
		List:       createInput.ListName,
		DueDate:    createInput.DueDate,
		Priority:   createInput.Priority,
		Completed:  false,
		ModifiedAt: &mod,
	}

	result := reminderToTask(ekReminder, "Shopping")

	if result.Title != original.Title {
		t.Errorf("Title = %q, want %q", result.Title, original.Title)
	}
	if result.Notes != original.Notes {
		t.Errorf("Notes = %q, want %q", result.Notes, original.Notes)
	}
	if !result.DueDate.Equal(original.DueDate) {
		t.Errorf("DueDate = %v, want %v", result.DueDate, original.DueDate)
	}
	if result.Priority != original.Priority {
		t.Errorf("Priority = %v, want %v", result.Priority, original.Priority)
	}
	if result.Status != original.Status {
		t.Errorf("Status = %v, want %v", result.Status, original.Status)
	}
	if result.ListID != original.ListID {
		t.Errorf("ListID = %q, want %q", result.ListID, original.ListID)
	}
}
