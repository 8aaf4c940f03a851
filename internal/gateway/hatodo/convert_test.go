package hatodo

import (
	"testing"
	"time"

	"github.com/dnoble/vaultsync/internal/model"
)

// ---------------------------------------------------------------------------
// haItemToReminderTask
// ---------------------------------------------------------------------------

func TestHAItemToReminderTask_FullFields(t *testing.T) {
	h := haTodoItem{
		UID:         "ha-uid-123",
		Summary:     "Buy groceries",
		Status:      statusNeedsAction,
		Description: "[High] Whole milk and eggs",
		Due:         "2026-03-15",
	}

	got := haItemToReminderTask("todo.shopping", h)

	if got.ItemID != "ha-uid-123" {
		t.Errorf("ItemID = %q, want %q", got.ItemID, "ha-uid-123")
	}
	if got.Title != "Buy groceries" {
		t.Errorf("Title = %q, want %q", got.Title, "Buy groceries")
	}
	if got.Notes != "Whole milk and eggs" {
		t.Errorf("Notes = %q, want %q (priority prefix should be stripped)", got.Notes, "Whole milk and eggs")
	}
	if got.Priority != model.PriorityHigh {
		t.Errorf("Priority = %v, want %v", got.Priority, model.PriorityHigh)
	}
	if got.Status != model.StatusTodo {
		t.Error("Status = done, want todo")
	}
	if got.DueDate.IsZero() {
		t.Fatal("DueDate = zero, want 2026-03-15")
	}
	want := model.NewDate(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if !got.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, want)
	}
}

func TestHAItemToReminderTask_CompletedStatus(t *testing.T) {
	h := haTodoItem{UID: "done-1", Summary: "Done task", Status: statusCompleted}
	got := haItemToReminderTask("todo.shopping", h)
	if got.Status != model.StatusDone {
		t.Error("Status = todo, want done for status=completed")
	}
}

func TestHAItemToReminderTask_NoPriorityPrefix(t *testing.T) {
	h := haTodoItem{UID: "no-prio-1", Summary: "Plain task", Status: statusNeedsAction, Description: "Just a note"}
	got := haItemToReminderTask("todo.shopping", h)
	if got.Priority != model.PriorityNone {
		t.Errorf("Priority = %v, want %v", got.Priority, model.PriorityNone)
	}
	if got.Notes != "Just a note" {
		t.Errorf("Notes = %q, want %q", got.Notes, "Just a note")
	}
}

func TestHAItemToReminderTask_MediumPriority(t *testing.T) {
	h := haTodoItem{UID: "med-1", Summary: "Medium task", Description: "[Medium] Some details"}
	got := haItemToReminderTask("todo.shopping", h)
	if got.Priority != model.PriorityMedium {
		t.Errorf("Priority = %v, want %v", got.Priority, model.PriorityMedium)
	}
	if got.Notes != "Some details" {
		t.Errorf("Notes = %q, want %q", got.Notes, "Some details")
	}
}

func TestHAItemToReminderTask_LowPriority(t *testing.T) {
	h := haTodoItem{UID: "low-1", Summary: "Low task", Description: "[Low] Not urgent"}
	got := haItemToReminderTask("todo.shopping", h)
	if got.Priority != model.PriorityLow {
		t.Errorf("Priority = %v, want %v", got.Priority, model.PriorityLow)
	}
}

func TestHAItemToReminderTask_NoDueDate(t *testing.T) {
	h := haTodoItem{UID: "nodue-1", Summary: "No deadline", Status: statusNeedsAction}
	got := haItemToReminderTask("todo.shopping", h)
	if !got.DueDate.IsZero() {
		t.Errorf("DueDate = %v, want zero", got.DueDate)
	}
}

func TestHAItemToReminderTask_RFC3339DueDate(t *testing.T) {
	h := haTodoItem{UID: "rfc3339-1", Summary: "Datetime due", Due: "2026-04-01T14:30:00+02:00"}
	got := haItemToReminderTask("todo.shopping", h)
	if got.DueDate.IsZero() {
		t.Fatal("DueDate = zero, want parsed datetime")
	}
	want := model.NewDate(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if !got.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want 2026-04-01", got.DueDate)
	}
}

// ---------------------------------------------------------------------------
// buildAddItemData
// ---------------------------------------------------------------------------

func TestBuildAddItemData_FullFields(t *testing.T) {
	due := model.NewDate(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	task := model.ReminderTask{Title: "New task", Notes: "Some notes", Priority: model.PriorityHigh, DueDate: due}

	data := buildAddItemData("todo.shopping", task)

	if data["entity_id"] != "todo.shopping" {
		t.Errorf("entity_id = %v, want todo.shopping", data["entity_id"])
	}
	if data["item"] != "New task" {
		t.Errorf("item = %v, want New task", data["item"])
	}
	if data["description"] != "[High] Some notes" {
		t.Errorf("description = %v, want [High] Some notes", data["description"])
	}
	if data["due_date"] != "2026-05-01" {
		t.Errorf("due_date = %v, want 2026-05-01", data["due_date"])
	}
}

func TestBuildAddItemData_NoPriorityNoDescription(t *testing.T) {
	task := model.ReminderTask{Title: "Simple task", Priority: model.PriorityNone}

	data := buildAddItemData("todo.work", task)

	if _, ok := data["description"]; ok {
		t.Errorf("description should be absent for no-priority empty notes, got %v", data["description"])
	}
	if _, ok := data["due_date"]; ok {
		t.Errorf("due_date should be absent when unset, got %v", data["due_date"])
	}
}

func TestBuildAddItemData_PriorityOnlyNoDescription(t *testing.T) {
	task := model.ReminderTask{Title: "Priority only", Priority: model.PriorityMedium}

	data := buildAddItemData("todo.work", task)

	if data["description"] != "[Medium] " {
		t.Errorf("description = %q, want %q", data["description"], "[Medium] ")
	}
}

// ---------------------------------------------------------------------------
// buildUpdateItemData
// ---------------------------------------------------------------------------

func TestBuildUpdateItemData_TitleChanged(t *testing.T) {
	due := model.NewDate(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	title := "Updated title"
	notes := "Updated notes"
	prio := model.PriorityLow
	status := model.StatusTodo
	changes := fieldChanges{title: &title, notes: &notes, priority: &prio, status: &status, dueDate: &due}

	data := buildUpdateItemData("todo.shopping", "Old title", changes)

	if data["entity_id"] != "todo.shopping" {
		t.Errorf("entity_id = %v, want todo.shopping", data["entity_id"])
	}
	if data["item"] != "Old title" {
		t.Errorf("item = %v, want Old title", data["item"])
	}
	if data["rename"] != "Updated title" {
		t.Errorf("rename = %v, want Updated title", data["rename"])
	}
	if data["description"] != "[Low] Updated notes" {
		t.Errorf("description = %v, want [Low] Updated notes", data["description"])
	}
	if data["status"] != statusNeedsAction {
		t.Errorf("status = %v, want %s", data["status"], statusNeedsAction)
	}
	if data["due_date"] != "2026-06-01" {
		t.Errorf("due_date = %v, want 2026-06-01", data["due_date"])
	}
}

func TestBuildUpdateItemData_TitleUnchanged(t *testing.T) {
	title := "Same title"
	status := model.StatusDone
	changes := fieldChanges{title: &title, status: &status}

	data := buildUpdateItemData("todo.work", "Same title", changes)

	if _, ok := data["rename"]; ok {
		t.Error("rename should be absent when title unchanged")
	}
	if data["status"] != statusCompleted {
		t.Errorf("status = %v, want %s", data["status"], statusCompleted)
	}
}

func TestBuildUpdateItemData_NoFieldsChanged(t *testing.T) {
	data := buildUpdateItemData("todo.work", "Same title", fieldChanges{})

	if _, ok := data["description"]; ok {
		t.Error("description should be absent when neither notes nor priority changed")
	}
	if _, ok := data["status"]; ok {
		t.Error("status should be absent when not changed")
	}
}

// ---------------------------------------------------------------------------
// buildRemoveItemData
// ---------------------------------------------------------------------------

func TestBuildRemoveItemData(t *testing.T) {
	data := buildRemoveItemData("todo.shopping", "Old item")

	if data["entity_id"] != "todo.shopping" {
		t.Errorf("entity_id = %v, want todo.shopping", data["entity_id"])
	}
	if data["item"] != "Old item" {
		t.Errorf("item = %v, want Old item", data["item"])
	}
}

// ---------------------------------------------------------------------------
// parseDue
// ---------------------------------------------------------------------------

func TestParseDue_DateOnly(t *testing.T) {
	got, ok := parseDue("2026-03-15")
	if !ok {
		t.Fatal("parseDue returned ok=false")
	}
	want := model.NewDate(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if !got.Equal(want) {
		t.Errorf("parseDue = %v, want %v", got, want)
	}
}

func TestParseDue_RFC3339(t *testing.T) {
	got, ok := parseDue("2026-04-01T14:30:00+02:00")
	if !ok {
		t.Fatal("parseDue returned ok=false")
	}
	want := model.NewDate(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if !got.Equal(want) {
		t.Errorf("parseDue date = %v, want %v", got, want)
	}
}

func TestParseDue_Invalid(t *testing.T) {
	_, ok := parseDue("not-a-date")
	if ok {
		t.Error("expected ok=false for invalid date")
	}
}

// ---------------------------------------------------------------------------
// Round-trip: ReminderTask -> addData -> haTodoItem -> ReminderTask
// ---------------------------------------------------------------------------

func TestConversionRoundTrip(t *testing.T) {
	due := model.NewDate(time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC))
	original := model.ReminderTask{
		Title:    "Independence Day",
		Notes:    "Fireworks shopping",
		Priority: model.PriorityHigh,
		Status:   model.StatusTodo,
		DueDate:  due,
	}

	data := buildAddItemData("todo.events", original)

	haItem := haTodoItem{
		UID:         "ha-new-uid",
		Summary:     data["item"].(string),
		Description: data["description"].(string),
		Status:      statusNeedsAction,
		Due:         data["due_date"].(string),
	}

	result := haItemToReminderTask("todo.events", haItem)

	if result.Title != original.Title {
		t.Errorf("Title = %q, want %q", result.Title, original.Title)
	}
	if result.Notes != original.Notes {
		t.Errorf("Notes = %q, want %q", result.Notes, original.Notes)
	}
	if result.Priority != original.Priority {
		t.Errorf("Priority = %v, want %v", result.Priority, original.Priority)
	}
	if result.Status != original.Status {
		t.Errorf("Status = %v, want %v", result.Status, original.Status)
	}
	if !result.DueDate.Equal(original.DueDate) {
		t.Errorf("DueDate = %v, want %v", result.DueDate, original.DueDate)
	}
}
