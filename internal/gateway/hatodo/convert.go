package hatodo

import (
	"time"

	"github.com/dnoble/vaultsync/internal/model"
)

// HA todo service constants.
const (
	domainTodo        = "todo"
	serviceGetItems   = "get_items"
	serviceAddItem    = "add_item"
	serviceUpdateItem = "update_item"
	serviceRemoveItem = "remove_item"

	statusNeedsAction = "needs_action"
	statusCompleted   = "completed"

	dateLayout = "2006-01-02"
)

// haTodoItem is the JSON structure for a single item returned by the HA
// todo.get_items service.
type haTodoItem struct {
	UID         string `json:"uid"`
	Summary     string `json:"summary"`
	Status      string `json:"status"` // "needs_action" or "completed"
	Description string `json:"description,omitempty"`
	Due         string `json:"due,omitempty"` // "YYYY-MM-DD" or RFC 3339
}

// haItemsResponse wraps the items array inside the service response for a
// single entity.
type haItemsResponse struct {
	Items []haTodoItem `json:"items"`
}

// priorityLabel, encodePriorityPrefix and decodePriorityPrefix encode/decode a priority tag HA has no
// native field for, the same way the document store encodes priority as an
// emoji token: a bracketed label prefixed to the description.
var priorityLabel = map[model.Priority]string{
	model.PriorityHigh:   "[High] ",
	model.PriorityMedium: "[Medium] ",
	model.PriorityLow:    "[Low] ",
}

func encodePriorityPrefix(p model.Priority, description string) string {
	prefix, ok := priorityLabel[p]
	if !ok {
		return description
	}
	return prefix + description
}

func decodePriorityPrefix(raw string) (model.Priority, string) {
	for p, prefix := range priorityLabel {
		if len(raw) >= len(prefix) && raw[:len(prefix)] == prefix {
			return p, raw[len(prefix):]
		}
	}
	return model.PriorityNone, raw
}

// haItemToReminderTask converts an HA todo item for the given entity (list)
// into a [model.ReminderTask].
func haItemToReminderTask(entityID string, h haTodoItem) model.ReminderTask {
	priority, notes := decodePriorityPrefix(h.Description)

	status := model.StatusTodo
	if h.Status == statusCompleted {
		status = model.StatusDone
	}

	task := model.ReminderTask{
		ItemID:   h.UID,
		ListID:   entityID,
		ListName: entityID,
		Status:   status,
		Title:    h.Summary,
		Priority: priority,
		Notes:    notes,
	}

	if h.Due != "" {
		if d, ok := parseDue(h.Due); ok {
			task.DueDate = d
		}
	}

	return task
}

// buildAddItemData returns the service-call payload for todo.add_item.
func buildAddItemData(entityID string, task model.ReminderTask) map[string]interface{} {
	data := map[string]interface{}{
		"entity_id": entityID,
		"item":      task.Title,
	}

	desc := encodePriorityPrefix(task.Priority, task.Notes)
	if desc != "" {
		data["description"] = desc
	}

	if !task.DueDate.IsZero() {
		data["due_date"] = task.DueDate.String()
	}

	return data
}

// buildUpdateItemData returns the service-call payload for todo.update_item.
// currentTitle is the item's title as it currently exists in HA, used to
// identify the item; changes carries only the fields being mutated.
func buildUpdateItemData(entityID, currentTitle string, changes fieldChanges) map[string]interface{} {
	data := map[string]interface{}{
		"entity_id": entityID,
		"item":      currentTitle,
	}

	if changes.title != nil && *changes.title != currentTitle {
		data["rename"] = *changes.title
	}
	if changes.notes != nil || changes.priority != nil {
		data["description"] = encodePriorityPrefix(valueOr(changes.priority, model.PriorityNone), valueOr(changes.notes, ""))
	}
	if changes.dueDate != nil {
		data["due_date"] = changes.dueDate.String()
	}
	if changes.status != nil {
		if *changes.status == model.StatusDone {
			data["status"] = statusCompleted
		} else {
			data["status"] = statusNeedsAction
		}
	}

	return data
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// fieldChanges is the hatodo-local projection of collab.FieldChanges,
// omitting ListID (HA has no native item-move operation; a reroute is
// handled by the gateway as create-then-delete, see Adapter.Update).
type fieldChanges struct {
	title    *string
	notes    *string
	dueDate  *model.Date
	priority *model.Priority
	status   *model.Status
}

// buildRemoveItemData returns the service-call payload for todo.remove_item.
func buildRemoveItemData(entityID, title string) map[string]interface{} {
	return map[string]interface{}{
		"entity_id": entityID,
		"item":      title,
	}
}

// buildGetItemsData returns the service-call payload for todo.get_items.
func buildGetItemsData(entityID string) map[string]interface{} {
	return map[string]interface{}{
		"entity_id": entityID,
	}
}

// parseDue parses an HA due-date string into a model.Date. It tries
// date-only format first, then falls back to RFC 3339.
func parseDue(s string) (model.Date, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return model.NewDate(t), true
	}
	return model.ParseDate(s)
}
