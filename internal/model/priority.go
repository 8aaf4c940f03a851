package model

// Priority is a normalised, three-level task priority shared by both stores.
// The reminder-side mapping is a lookup table, not a re-derivation.
type Priority int

const (
	// PriorityNone indicates no priority is set.
	PriorityNone Priority = 0
	// PriorityHigh is the document-store "high" priority.
	PriorityHigh Priority = 1
	// PriorityMedium is the document-store "medium" priority.
	PriorityMedium Priority = 5
	// PriorityLow is the document-store "low" priority.
	PriorityLow Priority = 9
)

// String returns the human-readable label for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "none"
	}
}

// PriorityToReminderScale maps a document priority to the reminder store's
// lower-is-higher integer scale: high→1, medium→5, low→9.
func PriorityToReminderScale(p Priority) int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 5
	case PriorityLow:
		return 9
	default:
		return 0
	}
}

// PriorityFromReminderScale maps a reminder store integer priority back to a
// document [Priority]: 1→high, 2-5→medium, 6-9→low (0 or out-of-range→none).
func PriorityFromReminderScale(raw int) Priority {
	switch {
	case raw == 1:
		return PriorityHigh
	case raw >= 2 && raw <= 5:
		return PriorityMedium
	case raw >= 6 && raw <= 9:
		return PriorityLow
	default:
		return PriorityNone
	}
}
