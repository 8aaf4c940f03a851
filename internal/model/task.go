package model

import (
	"strings"
	"time"
)

// DocumentTask is a single task line in the document store.
type DocumentTask struct {
	UUID string `json:"uuid"`

	VaultID   string `json:"vault_id"`
	VaultName string `json:"vault_name"`
	VaultPath string `json:"vault_path"`

	FilePath   string `json:"file_path"` // vault-relative
	LineNumber int    `json:"line_number"`

	// BlockID is the short trailing token ("^xxxxxxxx") that durably
	// anchors this line across edits, when present.
	BlockID string `json:"block_id,omitempty"`

	Status      Status   `json:"status"`
	Description string   `json:"description"`
	DueDate     Date     `json:"due_date,omitempty"`
	Completion  Date     `json:"completion_date,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	RawLine string `json:"raw_line"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// HasTag reports whether the task carries the given tag (exact match,
// tags are stored with their leading "#").
func (t *DocumentTask) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// FormatLine renders the task back into its raw Markdown representation:
// "- [ ] description ✅ completion 🔼 priority 📅 due #tags ^blockID". Callers
// that mutate a task's fields and need to write it back to the document
// store use this to produce the replacement line.
func (t DocumentTask) FormatLine() string {
	checkbox := ' '
	switch t.Status {
	case StatusDone:
		checkbox = 'x'
	case StatusCancelled:
		checkbox = '-'
	}

	var b strings.Builder
	b.WriteString("- [")
	b.WriteRune(checkbox)
	b.WriteString("] ")
	b.WriteString(t.Description)

	if !t.Completion.IsZero() {
		b.WriteString(" ✅ ")
		b.WriteString(t.Completion.String())
	}

	switch t.Priority {
	case PriorityHigh:
		b.WriteString(" ⏫")
	case PriorityMedium:
		b.WriteString(" 🔼")
	case PriorityLow:
		b.WriteString(" 🔽")
	}

	if !t.DueDate.IsZero() {
		b.WriteString(" 📅 ")
		b.WriteString(t.DueDate.String())
	}

	tags := t.Tags
	if t.Status == StatusCancelled && !t.HasTag("#cancelled") {
		tags = append(append([]string{}, tags...), "#cancelled")
	}
	for _, tag := range tags {
		b.WriteString(" ")
		if !strings.HasPrefix(tag, "#") {
			b.WriteString("#")
		}
		b.WriteString(tag)
	}

	if t.BlockID != "" {
		b.WriteString(" ^")
		b.WriteString(t.BlockID)
	}

	return b.String()
}

// ReminderTask is a single task record in the reminder store.
type ReminderTask struct {
	UUID string `json:"uuid"`

	// ItemID is the reminder store's own native identifier — may differ
	// from UUID when the gateway mints its own ids.
	ItemID string `json:"item_id"`

	ListID   string `json:"list_id"`
	ListName string `json:"list_name"`

	Status   Status   `json:"status"` // only StatusTodo / StatusDone are valid
	Title    string   `json:"title"`
	DueDate  Date     `json:"due_date,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// DisplayTitle returns the title used for matching/similarity purposes.
func (r *ReminderTask) DisplayTitle() string { return r.Title }

// SyncLink is a persistent pairing between one DocumentTask and one
// ReminderTask.
type SyncLink struct {
	DocUUID string `json:"doc_uuid"`
	RemUUID string `json:"rem_uuid"`

	Score   float64 `json:"score"`
	VaultID string  `json:"vault_id"`

	CreatedAt   time.Time `json:"created_at"`
	LastSynced  time.Time `json:"last_synced,omitzero"`

	Fields LinkFields `json:"fields"`
}

// LinkFields is the snapshot of paired field values as of the last sync,
// used to display diffs and to seed the next run's comparisons.
type LinkFields struct {
	DocTitle string `json:"doc_title,omitempty"`
	RemTitle string `json:"rem_title,omitempty"`
	DocDue   string `json:"doc_due,omitempty"`
	RemDue   string `json:"rem_due,omitempty"`
}
