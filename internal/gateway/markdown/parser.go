// Package markdown implements collab.DocumentWalker against a vault of
// Markdown files, using the checklist task-line grammar: a checkbox, an
// optional completion/due-date/priority emoji token, hashtags, and a
// trailing block-id anchor.
package markdown

import (
	"regexp"
	"strings"

	"github.com/dnoble/vaultsync/internal/model"
)

var (
	taskRe     = regexp.MustCompile(`^(\s*)[-*]\s+\[([xX\- ])\]\s+(.*)$`)
	blockIDRe  = regexp.MustCompile(`\^([a-zA-Z0-9-]+)\s*$`)
	dueDateRe  = regexp.MustCompile(`📅\s*(\d{4}-\d{1,2}-\d{1,2})`)
	completeRe = regexp.MustCompile(`✅\s*(\d{4}-\d{1,2}-\d{1,2})`)
	priorityRe = regexp.MustCompile(`([⏫🔼🔽])`)
	tagRe      = regexp.MustCompile(`#([a-zA-Z0-9_\-/]+)`)
)

// parsedTask is the intermediate result of parsing one raw Markdown line.
type parsedTask struct {
	indent     string
	status     model.Status
	blockID    string
	dueDate    model.Date
	completion model.Date
	priority   model.Priority
	tags       []string
	desc       string
}

// parseTaskLine parses a raw Markdown line into a parsedTask. ok is false
// when the line is not a checklist task line.
func parseTaskLine(line string) (parsedTask, bool) {
	m := taskRe.FindStringSubmatch(line)
	if m == nil {
		return parsedTask{}, false
	}

	indent, statusChar, content := m[1], m[2], m[3]

	status := model.StatusTodo
	switch {
	case strings.EqualFold(statusChar, "x"):
		status = model.StatusDone
	case statusChar == "-":
		status = model.StatusCancelled
	}

	p := parsedTask{indent: indent, status: status}

	if bm := blockIDRe.FindStringSubmatch(content); bm != nil {
		p.blockID = bm[1]
		content = strings.TrimSpace(content[:strings.LastIndex(content, bm[0])])
	}

	if cm := completeRe.FindStringSubmatch(content); cm != nil {
		if d, ok := model.ParseDate(cm[1]); ok {
			p.completion = d
		}
		content = strings.TrimSpace(completeRe.ReplaceAllString(content, ""))
	}

	if dm := dueDateRe.FindStringSubmatch(content); dm != nil {
		if d, ok := model.ParseDate(dm[1]); ok {
			p.dueDate = d
		}
		content = strings.TrimSpace(dueDateRe.ReplaceAllString(content, ""))
	}

	if pm := priorityRe.FindStringSubmatch(content); pm != nil {
		switch pm[1] {
		case "⏫":
			p.priority = model.PriorityHigh
		case "🔼":
			p.priority = model.PriorityMedium
		case "🔽":
			p.priority = model.PriorityLow
		}
		content = strings.TrimSpace(priorityRe.ReplaceAllString(content, ""))
	}

	for _, tm := range tagRe.FindAllStringSubmatch(content, -1) {
		p.tags = append(p.tags, "#"+tm[1])
	}
	if containsCancelledTag(p.tags) {
		p.status = model.StatusCancelled
	}

	p.desc = strings.TrimSpace(tagRe.ReplaceAllString(content, ""))

	return p, true
}

func containsCancelledTag(tags []string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, "#cancelled") {
			return true
		}
	}
	return false
}
