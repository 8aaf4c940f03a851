// Package creator creates the missing counterpart for a still-unpaired
// document or reminder task and records the new link, the way the teacher's
// reconciler.createInHA/createInReminders fetch-after-add into the state DB —
// except here the gateway itself resolves the created record's id, so no
// separate refetch is needed.
package creator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/model"
	"github.com/dnoble/vaultsync/internal/syncerr"
)

// Stats tracks counterpart-creation outcomes for one run.
type Stats struct {
	DocsCreated int
	RemsCreated int
	Errors      int
}

// Creator creates missing counterparts for unpaired tasks and the links that
// join them to their new counterpart.
type Creator struct {
	walker  collab.DocumentWalker
	gateway collab.ReminderGateway
	cfg     *config.Config
	log     *slog.Logger
}

// New returns a Creator wired to the given collaborators and config.
func New(walker collab.DocumentWalker, gateway collab.ReminderGateway, cfg *config.Config, logger *slog.Logger) *Creator {
	return &Creator{walker: walker, gateway: gateway, cfg: cfg, log: logger}
}

// Run creates a reminder counterpart for every unpaired doc allowed by
// direction/filters, a document counterpart for every unpaired reminder, and
// returns the fresh SyncLinks plus the uuids of every record created this
// run (so the Deduplicator can exclude them). since is the "now" the
// since_days cutoff is computed against.
//
// An AuthDenied response from the gateway while creating a reminder
// counterpart short-circuits every remaining gateway call for this Run —
// both the rest of the doc->rem loop and the rem->doc loop that follows —
// and is returned to the caller, since a rejected credential won't recover
// partway through a run.
func (c *Creator) Run(ctx context.Context, unpairedDocs []model.DocumentTask, unpairedRems []model.ReminderTask, since time.Time) ([]model.SyncLink, []string, []string, Stats, error) {
	var stats Stats
	var links []model.SyncLink
	var createdDocUUIDs, createdRemUUIDs []string

	docCandidates := c.filterDocs(unpairedDocs, since)
	remCandidates := c.filterRems(unpairedRems, since)
	docCandidates, remCandidates = c.capToLimit(docCandidates, remCandidates)

	if c.cfg.Direction != config.DirectionRemToDoc {
		for _, doc := range docCandidates {
			link, err := c.createRemFor(ctx, doc)
			if err != nil {
				if collab.IsAuthDenied(err) {
					c.log.Error("reminder gateway denied authorization, aborting remaining counterpart creation", "doc_uuid", doc.UUID, "error", err)
					stats.Errors++
					return links, createdDocUUIDs, createdRemUUIDs, stats, syncerr.Wrap(syncerr.ErrAuthDenied, "creating reminder counterpart", err)
				}
				c.log.Error("creating reminder counterpart failed", "doc_uuid", doc.UUID, "error", err)
				stats.Errors++
				continue
			}
			links = append(links, link)
			createdRemUUIDs = append(createdRemUUIDs, link.RemUUID)
			stats.RemsCreated++
		}
	}

	if c.cfg.Direction != config.DirectionDocToRem {
		for _, rem := range remCandidates {
			link, err := c.createDocFor(ctx, rem)
			if err != nil {
				c.log.Error("creating document counterpart failed", "rem_uuid", rem.UUID, "error", err)
				stats.Errors++
				continue
			}
			links = append(links, link)
			createdDocUUIDs = append(createdDocUUIDs, link.DocUUID)
			stats.DocsCreated++
		}
	}

	return links, createdDocUUIDs, createdRemUUIDs, stats, nil
}

// filterDocs drops done/cancelled tasks (unless IncludeCompleted) and tasks
// older than the creation-level since_days cutoff.
func (c *Creator) filterDocs(docs []model.DocumentTask, since time.Time) []model.DocumentTask {
	includeCompleted := c.cfg.EffectiveIncludeCompleted()
	cutoff := sinceCutoff(since, c.cfg.Creation.SinceDays)

	var out []model.DocumentTask
	for _, d := range docs {
		if !includeCompleted && d.Status != model.StatusTodo {
			continue
		}
		if !cutoff.IsZero() && d.ModifiedAt.Before(cutoff) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *Creator) filterRems(rems []model.ReminderTask, since time.Time) []model.ReminderTask {
	includeCompleted := c.cfg.EffectiveIncludeCompleted()
	cutoff := sinceCutoff(since, c.cfg.Creation.SinceDays)

	var out []model.ReminderTask
	for _, r := range rems {
		if !includeCompleted && r.Status != model.StatusTodo {
			continue
		}
		if !cutoff.IsZero() && r.ModifiedAt.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sinceCutoff(now time.Time, sinceDays int) time.Time {
	if sinceDays <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(sinceDays) * 24 * time.Hour)
}

// capToLimit enforces MaxCreatesPerRun, allocating the cap proportionally
// across both candidate sets by their relative size and truncating.
func (c *Creator) capToLimit(docs []model.DocumentTask, rems []model.ReminderTask) ([]model.DocumentTask, []model.ReminderTask) {
	limit := c.cfg.Creation.MaxCreatesPerRun
	total := len(docs) + len(rems)
	if limit <= 0 || total <= limit {
		return docs, rems
	}

	docShare := (len(docs) * limit) / total
	remShare := limit - docShare
	if docShare < len(docs) {
		docs = docs[:docShare]
	}
	if remShare < len(rems) {
		rems = rems[:remShare]
	}
	return docs, rems
}

// createRemFor creates a reminder counterpart for an unpaired document task,
// routing to a list per tag_routes then vault_mappings, and records a new
// link with score 1.0 (the counterpart's title is identical by construction).
func (c *Creator) createRemFor(ctx context.Context, doc model.DocumentTask) (model.SyncLink, error) {
	listID, ok := c.cfg.DefaultListFor(doc.VaultID, doc.Tags)
	if !ok {
		return model.SyncLink{}, fmt.Errorf("no target list for vault %q (no tag route or vault mapping matched)", doc.VaultID)
	}

	task := model.ReminderTask{
		Title:    doc.Description,
		DueDate:  doc.DueDate,
		Priority: doc.Priority,
		Notes:    breadcrumbNotes(doc),
		Status:   doc.Status.ToReminderStatus(),
	}

	itemID, err := c.gateway.Create(ctx, listID, task)
	if err != nil {
		return model.SyncLink{}, fmt.Errorf("creating reminder for %q: %w", doc.Description, err)
	}

	now := time.Now().UTC()
	link := model.SyncLink{
		DocUUID:    doc.UUID,
		RemUUID:    itemID,
		Score:      1.0,
		VaultID:    doc.VaultID,
		CreatedAt:  now,
		LastSynced: time.Time{},
		Fields: model.LinkFields{
			DocTitle: doc.Description,
			RemTitle: doc.Description,
			DocDue:   doc.DueDate.String(),
			RemDue:   doc.DueDate.String(),
		},
	}
	c.log.Info("created reminder counterpart", "doc_uuid", doc.UUID, "rem_item_id", itemID, "list_id", listID)
	return link, nil
}

// createDocFor creates a document counterpart for an unpaired reminder task,
// appending it to the configured target file (per rem_to_doc_rules, falling
// back to the vault's inbox file) under an optional heading.
func (c *Creator) createDocFor(ctx context.Context, rem model.ReminderTask) (model.SyncLink, error) {
	targetFile, heading := c.targetFileFor(rem.ListName)
	if targetFile == "" {
		return model.SyncLink{}, fmt.Errorf("no target file for reminder list %q (no rem_to_doc rule and no inbox_file configured)", rem.ListName)
	}

	task := model.DocumentTask{
		Status:      rem.Status,
		Description: rem.Title,
		DueDate:     rem.DueDate,
		Priority:    rem.Priority,
	}
	if rem.ListName != "" {
		task.Tags = []string{"#" + sanitizeTag(rem.ListName)}
	}

	_, blockID, err := c.walker.AppendTask(ctx, targetFile, task.FormatLine(), heading)
	if err != nil {
		return model.SyncLink{}, fmt.Errorf("appending document for %q: %w", rem.Title, err)
	}

	docUUID := "doc-" + blockID
	now := time.Now().UTC()
	link := model.SyncLink{
		DocUUID:    docUUID,
		RemUUID:    rem.UUID,
		Score:      1.0,
		VaultID:    rem.ListID,
		CreatedAt:  now,
		LastSynced: time.Time{},
		Fields: model.LinkFields{
			DocTitle: rem.Title,
			RemTitle: rem.Title,
			DocDue:   rem.DueDate.String(),
			RemDue:   rem.DueDate.String(),
		},
	}
	c.log.Info("created document counterpart", "rem_uuid", rem.UUID, "doc_uuid", docUUID, "file", targetFile)
	return link, nil
}

// targetFileFor resolves the document file (and optional heading) a reminder
// from the given list name should be appended to: the first matching
// rem_to_doc_rules entry, else the configured inbox file.
func (c *Creator) targetFileFor(listName string) (file, heading string) {
	for _, rule := range c.cfg.Creation.RemToDocRules {
		if rule.ListName == listName {
			return rule.File, rule.Heading
		}
	}
	return c.cfg.Creation.InboxFile, ""
}

// breadcrumbNotes assembles the "Source: <file>", "Line: <n>" and
// "Tags: <…>" breadcrumbs, one per line, mirroring the source tool's note
// breadcrumbs.
func breadcrumbNotes(doc model.DocumentTask) string {
	var parts []string
	if doc.FilePath != "" {
		parts = append(parts, fmt.Sprintf("Source: %s", doc.FilePath))
		if doc.LineNumber > 0 {
			parts = append(parts, fmt.Sprintf("Line: %d", doc.LineNumber))
		}
	}
	if len(doc.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("Tags: %s", strings.Join(doc.Tags, ", ")))
	}
	return strings.Join(parts, "\n")
}

func sanitizeTag(listName string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(listName)), " ", "-")
}
