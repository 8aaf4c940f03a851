// Package reconciler walks every live link between a document task and a
// reminder task, decides a per-field winner by freshness, and applies the
// resulting change plan to both stores.
package reconciler

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/model"
	"github.com/dnoble/vaultsync/internal/syncerr"
)

// Direction is which side a field's fresher value came from.
type Direction int

const (
	// DirNone means the field is already in sync; no action.
	DirNone Direction = iota
	// DirToDoc means the reminder side won; write the value into the document.
	DirToDoc
	// DirToRem means the document side won; write the value into the reminder.
	DirToRem
)

// Plan is the per-field change decision for one live link.
type Plan struct {
	DocUUID string
	RemUUID string

	StatusDir Direction
	DueDir    Direction
	PrioDir   Direction
	TitleDir  Direction

	// RerouteTarget is the list id the reminder should move to, or "" if
	// no reroute is indicated.
	RerouteTarget string
}

// IsNoop reports whether the plan has nothing to apply.
func (p Plan) IsNoop() bool {
	return p.StatusDir == DirNone && p.DueDir == DirNone && p.PrioDir == DirNone &&
		p.TitleDir == DirNone && p.RerouteTarget == ""
}

// Stats tracks the number of mutations performed in a single reconcile pass.
type Stats struct {
	DocsUpdated       int
	RemsUpdated       int
	RemsRerouted      int
	ConflictsResolved int
	Errors            int
}

// Pair bundles a live link with its current document and reminder snapshots.
type Pair struct {
	Link model.SyncLink
	Doc  model.DocumentTask
	Rem  model.ReminderTask
}

// Reconciler computes and applies per-field change plans across live links.
// It is stateless between calls — all persistent state lives in the link
// store, which the caller saves after Execute returns.
type Reconciler struct {
	walker  collab.DocumentWalker
	gateway collab.ReminderGateway
	cfg     *config.Config
	log     *slog.Logger
}

// New creates a Reconciler wired to the given collaborators and config.
func New(walker collab.DocumentWalker, gateway collab.ReminderGateway, cfg *config.Config, logger *slog.Logger) *Reconciler {
	return &Reconciler{walker: walker, gateway: gateway, cfg: cfg, log: logger}
}

// Decide computes the change plan for every pair, in deterministic
// (vault_id, doc_uuid) order so logs and change-counts are reproducible.
func (r *Reconciler) Decide(pairs []Pair) []Plan {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Link.VaultID != sorted[j].Link.VaultID {
			return sorted[i].Link.VaultID < sorted[j].Link.VaultID
		}
		return sorted[i].Link.DocUUID < sorted[j].Link.DocUUID
	})

	plans := make([]Plan, 0, len(sorted))
	for _, pair := range sorted {
		plans = append(plans, r.decidePair(pair))
	}
	return plans
}

func (r *Reconciler) decidePair(pair Pair) Plan {
	doc, rem := pair.Doc, pair.Rem

	plan := Plan{DocUUID: doc.UUID, RemUUID: rem.UUID}

	fresher := func() Direction {
		if doc.ModifiedAt.After(rem.ModifiedAt) {
			return DirToRem
		}
		if rem.ModifiedAt.After(doc.ModifiedAt) {
			return DirToDoc
		}
		return DirNone
	}

	if !statusEqual(doc.Status, rem.Status) {
		plan.StatusDir = fresher()
	}

	bothDatesAbsent := doc.DueDate.IsZero() && rem.DueDate.IsZero()
	if !bothDatesAbsent && (doc.DueDate.IsZero() != rem.DueDate.IsZero() || !doc.DueDate.Equal(rem.DueDate)) {
		plan.DueDir = fresher()
	}

	if doc.Priority != rem.Priority {
		plan.PrioDir = fresher()
	}

	if doc.Description != rem.Title {
		plan.TitleDir = fresher()
	}

	if target, ok := r.cfg.DefaultListFor(doc.VaultID, doc.Tags); ok && target != rem.ListID {
		plan.RerouteTarget = target
	}

	return plan
}

// statusEqual compares document and reminder statuses under the
// cancelled->done mapping: a document cancelled task compares equal to a
// done reminder.
func statusEqual(docStatus, remStatus model.Status) bool {
	return docStatus.ToReminderStatus() == remStatus
}

// Execute applies every non-noop plan, mutating the document and reminder
// stores and bumping Stats. A per-pair failure is logged and counted but
// never aborts the remaining pairs — except an AuthDenied response from the
// gateway, which short-circuits every remaining gateway call for this
// Execute and is returned to the caller, since retrying a rejected
// credential against the next record can't succeed either.
func (r *Reconciler) Execute(ctx context.Context, plans []Plan, pairs map[string]Pair) (Stats, error) {
	var stats Stats

	for _, plan := range plans {
		if plan.IsNoop() {
			continue
		}
		pair, ok := pairs[plan.DocUUID]
		if !ok {
			continue
		}

		if plan.StatusDir != DirNone && plan.TitleDir != DirNone && plan.StatusDir != plan.TitleDir {
			stats.ConflictsResolved++
		}

		if plan.TitleDir == DirToDoc || plan.StatusDir == DirToDoc || plan.DueDir == DirToDoc || plan.PrioDir == DirToDoc {
			if err := r.applyToDoc(ctx, plan, pair); err != nil {
				r.log.Error("applying plan to document failed", "doc_uuid", plan.DocUUID, "error", err)
				stats.Errors++
			} else {
				stats.DocsUpdated++
			}
		}

		remSideChanged := plan.TitleDir == DirToRem || plan.StatusDir == DirToRem || plan.DueDir == DirToRem || plan.PrioDir == DirToRem
		if remSideChanged || plan.RerouteTarget != "" {
			if err := r.applyToRem(ctx, plan, pair); err != nil {
				if collab.IsAuthDenied(err) {
					r.log.Error("reminder gateway denied authorization, aborting remaining reconcile work", "rem_uuid", plan.RemUUID, "error", err)
					stats.Errors++
					return stats, syncerr.Wrap(syncerr.ErrAuthDenied, "reconciling reminder", err)
				}
				r.log.Error("applying plan to reminder failed", "rem_uuid", plan.RemUUID, "error", err)
				stats.Errors++
			} else {
				if remSideChanged {
					stats.RemsUpdated++
				}
				if plan.RerouteTarget != "" {
					stats.RemsRerouted++
				}
			}
		}
	}

	return stats, nil
}

func (r *Reconciler) applyToDoc(ctx context.Context, plan Plan, pair Pair) error {
	doc := pair.Doc
	if plan.StatusDir == DirToDoc {
		doc.Status = model.ReminderDoneWinsAgainst(doc.Status)
	}
	if plan.DueDir == DirToDoc {
		doc.DueDate = pair.Rem.DueDate
	}
	if plan.PrioDir == DirToDoc {
		doc.Priority = pair.Rem.Priority
	}
	if plan.TitleDir == DirToDoc {
		doc.Description = pair.Rem.Title
	}

	newLine := doc.FormatLine()
	absolutePath := filepath.Join(doc.VaultPath, doc.FilePath)
	result, err := r.walker.RewriteTaskLine(ctx, absolutePath, doc.LineNumber, newLine, doc.BlockID)
	if err != nil {
		return err
	}
	if result != collab.WriteOK {
		return &collab.GatewayError{Kind: collab.GatewayErrorNotFound, Message: "document line not found"}
	}
	return nil
}

func (r *Reconciler) applyToRem(ctx context.Context, plan Plan, pair Pair) error {
	var changes collab.FieldChanges

	if plan.StatusDir == DirToRem {
		s := pair.Doc.Status.ToReminderStatus()
		changes.Status = &s
	}
	if plan.DueDir == DirToRem {
		d := pair.Doc.DueDate
		changes.DueDate = &d
	}
	if plan.PrioDir == DirToRem {
		p := pair.Doc.Priority
		changes.Priority = &p
	}
	if plan.TitleDir == DirToRem {
		t := pair.Doc.Description
		changes.Title = &t
	}
	if plan.RerouteTarget != "" {
		list := plan.RerouteTarget
		changes.ListID = &list
	}

	return r.gateway.Update(ctx, pair.Rem.ItemID, changes)
}
