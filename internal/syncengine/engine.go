// Package syncengine orchestrates one full sync pass — restore, match,
// reconcile, create, dedup, persist — across a set of vaults, the way the
// teacher's sync.Engine drove one reconcile pass per tick, except here each
// pass walks all six components instead of a single reconciler call.
package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/dnoble/vaultsync/internal/audit"
	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/creator"
	"github.com/dnoble/vaultsync/internal/dedup"
	"github.com/dnoble/vaultsync/internal/linkstore"
	"github.com/dnoble/vaultsync/internal/matcher"
	"github.com/dnoble/vaultsync/internal/model"
	"github.com/dnoble/vaultsync/internal/reconciler"
	"github.com/dnoble/vaultsync/internal/syncerr"
)

const (
	otelScope = "vaultsync/syncengine"
	spanSync  = "sync.vault"

	metricDocsCreated       = "vaultsync.sync.docs_created"
	metricRemsCreated       = "vaultsync.sync.rems_created"
	metricDocsUpdated       = "vaultsync.sync.docs_updated"
	metricRemsUpdated       = "vaultsync.sync.rems_updated"
	metricDocsDeleted       = "vaultsync.sync.docs_deleted"
	metricRemsDeleted       = "vaultsync.sync.rems_deleted"
	metricConflictsResolved = "vaultsync.sync.conflicts_resolved"
	metricRemsRerouted      = "vaultsync.sync.rems_rerouted"
	metricErrors            = "vaultsync.sync.errors"
)

// VaultSpec identifies one vault and the reminder lists it is synced
// against. Path resolution and list-id discovery are glue the caller
// (cmd/vaultsync, internal/setup) supplies; the engine only consumes it.
type VaultSpec struct {
	VaultID   string
	VaultName string
	VaultPath string
	ListIDs   []string
}

// SyncResult aggregates the outcome of one vault's sync pass. See
// AggregateResults for combining several into a multi-vault summary.
type SyncResult struct {
	VaultID string   `json:"vault_id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`

	DocsListed int `json:"docs_listed"`
	RemsListed int `json:"rems_listed"`
	LinksLive  int `json:"links_live"`

	DocsCreated int `json:"docs_created"`
	RemsCreated int `json:"rems_created"`
	DocsUpdated int `json:"docs_updated"`
	RemsUpdated int `json:"rems_updated"`
	DocsDeleted int `json:"docs_deleted"`
	RemsDeleted int `json:"rems_deleted"`

	LinksCreated      int `json:"links_created"`
	LinksDeleted      int `json:"links_deleted"`
	ConflictsResolved int `json:"conflicts_resolved"`
	RemsRerouted      int `json:"rems_rerouted"`

	// DocsSkippedNoBlockID counts document tasks whose block id has not
	// yet been durably written back into the line — their identity is
	// stable for this run but vulnerable to a later line-number shift.
	DocsSkippedNoBlockID int `json:"docs_skipped_no_block_id"`
	// DocsSkippedNotFound counts links whose document endpoint was no
	// longer present in the freshest scan (the line was edited away).
	DocsSkippedNotFound int `json:"docs_skipped_not_found"`

	CreatedDocUUIDs []string `json:"created_doc_uuids,omitempty"`
	CreatedRemUUIDs []string `json:"created_rem_uuids,omitempty"`

	// TagSummary counts newly created reminders per originating tag, per
	// destination list. Populated only when creation actually routed by
	// tag (not by vault default or fallback).
	TagSummary map[string]map[string]int `json:"tag_summary,omitempty"`

	// Populated only when dry_run = true.
	ChangePlan    []reconciler.Plan `json:"change_plan,omitempty"`
	ReroutePlan   []reconciler.Plan `json:"reroute_plan,omitempty"`
	DedupClusters []dedup.Cluster   `json:"dedup_clusters,omitempty"`
}

// Engine wires the six components together and runs them, one vault at a
// time, either once (RunOnce) or on a polling loop (Run).
type Engine struct {
	cfg           *config.Config
	walker        collab.DocumentWalker
	gateway       collab.ReminderGateway
	matcher       *matcher.Matcher
	reconciler    *reconciler.Reconciler
	creator       *creator.Creator
	dedupResolver *dedup.Resolver
	links         *linkstore.Store
	auditStore    *audit.Store
	log           *slog.Logger

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer       trace.Tracer
	cntDocsCreated, cntRemsCreated metric.Int64Counter
	cntDocsUpdated, cntRemsUpdated metric.Int64Counter
	cntDocsDeleted, cntRemsDeleted metric.Int64Counter
	cntConflicts, cntRerouted, cntErrors metric.Int64Counter
}

// NewEngine creates an Engine wired to every supporting component. auditStore
// may be nil, in which case audit events are skipped rather than recorded.
func NewEngine(cfg *config.Config, walker collab.DocumentWalker, gateway collab.ReminderGateway, links *linkstore.Store, auditStore *audit.Store, dedupResolver *dedup.Resolver, logger *slog.Logger) *Engine {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Engine{
		cfg:           cfg,
		walker:        walker,
		gateway:       gateway,
		matcher:       matcher.New(cfg.MinScore, cfg.DaysTolerance),
		reconciler:    reconciler.New(walker, gateway, cfg, logger),
		creator:       creator.New(walker, gateway, cfg, logger),
		dedupResolver: dedupResolver,
		links:         links,
		auditStore:    auditStore,
		log:           logger,

		tracer:         tracer,
		cntDocsCreated: mustCounter(metricDocsCreated, "Document counterparts created"),
		cntRemsCreated: mustCounter(metricRemsCreated, "Reminder counterparts created"),
		cntDocsUpdated: mustCounter(metricDocsUpdated, "Document tasks updated by reconciliation"),
		cntRemsUpdated: mustCounter(metricRemsUpdated, "Reminder tasks updated by reconciliation"),
		cntDocsDeleted: mustCounter(metricDocsDeleted, "Document tasks deleted as duplicates"),
		cntRemsDeleted: mustCounter(metricRemsDeleted, "Reminder tasks deleted as duplicates"),
		cntConflicts:   mustCounter(metricConflictsResolved, "Conflicting field updates resolved"),
		cntRerouted:    mustCounter(metricRemsRerouted, "Reminders rerouted to a different list"),
		cntErrors:      mustCounter(metricErrors, "Errors encountered during sync"),
	}
}

// RunOnce performs one full sync pass against a single vault: restore links,
// match, reconcile, create counterparts, dedup, persist.
func (e *Engine) RunOnce(ctx context.Context, vault VaultSpec, dryRun bool) (SyncResult, error) {
	ctx, span := e.tracer.Start(ctx, spanSync, trace.WithAttributes(
		attribute.String("vault_id", vault.VaultID),
		attribute.Bool("dry_run", dryRun),
	))
	defer span.End()

	result := SyncResult{VaultID: vault.VaultID, Success: true}
	runID := uuid.NewString()

	docs, err := e.walker.ListTasks(ctx, vault.VaultPath, e.cfg.IncludeCompleted)
	if err != nil {
		return e.fail(ctx, span, result, fmt.Errorf("listing documents for vault %q: %w", vault.VaultID, err))
	}
	rems, err := e.gateway.ListTasks(ctx, vault.ListIDs, e.cfg.IncludeCompleted)
	if err != nil {
		return e.fail(ctx, span, result, fmt.Errorf("listing reminders for vault %q: %w", vault.VaultID, err))
	}
	result.DocsListed = len(docs)
	result.RemsListed = len(rems)
	for _, d := range docs {
		if d.BlockID == "" {
			result.DocsSkippedNoBlockID++
		}
	}

	if err := e.links.Load(ctx); err != nil {
		return e.fail(ctx, span, result, syncerr.Wrap(syncerr.ErrLinkStoreIO, "loading link store", err))
	}

	docByUUID := indexDocs(docs)
	remByUUID := indexRems(rems)

	existing := e.links.All()
	existingByKey := make(map[string]model.SyncLink, len(existing))
	for _, link := range existing {
		_, docFound := docByUUID[link.DocUUID]
		_, remFound := remByUUID[link.RemUUID]
		if !docFound {
			result.DocsSkippedNotFound++
		}
		if !docFound || !remFound {
			e.links.Delete(link.DocUUID)
			continue
		}
		existingByKey[link.DocUUID+"|"+link.RemUUID] = link
	}

	matches := e.matcher.FindMatches(docs, rems, existing)

	now := time.Now().UTC()
	linked := make([]model.SyncLink, 0, len(matches))
	pairs := make([]reconciler.Pair, 0, len(matches))
	pairsByDoc := make(map[string]reconciler.Pair, len(matches))
	for _, m := range matches {
		link, ok := existingByKey[m.DocUUID+"|"+m.RemUUID]
		if !ok {
			doc, rem := docByUUID[m.DocUUID], remByUUID[m.RemUUID]
			link = model.SyncLink{
				DocUUID:   m.DocUUID,
				RemUUID:   m.RemUUID,
				Score:     m.Score,
				VaultID:   doc.VaultID,
				CreatedAt: now,
				Fields: model.LinkFields{
					DocTitle: doc.Description,
					RemTitle: rem.Title,
					DocDue:   doc.DueDate.String(),
					RemDue:   rem.DueDate.String(),
				},
			}
			result.LinksCreated++
		}
		linked = append(linked, link)
		pair := reconciler.Pair{Link: link, Doc: docByUUID[m.DocUUID], Rem: remByUUID[m.RemUUID]}
		pairs = append(pairs, pair)
		pairsByDoc[m.DocUUID] = pair
	}

	plans := e.reconciler.Decide(pairs)
	if dryRun {
		result.ChangePlan = plans
		for _, p := range plans {
			if p.RerouteTarget != "" {
				result.ReroutePlan = append(result.ReroutePlan, p)
			}
		}
	} else {
		stats, execErr := e.reconciler.Execute(ctx, plans, pairsByDoc)
		result.DocsUpdated += stats.DocsUpdated
		result.RemsUpdated += stats.RemsUpdated
		result.RemsRerouted += stats.RemsRerouted
		result.ConflictsResolved += stats.ConflictsResolved
		e.addErrors(&result, stats.Errors)
		e.recordCounters(ctx, stats)
		if execErr != nil {
			return e.fail(ctx, span, result, execErr)
		}

		for _, p := range plans {
			if p.RerouteTarget != "" {
				e.auditReroute(ctx, runID, p)
			}
		}

		for i := range linked {
			linked[i].LastSynced = now
			pair := pairsByDoc[linked[i].DocUUID]
			linked[i].Fields = model.LinkFields{
				DocTitle: pair.Doc.Description,
				RemTitle: pair.Rem.Title,
				DocDue:   pair.Doc.DueDate.String(),
				RemDue:   pair.Rem.DueDate.String(),
			}
			e.links.Put(linked[i])
		}
	}

	linkedDocUUIDs := make(map[string]bool, len(linked))
	linkedRemUUIDs := make(map[string]bool, len(linked))
	for _, l := range linked {
		linkedDocUUIDs[l.DocUUID] = true
		linkedRemUUIDs[l.RemUUID] = true
	}

	var unpairedDocs []model.DocumentTask
	for _, d := range docs {
		if !linkedDocUUIDs[d.UUID] {
			unpairedDocs = append(unpairedDocs, d)
		}
	}
	var unpairedRems []model.ReminderTask
	for _, r := range rems {
		if !linkedRemUUIDs[r.UUID] {
			unpairedRems = append(unpairedRems, r)
		}
	}

	if !dryRun {
		newLinks, createdDocUUIDs, createdRemUUIDs, stats, createErr := e.creator.Run(ctx, unpairedDocs, unpairedRems, now)
		result.DocsCreated += stats.DocsCreated
		result.RemsCreated += stats.RemsCreated
		e.addErrors(&result, stats.Errors)
		result.CreatedDocUUIDs = append(result.CreatedDocUUIDs, createdDocUUIDs...)
		result.CreatedRemUUIDs = append(result.CreatedRemUUIDs, createdRemUUIDs...)
		result.LinksCreated += len(newLinks)

		if stats.DocsCreated > 0 {
			e.cntDocsCreated.Add(ctx, int64(stats.DocsCreated))
		}
		if stats.RemsCreated > 0 {
			e.cntRemsCreated.Add(ctx, int64(stats.RemsCreated))
		}

		for _, link := range newLinks {
			e.links.Put(link)
			e.auditCreate(ctx, runID, link)
		}

		if createErr != nil {
			return e.fail(ctx, span, result, createErr)
		}

		result.TagSummary = tagSummary(unpairedDocs, createdRemUUIDs, e.cfg)

		if e.cfg.EnableDeduplication {
			dedupStats, dedupErr := e.runDedup(ctx, runID, docs, rems, e.links.All(), createdDocUUIDs, createdRemUUIDs, dryRun, &result)
			result.DocsDeleted += dedupStats.docsDeleted
			result.RemsDeleted += dedupStats.remsDeleted
			e.addErrors(&result, dedupStats.errs)
			if dedupErr != nil {
				return e.fail(ctx, span, result, dedupErr)
			}
		}
	} else if e.cfg.EnableDeduplication {
		if _, err := e.runDedup(ctx, runID, docs, rems, linked, nil, nil, dryRun, &result); err != nil {
			return e.fail(ctx, span, result, err)
		}
	}

	if !dryRun {
		if err := e.links.Save(ctx, runID); err != nil {
			return e.fail(ctx, span, result, syncerr.Wrap(syncerr.ErrLinkStoreIO, "saving link store", err))
		}
	}
	result.LinksLive = len(e.links.All())

	span.SetAttributes(
		attribute.Int("sync.docs_listed", result.DocsListed),
		attribute.Int("sync.rems_listed", result.RemsListed),
		attribute.Int("sync.docs_updated", result.DocsUpdated),
		attribute.Int("sync.rems_updated", result.RemsUpdated),
		attribute.Int("sync.docs_created", result.DocsCreated),
		attribute.Int("sync.rems_created", result.RemsCreated),
	)
	return result, nil
}

type dedupOutcome struct {
	docsDeleted, remsDeleted int
	errs                     int
}

// runDedup clusters both stores and resolves the clusters under the mode
// implied by dry_run/dedup_auto_apply, treating every live-linked or
// just-created uuid as protected so a duplicate of it is still detected but
// never deleted.
func (e *Engine) runDedup(ctx context.Context, runID string, docs []model.DocumentTask, rems []model.ReminderTask, liveLinks []model.SyncLink, createdDocUUIDs, createdRemUUIDs []string, dryRun bool, result *SyncResult) (dedupOutcome, error) {
	protectedDocs := make(map[string]bool, len(liveLinks)+len(createdDocUUIDs))
	protectedRems := make(map[string]bool, len(liveLinks)+len(createdRemUUIDs))
	for _, l := range liveLinks {
		protectedDocs[l.DocUUID] = true
		protectedRems[l.RemUUID] = true
	}
	for _, u := range createdDocUUIDs {
		protectedDocs[u] = true
	}
	for _, u := range createdRemUUIDs {
		protectedRems[u] = true
	}

	mode := dedup.ModeAutoApply
	switch {
	case dryRun:
		mode = dedup.ModeDryRun
	case !e.cfg.DedupAutoApply:
		mode = dedup.ModeInteractive
	}

	docClusters := dedup.ClusterDocuments(docs, protectedDocs, e.cfg.IncludeCompleted)
	remClusters := dedup.ClusterReminders(rems, protectedRems, e.cfg.IncludeCompleted)

	if dryRun {
		result.DedupClusters = append(append([]dedup.Cluster{}, docClusters...), remClusters...)
		return dedupOutcome{}, nil
	}

	docByUUID := indexDocs(docs)
	remByUUID := indexRems(rems)

	docStats := e.dedupResolver.ResolveDocClusters(ctx, docClusters, mode, docByUUID)
	remStats, remErr := e.dedupResolver.ResolveRemClusters(ctx, remClusters, mode, remByUUID)

	if docStats.Deleted > 0 {
		e.cntDocsDeleted.Add(ctx, int64(docStats.Deleted))
	}
	if remStats.Deleted > 0 {
		e.cntRemsDeleted.Add(ctx, int64(remStats.Deleted))
	}

	e.auditDeletes(ctx, runID, audit.EventDelete, docClusters, mode, "doc")
	e.auditDeletes(ctx, runID, audit.EventDelete, remClusters, mode, "rem")

	outcome := dedupOutcome{
		docsDeleted: docStats.Deleted,
		remsDeleted: remStats.Deleted,
		errs:        docStats.Errors + remStats.Errors,
	}
	return outcome, remErr
}

func (e *Engine) recordCounters(ctx context.Context, stats reconciler.Stats) {
	if stats.DocsUpdated > 0 {
		e.cntDocsUpdated.Add(ctx, int64(stats.DocsUpdated))
	}
	if stats.RemsUpdated > 0 {
		e.cntRemsUpdated.Add(ctx, int64(stats.RemsUpdated))
	}
	if stats.ConflictsResolved > 0 {
		e.cntConflicts.Add(ctx, int64(stats.ConflictsResolved))
	}
	if stats.RemsRerouted > 0 {
		e.cntRerouted.Add(ctx, int64(stats.RemsRerouted))
	}
	if stats.Errors > 0 {
		e.cntErrors.Add(ctx, int64(stats.Errors))
	}
}

func (e *Engine) addErrors(result *SyncResult, n int) {
	if n <= 0 {
		return
	}
	result.Errors = append(result.Errors, fmt.Sprintf("%d per-record error(s), see logs", n))
}

func (e *Engine) fail(ctx context.Context, span trace.Span, result SyncResult, err error) (SyncResult, error) {
	result.Success = false
	result.Errors = append(result.Errors, err.Error())
	span.RecordError(err)
	e.cntErrors.Add(ctx, 1)
	return result, err
}

func (e *Engine) auditCreate(ctx context.Context, runID string, link model.SyncLink) {
	if e.auditStore == nil {
		return
	}
	if err := e.auditStore.Record(ctx, audit.Event{
		RunID:     runID,
		Type:      audit.EventCreate,
		DocUUID:   link.DocUUID,
		RemUUID:   link.RemUUID,
		VaultID:   link.VaultID,
		Detail:    fmt.Sprintf("score=%.2f", link.Score),
	}); err != nil {
		e.log.Warn("recording audit event failed", "error", err)
	}
}

func (e *Engine) auditReroute(ctx context.Context, runID string, plan reconciler.Plan) {
	if e.auditStore == nil {
		return
	}
	if err := e.auditStore.Record(ctx, audit.Event{
		RunID:     runID,
		Type:      audit.EventReroute,
		DocUUID:   plan.DocUUID,
		RemUUID:   plan.RemUUID,
		Detail:    fmt.Sprintf("list=%s", plan.RerouteTarget),
	}); err != nil {
		e.log.Warn("recording audit event failed", "error", err)
	}
}

func (e *Engine) auditDeletes(ctx context.Context, runID string, eventType audit.EventType, clusters []dedup.Cluster, mode dedup.Mode, side string) {
	if e.auditStore == nil || mode == dedup.ModeDryRun {
		return
	}
	for _, cluster := range clusters {
		for _, u := range cluster.UUIDs {
			if cluster.Protected[u] {
				continue
			}
			event := audit.Event{RunID: runID, Type: eventType, Detail: fmt.Sprintf("%s dedup cluster %v", side, cluster.UUIDs)}
			if side == "doc" {
				event.DocUUID = u
			} else {
				event.RemUUID = u
			}
			if err := e.auditStore.Record(ctx, event); err != nil {
				e.log.Warn("recording audit event failed", "error", err)
			}
		}
	}
}

// Run starts the polling loop. It blocks until ctx is cancelled, calling
// RunOnce for every vault on each tick and logging (not returning) per-vault
// failures so one bad vault never stops the others.
func (e *Engine) Run(ctx context.Context, vaults []VaultSpec) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.runAll(ctx, vaults)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("sync engine shutting down")
			return ctx.Err()
		case <-ticker.C:
			e.runAll(ctx, vaults)
		}
	}
}

func (e *Engine) runAll(ctx context.Context, vaults []VaultSpec) []SyncResult {
	results := make([]SyncResult, 0, len(vaults))
	for _, vault := range vaults {
		result, err := e.RunOnce(ctx, vault, false)
		if err != nil {
			e.log.Error("sync pass failed", "vault_id", vault.VaultID, "error", err)
		}
		results = append(results, result)
	}
	return results
}

func indexDocs(docs []model.DocumentTask) map[string]model.DocumentTask {
	m := make(map[string]model.DocumentTask, len(docs))
	for _, d := range docs {
		m[d.UUID] = d
	}
	return m
}

func indexRems(rems []model.ReminderTask) map[string]model.ReminderTask {
	m := make(map[string]model.ReminderTask, len(rems))
	for _, r := range rems {
		m[r.UUID] = r
	}
	return m
}

// tagSummary counts, for every document that gained a reminder counterpart
// this run, the destination list it was routed to under its first
// tag-matching route (vault-default and fallback routes are not itemized by
// tag).
func tagSummary(candidateDocs []model.DocumentTask, createdRemUUIDs []string, cfg *config.Config) map[string]map[string]int {
	if len(createdRemUUIDs) == 0 {
		return nil
	}
	summary := make(map[string]map[string]int)
	for _, doc := range candidateDocs {
		for _, route := range cfg.TagRoutes {
			if route.VaultID != doc.VaultID {
				continue
			}
			if !doc.HasTag(route.Tag) {
				continue
			}
			if summary[route.Tag] == nil {
				summary[route.Tag] = make(map[string]int)
			}
			summary[route.Tag][route.ListID]++
			break
		}
	}
	if len(summary) == 0 {
		return nil
	}
	return summary
}
