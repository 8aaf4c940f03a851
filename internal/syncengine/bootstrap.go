package syncengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/creator"
	"github.com/dnoble/vaultsync/internal/linkstore"
	"github.com/dnoble/vaultsync/internal/matcher"
	"github.com/dnoble/vaultsync/internal/model"
)

// Bootstrap performs the first-run linkage of a vault whose link store is
// still empty. It scores every document/reminder pair with the same
// [matcher.Matcher] a steady-state sync uses — rather than the title-only
// equality the teacher's bootstrap used — prints a summary, and on
// confirmation records the matched links and creates counterparts for
// everything left over via the same Creator a regular run uses.
type Bootstrap struct {
	walker  collab.DocumentWalker
	gateway collab.ReminderGateway
	links   *linkstore.Store
	matcher *matcher.Matcher
	creator *creator.Creator
	log     *slog.Logger
	reader  io.Reader // confirmation prompt input (os.Stdin in production)
	writer  io.Writer // summary output (os.Stdout in production)
}

// NewBootstrap creates a Bootstrap wired to the given collaborators.
func NewBootstrap(walker collab.DocumentWalker, gateway collab.ReminderGateway, links *linkstore.Store, m *matcher.Matcher, c *creator.Creator, logger *slog.Logger, reader io.Reader, writer io.Writer) *Bootstrap {
	return &Bootstrap{
		walker:  walker,
		gateway: gateway,
		links:   links,
		matcher: m,
		creator: c,
		log:     logger,
		reader:  reader,
		writer:  writer,
	}
}

// bootstrapPlan holds one vault's match results pending confirmation.
type bootstrapPlan struct {
	vault        VaultSpec
	matched      []matcher.Match
	docByUUID    map[string]model.DocumentTask
	remByUUID    map[string]model.ReminderTask
	unpairedDocs []model.DocumentTask
	unpairedRems []model.ReminderTask
}

// Run checks whether the link store is empty and, if so, performs the
// first-run bootstrap for vault. Returns true if bootstrap executed, false
// if skipped (non-empty store) or cancelled by the user.
func (b *Bootstrap) Run(ctx context.Context, vault VaultSpec) (bool, error) {
	if err := b.links.Load(ctx); err != nil {
		return false, fmt.Errorf("loading link store: %w", err)
	}
	if !b.links.IsEmpty() {
		b.log.Debug("link store is not empty, skipping bootstrap", "vault_id", vault.VaultID)
		return false, nil
	}

	b.log.Info("empty link store detected, starting first-run bootstrap", "vault_id", vault.VaultID)

	docs, err := b.walker.ListTasks(ctx, vault.VaultPath, false)
	if err != nil {
		return false, fmt.Errorf("listing documents for bootstrap: %w", err)
	}
	rems, err := b.gateway.ListTasks(ctx, vault.ListIDs, false)
	if err != nil {
		return false, fmt.Errorf("listing reminders for bootstrap: %w", err)
	}

	plan := b.buildPlan(vault, docs, rems)
	b.printSummary(plan)

	if !b.confirm() {
		b.log.Info("bootstrap cancelled by user", "vault_id", vault.VaultID)
		return false, nil
	}

	if err := b.execute(ctx, plan); err != nil {
		return false, fmt.Errorf("executing bootstrap: %w", err)
	}

	b.log.Info("bootstrap complete", "vault_id", vault.VaultID)
	return true, nil
}

// buildPlan scores every document/reminder pair (no existing links to
// restore, by construction) and splits the remainder into the two unpaired
// sets the Counterpart Creator will act on.
func (b *Bootstrap) buildPlan(vault VaultSpec, docs []model.DocumentTask, rems []model.ReminderTask) bootstrapPlan {
	docByUUID := indexDocs(docs)
	remByUUID := indexRems(rems)

	matches := b.matcher.FindMatches(docs, rems, nil)
	matchedDocs := make(map[string]bool, len(matches))
	matchedRems := make(map[string]bool, len(matches))
	for _, m := range matches {
		matchedDocs[m.DocUUID] = true
		matchedRems[m.RemUUID] = true
	}

	var unpairedDocs []model.DocumentTask
	for _, d := range docs {
		if !matchedDocs[d.UUID] {
			unpairedDocs = append(unpairedDocs, d)
		}
	}
	var unpairedRems []model.ReminderTask
	for _, r := range rems {
		if !matchedRems[r.UUID] {
			unpairedRems = append(unpairedRems, r)
		}
	}

	return bootstrapPlan{
		vault:        vault,
		matched:      matches,
		docByUUID:    docByUUID,
		remByUUID:    remByUUID,
		unpairedDocs: unpairedDocs,
		unpairedRems: unpairedRems,
	}
}

// printSummary writes a human-readable summary of the match results.
func (b *Bootstrap) printSummary(p bootstrapPlan) {
	_, _ = fmt.Fprintf(b.writer, "\n--- First-Run Bootstrap Summary: %s ---\n\n", p.vault.VaultID)

	_, _ = fmt.Fprintf(b.writer, "Matched by similarity: %d\n", len(p.matched))
	for _, m := range p.matched {
		_, _ = fmt.Fprintf(b.writer, "    ✓ %s (score %.2f)\n", p.docByUUID[m.DocUUID].Description, m.Score)
	}

	if len(p.unpairedDocs) > 0 {
		_, _ = fmt.Fprintf(b.writer, "Only in the vault (will create reminders): %d\n", len(p.unpairedDocs))
		for _, d := range p.unpairedDocs {
			_, _ = fmt.Fprintf(b.writer, "    → %s\n", d.Description)
		}
	}
	if len(p.unpairedRems) > 0 {
		_, _ = fmt.Fprintf(b.writer, "Only in reminders (will create documents): %d\n", len(p.unpairedRems))
		for _, r := range p.unpairedRems {
			_, _ = fmt.Fprintf(b.writer, "    ← %s\n", r.Title)
		}
	}

	_, _ = fmt.Fprintf(b.writer, "\nTotal: %d matched, %d vault→reminders, %d reminders→vault\n",
		len(p.matched), len(p.unpairedDocs), len(p.unpairedRems))
}

// confirm reads a y/n response from the reader.
func (b *Bootstrap) confirm() bool {
	_, _ = fmt.Fprintf(b.writer, "Proceed with sync? [y/N] ")
	scanner := bufio.NewScanner(b.reader)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes"
	}
	return false
}

// execute writes the matched links, creates counterparts for everything
// unpaired via the same Creator a regular run uses, and saves the link
// store.
func (b *Bootstrap) execute(ctx context.Context, p bootstrapPlan) error {
	now := time.Now().UTC()

	for _, m := range p.matched {
		doc, rem := p.docByUUID[m.DocUUID], p.remByUUID[m.RemUUID]
		b.links.Put(model.SyncLink{
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
		})
		b.log.Debug("linked matched pair", "doc_uuid", m.DocUUID, "rem_uuid", m.RemUUID)
	}

	newLinks, _, _, stats, createErr := b.creator.Run(ctx, p.unpairedDocs, p.unpairedRems, now)
	for _, link := range newLinks {
		b.links.Put(link)
	}
	if stats.Errors > 0 {
		b.log.Warn("bootstrap counterpart creation had errors", "vault_id", p.vault.VaultID, "errors", stats.Errors)
	}
	if createErr != nil {
		return fmt.Errorf("creating bootstrap counterparts for vault %q: %w", p.vault.VaultID, createErr)
	}

	return b.links.Save(ctx, "bootstrap-"+p.vault.VaultID)
}
