// Package dedup clusters near-duplicate records within a single store (never
// across stores) using union-find over high-similarity candidate pairs, then
// resolves each cluster by one of three modes: dry-run (report only),
// auto-apply (keep a protected member if the cluster has one, else the
// lexicographically-first uuid), or interactive (delegate the keep-set
// choice to a prompter, normally a huh.MultiSelect form — see interactive.go).
package dedup

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/model"
	"github.com/dnoble/vaultsync/internal/syncerr"
	"github.com/dnoble/vaultsync/internal/textutil"
)

// SimilarityThreshold is the high-bar token similarity two records must
// clear to be considered duplicate candidates.
const SimilarityThreshold = 0.9

// Mode selects how a cluster's duplicates are resolved.
type Mode int

const (
	// ModeDryRun reports clusters only; nothing is deleted.
	ModeDryRun Mode = iota
	// ModeAutoApply keeps the first record per cluster (ascending uuid) and
	// deletes the rest.
	ModeAutoApply
	// ModeInteractive delegates the keep-set decision to a Prompter.
	ModeInteractive
)

// Cluster is a set of uuids (ascending, for determinism) judged to describe
// the same task. Protected members — already linked, or created earlier in
// the current run — are never deleted; a cluster that contains one is
// collapsed onto it regardless of uuid order.
type Cluster struct {
	UUIDs     []string
	Protected map[string]bool
}

// Stats tracks deduplication outcomes for one run.
type Stats struct {
	ClustersFound int
	Deleted       int
	Errors        int
}

// ClusterDocuments groups document tasks into duplicate clusters. protected
// uuids (live link endpoints, records created earlier this run) still take
// part in clustering — so a duplicate of a protected record is still
// detected — but are marked Protected so a resolver never deletes them.
// Unless includeCompleted, done/cancelled tasks never enter a cluster.
func ClusterDocuments(docs []model.DocumentTask, protected map[string]bool, includeCompleted bool) []Cluster {
	var candidates []model.DocumentTask
	for _, d := range docs {
		if !includeCompleted && d.Status != model.StatusTodo {
			continue
		}
		candidates = append(candidates, d)
	}

	uf := newUnionFind(len(candidates))
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if isDuplicatePair(candidates[i].Description, candidates[i].DueDate, candidates[j].Description, candidates[j].DueDate) {
				uf.union(i, j)
			}
		}
	}

	groups := uf.groups()
	var clusters []Cluster
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, buildCluster(members, func(idx int) string { return candidates[idx].UUID }, protected))
	}
	return clusters
}

// ClusterReminders groups reminder tasks into duplicate clusters under the
// same rule as ClusterDocuments.
func ClusterReminders(rems []model.ReminderTask, protected map[string]bool, includeCompleted bool) []Cluster {
	var candidates []model.ReminderTask
	for _, r := range rems {
		if !includeCompleted && r.Status != model.StatusTodo {
			continue
		}
		candidates = append(candidates, r)
	}

	uf := newUnionFind(len(candidates))
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if isDuplicatePair(candidates[i].Title, candidates[i].DueDate, candidates[j].Title, candidates[j].DueDate) {
				uf.union(i, j)
			}
		}
	}

	groups := uf.groups()
	var clusters []Cluster
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, buildCluster(members, func(idx int) string { return candidates[idx].UUID }, protected))
	}
	return clusters
}

// buildCluster renders a connected component into a sorted Cluster, tagging
// whichever members are in protected.
func buildCluster(members []int, uuidOf func(int) string, protected map[string]bool) Cluster {
	uuids := make([]string, len(members))
	for k, idx := range members {
		uuids[k] = uuidOf(idx)
	}
	sort.Strings(uuids)

	tagged := make(map[string]bool)
	for _, uuid := range uuids {
		if protected[uuid] {
			tagged[uuid] = true
		}
	}
	return Cluster{UUIDs: uuids, Protected: tagged}
}

// isDuplicatePair reports whether two records are duplicate candidates: high
// text similarity AND equal-or-both-absent due dates.
func isDuplicatePair(textA string, dueA model.Date, textB string, dueB model.Date) bool {
	if textutil.TextSimilarity(textA, textB) < SimilarityThreshold {
		return false
	}
	switch {
	case dueA.IsZero() && dueB.IsZero():
		return true
	case !dueA.IsZero() && !dueB.IsZero():
		return dueA.Equal(dueB)
	default:
		return false
	}
}

// Prompter resolves one cluster interactively, returning the uuids to keep.
// Returning the full input set (or an error) means "keep all" — the
// interactive contract's documented skip behavior.
type Prompter func(cluster Cluster) ([]string, error)

// Resolver applies a resolution Mode to clusters, deleting losers through
// the same collaborator interfaces the Reconciler and Creator use.
type Resolver struct {
	walker   collab.DocumentWalker
	gateway  collab.ReminderGateway
	prompter Prompter
	log      *slog.Logger
}

// New returns a Resolver. prompter may be nil unless ResolveDocClusters or
// ResolveRemClusters is called with ModeInteractive.
func New(walker collab.DocumentWalker, gateway collab.ReminderGateway, prompter Prompter, logger *slog.Logger) *Resolver {
	return &Resolver{walker: walker, gateway: gateway, prompter: prompter, log: logger}
}

// ResolveDocClusters resolves document-side clusters under mode, deleting
// losing lines via the DocumentWalker.
func (r *Resolver) ResolveDocClusters(ctx context.Context, clusters []Cluster, mode Mode, byUUID map[string]model.DocumentTask) Stats {
	stats := Stats{ClustersFound: len(clusters)}
	if mode == ModeDryRun {
		return stats
	}

	for _, cluster := range clusters {
		keep, err := r.keepSet(cluster, mode)
		if err != nil {
			r.log.Error("resolving dedup cluster failed", "error", err)
			stats.Errors++
			continue
		}
		for _, uuid := range cluster.UUIDs {
			if keep[uuid] {
				continue
			}
			doc, ok := byUUID[uuid]
			if !ok {
				continue
			}
			absolutePath := filepath.Join(doc.VaultPath, doc.FilePath)
			result, err := r.walker.DeleteTaskLine(ctx, absolutePath, doc.LineNumber, doc.BlockID)
			if err != nil || result != collab.WriteOK {
				r.log.Error("deleting duplicate document task failed", "doc_uuid", uuid, "error", err, "result", result)
				stats.Errors++
				continue
			}
			stats.Deleted++
		}
	}
	return stats
}

// ResolveRemClusters resolves reminder-side clusters under mode, deleting
// losing records via the ReminderGateway. An AuthDenied response from the
// gateway short-circuits every remaining delete for this call and is
// returned to the caller, the same short-circuit the Reconciler and Creator
// apply to their own gateway calls.
func (r *Resolver) ResolveRemClusters(ctx context.Context, clusters []Cluster, mode Mode, byUUID map[string]model.ReminderTask) (Stats, error) {
	stats := Stats{ClustersFound: len(clusters)}
	if mode == ModeDryRun {
		return stats, nil
	}

	for _, cluster := range clusters {
		keep, err := r.keepSet(cluster, mode)
		if err != nil {
			r.log.Error("resolving dedup cluster failed", "error", err)
			stats.Errors++
			continue
		}
		for _, uuid := range cluster.UUIDs {
			if keep[uuid] {
				continue
			}
			rem, ok := byUUID[uuid]
			if !ok {
				continue
			}
			if err := r.gateway.Delete(ctx, rem.ItemID); err != nil {
				if collab.IsAuthDenied(err) {
					r.log.Error("reminder gateway denied authorization, aborting remaining dedup deletes", "rem_uuid", uuid, "error", err)
					stats.Errors++
					return stats, syncerr.Wrap(syncerr.ErrAuthDenied, "deduplicating reminders", err)
				}
				r.log.Error("deleting duplicate reminder task failed", "rem_uuid", uuid, "error", err)
				stats.Errors++
				continue
			}
			stats.Deleted++
		}
	}
	return stats, nil
}

// keepSet returns the set of uuids a cluster should retain. Protected
// members (live link endpoints, records created earlier this run) are
// always kept, regardless of mode. Among the rest: ModeAutoApply keeps
// the first (ascending) uuid when no member is protected, and nothing
// further when one is; ModeInteractive defers to the prompter, still
// unioned with the protected set so a careless answer can never delete one.
func (r *Resolver) keepSet(cluster Cluster, mode Mode) (map[string]bool, error) {
	kept := make(map[string]bool, len(cluster.Protected))
	for uuid := range cluster.Protected {
		kept[uuid] = true
	}

	if mode == ModeAutoApply {
		if len(kept) == 0 {
			kept[cluster.UUIDs[0]] = true
		}
		return kept, nil
	}

	chosen, err := r.prompter(cluster)
	if err != nil {
		return nil, err
	}
	for _, uuid := range chosen {
		kept[uuid] = true
	}
	return kept, nil
}

// unionFind is a standard disjoint-set over [0, n) with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// groups returns every connected component as a slice of member indices, in
// deterministic ascending order of root index.
func (u *unionFind) groups() [][]int {
	byRoot := make(map[int][]int)
	var roots []int
	for i := range u.parent {
		root := u.find(i)
		if _, ok := byRoot[root]; !ok {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], i)
	}
	sort.Ints(roots)
	out := make([][]int, len(roots))
	for i, root := range roots {
		out[i] = byRoot[root]
	}
	return out
}
