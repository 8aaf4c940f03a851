// Package matcher pairs document tasks with reminder tasks, restoring
// previously recorded links first and assigning an optimal one-to-one
// pairing over the remainder by similarity score.
package matcher

import (
	"sort"
	"strings"

	"github.com/dnoble/vaultsync/internal/model"
	"github.com/dnoble/vaultsync/internal/textutil"
)

const (
	titleWeight    = 0.70
	dateWeight     = 0.25
	priorityWeight = 0.05

	// greedyThreshold bounds the assignment-matrix cell count at or above which
	// the cubic Hungarian solver is skipped in favor of greedy matching.
	greedyThreshold = 10_000

	highCost = 1000.0
)

// Matcher scores and pairs document/reminder tasks.
type Matcher struct {
	MinScore      float64
	DaysTolerance int
}

// New returns a Matcher with the given acceptance threshold and date
// tolerance (in days).
func New(minScore float64, daysTolerance int) *Matcher {
	return &Matcher{MinScore: minScore, DaysTolerance: daysTolerance}
}

// Match is one accepted pairing with its similarity score.
type Match struct {
	DocUUID string
	RemUUID string
	Score   float64
}

// FindMatches restores every existing link whose both endpoints still
// exist in the current snapshot, then computes new matches over the
// remaining unpaired tasks.
func (m *Matcher) FindMatches(docs []model.DocumentTask, rems []model.ReminderTask, existing []model.SyncLink) []Match {
	if len(docs) == 0 || len(rems) == 0 {
		return nil
	}

	docByUUID := make(map[string]model.DocumentTask, len(docs))
	for _, d := range docs {
		docByUUID[d.UUID] = d
	}
	remByUUID := make(map[string]model.ReminderTask, len(rems))
	for _, r := range rems {
		remByUUID[r.UUID] = r
	}

	var restored []Match
	usedDocs := make(map[string]bool)
	usedRems := make(map[string]bool)
	for _, link := range existing {
		if _, ok := docByUUID[link.DocUUID]; !ok {
			continue
		}
		if _, ok := remByUUID[link.RemUUID]; !ok {
			continue
		}
		restored = append(restored, Match{DocUUID: link.DocUUID, RemUUID: link.RemUUID, Score: link.Score})
		usedDocs[link.DocUUID] = true
		usedRems[link.RemUUID] = true
	}

	var unmatchedDocs []model.DocumentTask
	for _, d := range docs {
		if !usedDocs[d.UUID] {
			unmatchedDocs = append(unmatchedDocs, d)
		}
	}
	var unmatchedRems []model.ReminderTask
	for _, r := range rems {
		if !usedRems[r.UUID] {
			unmatchedRems = append(unmatchedRems, r)
		}
	}

	if len(unmatchedDocs) == 0 || len(unmatchedRems) == 0 {
		return restored
	}

	var fresh []Match
	if len(unmatchedDocs)*len(unmatchedRems) < greedyThreshold {
		fresh = m.hungarianMatch(unmatchedDocs, unmatchedRems)
	} else {
		fresh = m.greedyMatch(unmatchedDocs, unmatchedRems)
	}

	return append(restored, fresh...)
}

// Score computes the similarity score for a single document/reminder pair:
// 70% title similarity, 25% due-date agreement, 5% priority agreement.
func (m *Matcher) Score(doc model.DocumentTask, rem model.ReminderTask) float64 {
	docTokens := textutil.Normalize(doc.Description)
	remTokens := textutil.Normalize(rem.DisplayTitle())

	if len(docTokens) == 0 && len(remTokens) == 0 {
		if strings.TrimSpace(strings.ToLower(doc.Description)) == strings.TrimSpace(strings.ToLower(rem.Title)) {
			return 1.0
		}
	}

	titleSim := textutil.DiceSimilarity(docTokens, remTokens)

	var dateScore float64
	switch {
	case !doc.DueDate.IsZero() && !rem.DueDate.IsZero():
		if doc.DueDate.Equal(rem.DueDate) {
			dateScore = 1.0
		} else if doc.DueDate.DiffDays(rem.DueDate) <= m.DaysTolerance {
			dateScore = 0.5
		}
	case doc.DueDate.IsZero() && rem.DueDate.IsZero():
		dateScore = 0.5
	}

	var priorityBoost float64
	if doc.Priority != model.PriorityNone && rem.Priority != model.PriorityNone && doc.Priority == rem.Priority {
		priorityBoost = priorityWeight
	}

	score := titleWeight*titleSim + dateWeight*dateScore + priorityBoost
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hungarianMatch builds the cost matrix (padded to square if needed) and
// runs the assignment solver, keeping only pairs that clear MinScore.
func (m *Matcher) hungarianMatch(docs []model.DocumentTask, rems []model.ReminderTask) []Match {
	n := len(docs)
	k := len(rems)
	size := n
	if k > size {
		size = k
	}

	cost := make([][]float64, size)
	scores := make([][]float64, n)
	for i := range docs {
		scores[i] = make([]float64, k)
	}

	for i := 0; i < size; i++ {
		cost[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			if i >= n || j >= k {
				cost[i][j] = highCost
				continue
			}
			score := m.Score(docs[i], rems[j])
			scores[i][j] = score
			if score >= m.MinScore {
				cost[i][j] = -score
			} else {
				cost[i][j] = highCost
			}
		}
	}

	colForRow := solveAssignment(cost)

	var matches []Match
	for i, j := range colForRow {
		if i >= n || j >= k {
			continue
		}
		if scores[i][j] >= m.MinScore {
			matches = append(matches, Match{DocUUID: docs[i].UUID, RemUUID: rems[j].UUID, Score: scores[i][j]})
		}
	}
	return matches
}

// greedyMatch scores every pair, then assigns highest-scoring pairs first,
// skipping any task already claimed.
func (m *Matcher) greedyMatch(docs []model.DocumentTask, rems []model.ReminderTask) []Match {
	type candidate struct {
		docUUID, remUUID string
		score            float64
	}

	var candidates []candidate
	for _, d := range docs {
		for _, r := range rems {
			score := m.Score(d, r)
			if score >= m.MinScore {
				candidates = append(candidates, candidate{d.UUID, r.UUID, score})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	usedDocs := make(map[string]bool)
	usedRems := make(map[string]bool)
	var matches []Match
	for _, c := range candidates {
		if usedDocs[c.docUUID] || usedRems[c.remUUID] {
			continue
		}
		matches = append(matches, Match{DocUUID: c.docUUID, RemUUID: c.remUUID, Score: c.score})
		usedDocs[c.docUUID] = true
		usedRems[c.remUUID] = true
	}
	return matches
}
