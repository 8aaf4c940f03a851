package syncengine

import (
	"context"
	"fmt"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/model"
)

// fakeWalker is an in-memory collab.DocumentWalker for tests. docs is
// returned verbatim from ListTasks; AppendTask/RewriteTaskLine/DeleteTaskLine
// record their calls without touching any real file.
type fakeWalker struct {
	docs []model.DocumentTask

	appended []string
	rewrites []string
	deletes  []string

	nextBlockID int
}

func (w *fakeWalker) ListTasks(ctx context.Context, vaultPath string, includeCompleted bool) ([]model.DocumentTask, error) {
	if includeCompleted {
		return w.docs, nil
	}
	var out []model.DocumentTask
	for _, d := range w.docs {
		if d.Status == model.StatusTodo {
			out = append(out, d)
		}
	}
	return out, nil
}

func (w *fakeWalker) RewriteTaskLine(ctx context.Context, absolutePath string, lineNumber int, newRawLine, expectedBlockID string) (collab.WriteResult, error) {
	w.rewrites = append(w.rewrites, newRawLine)
	return collab.WriteOK, nil
}

func (w *fakeWalker) DeleteTaskLine(ctx context.Context, absolutePath string, lineNumber int, expectedBlockID string) (collab.WriteResult, error) {
	w.deletes = append(w.deletes, expectedBlockID)
	return collab.WriteOK, nil
}

func (w *fakeWalker) AppendTask(ctx context.Context, targetFile, formattedLine, heading string) (int, string, error) {
	w.nextBlockID++
	blockID := fmt.Sprintf("blk%d", w.nextBlockID)
	w.appended = append(w.appended, formattedLine)
	return len(w.appended), blockID, nil
}

// fakeGateway is an in-memory collab.ReminderGateway for tests.
type fakeGateway struct {
	rems []model.ReminderTask

	created []model.ReminderTask
	updated map[string]collab.FieldChanges
	deleted []string

	nextItemID int
}

func (g *fakeGateway) ListTasks(ctx context.Context, listIDs []string, includeCompleted bool) ([]model.ReminderTask, error) {
	wantList := make(map[string]bool, len(listIDs))
	for _, id := range listIDs {
		wantList[id] = true
	}
	var out []model.ReminderTask
	for _, r := range g.rems {
		if len(listIDs) > 0 && !wantList[r.ListID] {
			continue
		}
		if !includeCompleted && r.Status != model.StatusTodo {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (g *fakeGateway) Create(ctx context.Context, listID string, task model.ReminderTask) (string, error) {
	g.nextItemID++
	itemID := fmt.Sprintf("item%d", g.nextItemID)
	task.ItemID = itemID
	task.ListID = listID
	task.UUID = itemID
	g.created = append(g.created, task)
	g.rems = append(g.rems, task)
	return itemID, nil
}

func (g *fakeGateway) Update(ctx context.Context, itemID string, changes collab.FieldChanges) error {
	if g.updated == nil {
		g.updated = make(map[string]collab.FieldChanges)
	}
	g.updated[itemID] = changes
	return nil
}

func (g *fakeGateway) Delete(ctx context.Context, itemID string) error {
	g.deleted = append(g.deleted, itemID)
	return nil
}
