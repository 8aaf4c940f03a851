package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/gateway/markdown"
	"github.com/dnoble/vaultsync/internal/model"
)

// vaultRouter implements collab.DocumentWalker across every configured
// vault. Each vault gets its own *markdown.Walker (vault id/name are baked
// in at construction and stamped onto every DocumentTask it produces), so
// ListTasks dispatches on vaultPath to the matching underlying Walker.
// RewriteTaskLine/DeleteTaskLine/AppendTask are pure path operations that
// don't depend on which vault they came from, so any walker instance
// handles them identically.
type vaultRouter struct {
	byPath map[string]*markdown.Walker
	any    *markdown.Walker
}

// newVaultRouter builds one markdown.Walker per configured vault entry.
func newVaultRouter(vaults []config.VaultEntry, logger *slog.Logger) *vaultRouter {
	byPath := make(map[string]*markdown.Walker, len(vaults))
	var any *markdown.Walker
	for _, v := range vaults {
		w := markdown.New(v.VaultID, v.Name, logger)
		byPath[v.Path] = w
		any = w
	}
	return &vaultRouter{byPath: byPath, any: any}
}

var _ collab.DocumentWalker = (*vaultRouter)(nil)

func (r *vaultRouter) ListTasks(ctx context.Context, vaultPath string, includeCompleted bool) ([]model.DocumentTask, error) {
	w, ok := r.byPath[vaultPath]
	if !ok {
		if r.any == nil {
			return nil, fmt.Errorf("no vault configured for path %q", vaultPath)
		}
		w = r.any
	}
	return w.ListTasks(ctx, vaultPath, includeCompleted)
}

func (r *vaultRouter) RewriteTaskLine(ctx context.Context, absolutePath string, lineNumber int, newRawLine, expectedBlockID string) (collab.WriteResult, error) {
	return r.any.RewriteTaskLine(ctx, absolutePath, lineNumber, newRawLine, expectedBlockID)
}

func (r *vaultRouter) DeleteTaskLine(ctx context.Context, absolutePath string, lineNumber int, expectedBlockID string) (collab.WriteResult, error) {
	return r.any.DeleteTaskLine(ctx, absolutePath, lineNumber, expectedBlockID)
}

func (r *vaultRouter) AppendTask(ctx context.Context, targetFile, formattedLine, heading string) (int, string, error) {
	return r.any.AppendTask(ctx, targetFile, formattedLine, heading)
}
