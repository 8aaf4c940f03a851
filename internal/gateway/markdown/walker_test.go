package markdown

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/model"
)

func writeVaultFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test vault file: %v", err)
	}
	return path
}

func TestWalker_ListTasks_ParsesAndMintsIDs(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "todo.md", "# Tasks\n- [ ] Buy milk\n- [x] Pay rent\n")

	w := New("vault1", "Vault One", slog.Default())
	tasks, err := w.ListTasks(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].UUID == "" || tasks[1].UUID == "" {
		t.Error("expected minted UUIDs for tasks without block ids")
	}
	if tasks[0].UUID == tasks[1].UUID {
		t.Error("expected distinct UUIDs for distinct tasks")
	}
}

func TestWalker_ListTasks_ExcludesCompleted(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "todo.md", "- [ ] Open task\n- [x] Done task\n")

	w := New("vault1", "Vault One", slog.Default())
	tasks, err := w.ListTasks(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status == model.StatusDone {
		t.Fatalf("tasks = %+v, want only the open task", tasks)
	}
}

func TestWalker_ListTasks_PreservesExistingBlockID(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "todo.md", "- [ ] Buy milk ^existing1\n")

	w := New("vault1", "Vault One", slog.Default())
	tasks, err := w.ListTasks(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].BlockID != "existing1" {
		t.Fatalf("tasks = %+v, want block id 'existing1' preserved", tasks)
	}
}

func TestWalker_RewriteTaskLine_Succeeds(t *testing.T) {
	dir := t.TempDir()
	path := writeVaultFile(t, dir, "todo.md", "- [ ] Buy milk ^abc12345\n")

	w := New("vault1", "Vault One", slog.Default())
	result, err := w.RewriteTaskLine(context.Background(), path, 1, "- [x] Buy milk ^abc12345", "abc12345")
	if err != nil {
		t.Fatalf("RewriteTaskLine: %v", err)
	}
	if result != collab.WriteOK {
		t.Fatalf("result = %v, want WriteOK", result)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "- [x] Buy milk ^abc12345\n" {
		t.Errorf("file content = %q, want rewritten line", content)
	}
}

func TestWalker_RewriteTaskLine_BlockIDMismatchIsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeVaultFile(t, dir, "todo.md", "- [ ] Buy milk ^abc12345\n")

	w := New("vault1", "Vault One", slog.Default())
	result, err := w.RewriteTaskLine(context.Background(), path, 1, "- [x] Buy milk ^abc12345", "different-id")
	if err != nil {
		t.Fatalf("RewriteTaskLine: %v", err)
	}
	if result != collab.WriteNotFound {
		t.Fatalf("result = %v, want WriteNotFound", result)
	}
}

func TestWalker_DeleteTaskLine_RemovesLine(t *testing.T) {
	dir := t.TempDir()
	path := writeVaultFile(t, dir, "todo.md", "- [ ] Keep me\n- [ ] Remove me ^rm123456\n")

	w := New("vault1", "Vault One", slog.Default())
	result, err := w.DeleteTaskLine(context.Background(), path, 2, "rm123456")
	if err != nil {
		t.Fatalf("DeleteTaskLine: %v", err)
	}
	if result != collab.WriteOK {
		t.Fatalf("result = %v, want WriteOK", result)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "- [ ] Keep me\n" {
		t.Errorf("file content = %q, want only the kept line", content)
	}
}

func TestWalker_AppendTask_CreatesFileAndHeading(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "inbox.md")

	w := New("vault1", "Vault One", slog.Default())
	lineNum, blockID, err := w.AppendTask(context.Background(), target, "- [ ] New task ^newtask1", "Inbox")
	if err != nil {
		t.Fatalf("AppendTask: %v", err)
	}
	if blockID != "newtask1" {
		t.Errorf("blockID = %q, want %q", blockID, "newtask1")
	}
	if lineNum <= 0 {
		t.Errorf("lineNum = %d, want > 0", lineNum)
	}

	content, _ := os.ReadFile(target)
	got := string(content)
	if !strings.Contains(got, "## Inbox") || !strings.Contains(got, "New task") {
		t.Errorf("file content = %q, want heading and task line", got)
	}
}

func TestWalker_AppendTask_ReusesExistingHeading(t *testing.T) {
	dir := t.TempDir()
	target := writeVaultFile(t, dir, "inbox.md", "## Inbox\n\n- [ ] First task\n")

	w := New("vault1", "Vault One", slog.Default())
	_, _, err := w.AppendTask(context.Background(), target, "- [ ] Second task", "Inbox")
	if err != nil {
		t.Fatalf("AppendTask: %v", err)
	}

	content, _ := os.ReadFile(target)
	got := string(content)
	if count := strings.Count(got, "## Inbox"); count != 1 {
		t.Errorf("heading appears %d times in %q, want 1", count, got)
	}
}
