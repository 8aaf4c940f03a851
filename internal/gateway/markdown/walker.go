package markdown

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/identity"
	"github.com/dnoble/vaultsync/internal/model"
)

// Walker implements collab.DocumentWalker over a directory tree of Markdown
// files. Each call reads the affected file fresh and writes it back
// atomically (temp file + rename), so concurrent external edits are
// detected by the expectedBlockID guard rather than raced against.
type Walker struct {
	vaultID, vaultName string
	log                *slog.Logger
}

// New returns a Walker for the vault identified by vaultID/vaultName — both
// are stamped onto every DocumentTask this Walker produces.
func New(vaultID, vaultName string, logger *slog.Logger) *Walker {
	return &Walker{vaultID: vaultID, vaultName: vaultName, log: logger}
}

// ListTasks walks every ".md" file under vaultPath and parses its checklist
// task lines.
func (w *Walker) ListTasks(ctx context.Context, vaultPath string, includeCompleted bool) ([]model.DocumentTask, error) {
	var tasks []model.DocumentTask

	err := filepath.WalkDir(vaultPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, relErr := filepath.Rel(vaultPath, path)
		if relErr != nil {
			rel = path
		}

		found, parseErr := w.parseFile(vaultPath, rel, path)
		if parseErr != nil {
			w.log.Error("parsing vault file failed", "file", rel, "error", parseErr)
			return nil
		}
		tasks = append(tasks, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking vault %q: %w", vaultPath, err)
	}

	if !includeCompleted {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Status != model.StatusDone {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	return tasks, nil
}

func (w *Walker) parseFile(vaultPath, relPath, absPath string) ([]model.DocumentTask, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	lines, err := readLines(absPath)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool)
	for _, line := range lines {
		if p, ok := parseTaskLine(line); ok && p.blockID != "" {
			existing[p.blockID] = true
		}
	}

	var tasks []model.DocumentTask
	for i, line := range lines {
		p, ok := parseTaskLine(line)
		if !ok {
			continue
		}

		blockID := p.blockID
		if blockID == "" {
			blockID = identity.MintDocUUID(w.vaultID, relPath, i+1, p.desc, existing)
			existing[blockID] = true
		}

		tasks = append(tasks, model.DocumentTask{
			UUID:        "doc-" + blockID,
			VaultID:     w.vaultID,
			VaultName:   w.vaultName,
			VaultPath:   vaultPath,
			FilePath:    relPath,
			LineNumber:  i + 1,
			BlockID:     p.blockID,
			Status:      p.status,
			Description: p.desc,
			DueDate:     p.dueDate,
			Completion:  p.completion,
			Priority:    p.priority,
			Tags:        p.tags,
			RawLine:     line,
			CreatedAt:   info.ModTime(),
			ModifiedAt:  info.ModTime(),
		})
	}
	return tasks, nil
}

// RewriteTaskLine replaces the line at lineNumber in absolutePath, guarding
// against concurrent edits via expectedBlockID: if set, the current line at
// that position must still carry "^expectedBlockID".
func (w *Walker) RewriteTaskLine(ctx context.Context, absolutePath string, lineNumber int, newRawLine, expectedBlockID string) (collab.WriteResult, error) {
	lines, err := readLines(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return collab.WriteNotFound, nil
		}
		return collab.WriteIOError, fmt.Errorf("reading %q: %w", absolutePath, err)
	}

	idx := lineNumber - 1
	if idx < 0 || idx >= len(lines) {
		return collab.WriteNotFound, nil
	}
	if expectedBlockID != "" && !strings.Contains(lines[idx], "^"+expectedBlockID) {
		return collab.WriteNotFound, nil
	}

	lines[idx] = newRawLine
	if err := writeLines(absolutePath, lines); err != nil {
		return collab.WriteIOError, fmt.Errorf("writing %q: %w", absolutePath, err)
	}
	return collab.WriteOK, nil
}

// DeleteTaskLine removes the line at lineNumber, under the same
// expectedBlockID guard as RewriteTaskLine.
func (w *Walker) DeleteTaskLine(ctx context.Context, absolutePath string, lineNumber int, expectedBlockID string) (collab.WriteResult, error) {
	lines, err := readLines(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return collab.WriteNotFound, nil
		}
		return collab.WriteIOError, fmt.Errorf("reading %q: %w", absolutePath, err)
	}

	idx := lineNumber - 1
	if idx < 0 || idx >= len(lines) {
		return collab.WriteNotFound, nil
	}
	if expectedBlockID != "" && !strings.Contains(lines[idx], "^"+expectedBlockID) {
		return collab.WriteNotFound, nil
	}

	lines = append(lines[:idx], lines[idx+1:]...)
	if err := writeLines(absolutePath, lines); err != nil {
		return collab.WriteIOError, fmt.Errorf("writing %q: %w", absolutePath, err)
	}
	return collab.WriteOK, nil
}

// AppendTask appends formattedLine to targetFile, creating the file (and a
// matching heading, if given and absent) when needed. Returns the new
// line's 1-based number and its block id: the one formattedLine already
// carries, or else a freshly minted one that is appended to the line.
func (w *Walker) AppendTask(ctx context.Context, targetFile, formattedLine, heading string) (int, string, error) {
	lines, err := readLines(targetFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, "", fmt.Errorf("reading %q: %w", targetFile, err)
		}
		if dir := filepath.Dir(targetFile); dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return 0, "", fmt.Errorf("creating directory for %q: %w", targetFile, mkErr)
			}
		}
		lines = nil
	}

	if heading != "" && !containsHeading(lines, heading) {
		if len(lines) > 0 && lines[len(lines)-1] != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "## "+heading, "")
	}

	blockID := ""
	if m := blockIDRe.FindStringSubmatch(formattedLine); m != nil {
		blockID = m[1]
	} else {
		blockID = identity.MintDocUUID(w.vaultID, targetFile, len(lines)+1, formattedLine, nil)
		formattedLine += " ^" + blockID
	}

	lines = append(lines, formattedLine)
	if err := writeLines(targetFile, lines); err != nil {
		return 0, "", fmt.Errorf("writing %q: %w", targetFile, err)
	}
	return len(lines), blockID, nil
}

func containsHeading(lines []string, heading string) bool {
	target := "## " + heading
	for _, l := range lines {
		if strings.TrimSpace(l) == target {
			return true
		}
	}
	return false
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// writeLines atomically replaces path's contents (temp file + rename) so a
// crash mid-write never leaves a half-written vault file.
func writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
