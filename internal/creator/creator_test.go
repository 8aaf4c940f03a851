package creator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/model"
	"github.com/dnoble/vaultsync/internal/syncerr"
)

var testLogger = slog.Default()

type mockWalker struct {
	appends []appendCall
	blockID string
	err     error
}

type appendCall struct {
	file, line, heading string
}

func (m *mockWalker) ListTasks(ctx context.Context, vaultPath string, includeCompleted bool) ([]model.DocumentTask, error) {
	return nil, nil
}

func (m *mockWalker) RewriteTaskLine(ctx context.Context, absolutePath string, lineNumber int, newRawLine, expectedBlockID string) (collab.WriteResult, error) {
	return collab.WriteOK, nil
}

func (m *mockWalker) DeleteTaskLine(ctx context.Context, absolutePath string, lineNumber int, expectedBlockID string) (collab.WriteResult, error) {
	return collab.WriteOK, nil
}

func (m *mockWalker) AppendTask(ctx context.Context, targetFile, formattedLine, heading string) (int, string, error) {
	m.appends = append(m.appends, appendCall{file: targetFile, line: formattedLine, heading: heading})
	if m.err != nil {
		return 0, "", m.err
	}
	id := m.blockID
	if id == "" {
		id = "newblock1"
	}
	return len(m.appends), id, nil
}

type mockGateway struct {
	creates []createCall
	itemID  string
	err     error
}

type createCall struct {
	listID string
	task   model.ReminderTask
}

func (m *mockGateway) ListTasks(ctx context.Context, listIDs []string, includeCompleted bool) ([]model.ReminderTask, error) {
	return nil, nil
}

func (m *mockGateway) Create(ctx context.Context, listID string, task model.ReminderTask) (string, error) {
	m.creates = append(m.creates, createCall{listID: listID, task: task})
	if m.err != nil {
		return "", m.err
	}
	id := m.itemID
	if id == "" {
		id = "rem-new-1"
	}
	return id, nil
}

func (m *mockGateway) Update(ctx context.Context, itemID string, changes collab.FieldChanges) error { return nil }
func (m *mockGateway) Delete(ctx context.Context, itemID string) error                              { return nil }

func testConfig() *config.Config {
	return &config.Config{
		LinksPath:     "/tmp/links.json",
		VaultMappings: []config.VaultMapping{{VaultID: "personal", ListID: "inbox"}},
		Creation:      config.CreationConfig{InboxFile: "inbox.md"},
	}
}

func TestRun_CreatesReminderForUnpairedDoc(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{itemID: "rem-1"}
	c := New(walker, gateway, testConfig(), testLogger)

	doc := model.DocumentTask{UUID: "doc-1", VaultID: "personal", Description: "Buy milk", ModifiedAt: time.Now()}
	links, _, createdRems, stats, err := c.Run(context.Background(), []model.DocumentTask{doc}, nil, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RemsCreated != 1 || stats.Errors != 0 {
		t.Fatalf("stats = %+v, want RemsCreated=1 Errors=0", stats)
	}
	if len(links) != 1 || links[0].RemUUID != "rem-1" || links[0].Score != 1.0 {
		t.Fatalf("links = %+v, want one link to rem-1 with score 1.0", links)
	}
	if len(createdRems) != 1 || createdRems[0] != "rem-1" {
		t.Errorf("createdRems = %v, want [rem-1]", createdRems)
	}
	if len(gateway.creates) != 1 || gateway.creates[0].listID != "inbox" {
		t.Fatalf("creates = %+v, want one create into list 'inbox'", gateway.creates)
	}
}

func TestRun_TagRouteOverridesVaultMapping(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{}
	cfg := testConfig()
	cfg.TagRoutes = []config.TagRoute{{VaultID: "personal", Tag: "#project", ListID: "L_proj"}}
	c := New(walker, gateway, cfg, testLogger)

	doc := model.DocumentTask{UUID: "doc-1", VaultID: "personal", Description: "Ship it", Tags: []string{"#project"}, ModifiedAt: time.Now()}
	_, _, _, stats, err := c.Run(context.Background(), []model.DocumentTask{doc}, nil, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RemsCreated != 1 {
		t.Fatalf("stats = %+v, want RemsCreated=1", stats)
	}
	if gateway.creates[0].listID != "L_proj" {
		t.Errorf("listID = %q, want %q", gateway.creates[0].listID, "L_proj")
	}
}

func TestRun_SkipsDoneDocsByDefault(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{}
	c := New(walker, gateway, testConfig(), testLogger)

	doc := model.DocumentTask{UUID: "doc-1", VaultID: "personal", Description: "Done task", Status: model.StatusDone, ModifiedAt: time.Now()}
	_, _, _, stats, err := c.Run(context.Background(), []model.DocumentTask{doc}, nil, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RemsCreated != 0 || len(gateway.creates) != 0 {
		t.Errorf("expected done doc to be skipped, stats=%+v creates=%v", stats, gateway.creates)
	}
}

func TestRun_CreatesDocForUnpairedRem(t *testing.T) {
	walker := &mockWalker{blockID: "newblock1"}
	gateway := &mockGateway{}
	c := New(walker, gateway, testConfig(), testLogger)

	rem := model.ReminderTask{UUID: "rem-9", ListName: "Work", Title: "Ship it", ModifiedAt: time.Now()}
	links, createdDocs, _, stats, err := c.Run(context.Background(), nil, []model.ReminderTask{rem}, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.DocsCreated != 1 {
		t.Fatalf("stats = %+v, want DocsCreated=1", stats)
	}
	if len(links) != 1 || links[0].DocUUID != "doc-newblock1" {
		t.Fatalf("links = %+v, want one link to doc-newblock1", links)
	}
	if len(createdDocs) != 1 || createdDocs[0] != "doc-newblock1" {
		t.Errorf("createdDocs = %v, want [doc-newblock1]", createdDocs)
	}
	if len(walker.appends) != 1 || walker.appends[0].file != "inbox.md" {
		t.Fatalf("appends = %+v, want one append to inbox.md", walker.appends)
	}
}

func TestRun_RemToDocRuleOverridesInbox(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{}
	cfg := testConfig()
	cfg.Creation.RemToDocRules = []config.RemToDocRule{{ListName: "Work", File: "work.md", Heading: "Imported"}}
	c := New(walker, gateway, cfg, testLogger)

	rem := model.ReminderTask{UUID: "rem-9", ListName: "Work", Title: "Ship it", ModifiedAt: time.Now()}
	_, _, _, stats, err := c.Run(context.Background(), nil, []model.ReminderTask{rem}, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.DocsCreated != 1 {
		t.Fatalf("stats = %+v, want DocsCreated=1", stats)
	}
	if walker.appends[0].file != "work.md" || walker.appends[0].heading != "Imported" {
		t.Errorf("append = %+v, want file=work.md heading=Imported", walker.appends[0])
	}
}

func TestRun_DirectionDocToRemSkipsRemCreation(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{}
	cfg := testConfig()
	cfg.Direction = config.DirectionDocToRem
	c := New(walker, gateway, cfg, testLogger)

	rem := model.ReminderTask{UUID: "rem-9", Title: "Ship it", ModifiedAt: time.Now()}
	_, _, _, stats, err := c.Run(context.Background(), nil, []model.ReminderTask{rem}, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.DocsCreated != 0 || len(walker.appends) != 0 {
		t.Errorf("expected no doc creation under doc->rem direction, stats=%+v", stats)
	}
}

func TestRun_MaxCreatesPerRunCaps(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{}
	cfg := testConfig()
	cfg.Creation.MaxCreatesPerRun = 1
	c := New(walker, gateway, cfg, testLogger)

	docs := []model.DocumentTask{
		{UUID: "d1", VaultID: "personal", Description: "One", ModifiedAt: time.Now()},
		{UUID: "d2", VaultID: "personal", Description: "Two", ModifiedAt: time.Now()},
	}
	_, _, _, stats, err := c.Run(context.Background(), docs, nil, time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RemsCreated != 1 {
		t.Errorf("RemsCreated = %d, want 1 (capped by max_creates_per_run)", stats.RemsCreated)
	}
}

func TestRun_SinceDaysFiltersStale(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{}
	cfg := testConfig()
	cfg.Creation.SinceDays = 7
	c := New(walker, gateway, cfg, testLogger)

	now := time.Now()
	stale := model.DocumentTask{UUID: "d1", VaultID: "personal", Description: "Old", ModifiedAt: now.Add(-30 * 24 * time.Hour)}
	_, _, _, stats, err := c.Run(context.Background(), []model.DocumentTask{stale}, nil, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RemsCreated != 0 {
		t.Errorf("RemsCreated = %d, want 0 for a task older than since_days", stats.RemsCreated)
	}
}

func TestRun_AuthDeniedShortCircuitsBothLoops(t *testing.T) {
	walker := &mockWalker{}
	gateway := &mockGateway{err: &collab.GatewayError{Kind: collab.GatewayErrorAuthDenied, Message: "denied"}}
	c := New(walker, gateway, testConfig(), testLogger)

	docs := []model.DocumentTask{
		{UUID: "d1", VaultID: "personal", Description: "One", ModifiedAt: time.Now()},
		{UUID: "d2", VaultID: "personal", Description: "Two", ModifiedAt: time.Now()},
	}
	rems := []model.ReminderTask{{UUID: "rem-9", Title: "Ship it", ModifiedAt: time.Now()}}

	_, _, _, stats, err := c.Run(context.Background(), docs, rems, time.Now())
	if !errors.Is(err, syncerr.ErrAuthDenied) {
		t.Fatalf("Run error = %v, want errors.Is(err, syncerr.ErrAuthDenied)", err)
	}
	if len(gateway.creates) != 1 {
		t.Fatalf("expected exactly one gateway create before short-circuit, got %d", len(gateway.creates))
	}
	if len(walker.appends) != 0 {
		t.Errorf("expected the rem->doc loop to be skipped after short-circuit, got %d appends", len(walker.appends))
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestBreadcrumbNotes_IncludesSourceLineAndTags(t *testing.T) {
	doc := model.DocumentTask{FilePath: "daily/2026-07-31.md", LineNumber: 12, Tags: []string{"#work", "#urgent"}}
	got := breadcrumbNotes(doc)
	want := "Source: daily/2026-07-31.md\nLine: 12\nTags: #work, #urgent"
	if got != want {
		t.Errorf("breadcrumbNotes = %q, want %q", got, want)
	}
}
