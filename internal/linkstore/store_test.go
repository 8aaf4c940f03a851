package linkstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnoble/vaultsync/internal/model"
)

var testLogger = slog.Default()

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "links.json"), testLogger)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if !s.IsEmpty() {
		t.Error("expected empty store for missing file")
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "links.json"), testLogger)
	link := model.SyncLink{DocUUID: "doc1", RemUUID: "rem1", Score: 0.9}
	s.Put(link)

	got, ok := s.Get("doc1")
	if !ok || got.RemUUID != "rem1" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	gotByRem, ok := s.GetByRem("rem1")
	if !ok || gotByRem.DocUUID != "doc1" {
		t.Fatalf("GetByRem = %+v, %v", gotByRem, ok)
	}

	s.Delete("doc1")
	if _, ok := s.Get("doc1"); ok {
		t.Error("expected link to be gone after Delete")
	}
	if _, ok := s.GetByRem("rem1"); ok {
		t.Error("expected reverse index entry to be gone after Delete")
	}
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	s := New(path, testLogger)
	s.Put(model.SyncLink{DocUUID: "doc1", RemUUID: "rem1", Score: 0.95, CreatedAt: time.Now()})

	ctx := context.Background()
	if err := s.Save(ctx, "run-1"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := New(path, testLogger)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.IsEmpty() {
		t.Fatal("expected reloaded store to contain the saved link")
	}
	link, ok := reloaded.Get("doc1")
	if !ok || link.RemUUID != "rem1" {
		t.Fatalf("reloaded link = %+v, %v", link, ok)
	}
}

func TestStore_SaveWritesSchemaMetaAndSortedLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	s := New(path, testLogger)
	s.Put(model.SyncLink{DocUUID: "doc-z", RemUUID: "rem-z"})
	s.Put(model.SyncLink{DocUUID: "doc-a", RemUUID: "rem-a"})

	if err := s.Save(context.Background(), "run-42"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshaling saved file: %v", err)
	}
	if doc.Meta.Schema != schemaVersion || doc.Meta.RunID != "run-42" || doc.Meta.GeneratedAt == "" {
		t.Errorf("meta = %+v, want schema=%d run_id=run-42 and a non-empty generated_at", doc.Meta, schemaVersion)
	}
	if len(doc.Links) != 2 || doc.Links[0].DocUUID != "doc-a" || doc.Links[1].DocUUID != "doc-z" {
		t.Errorf("links = %+v, want ascending doc_uuid order", doc.Links)
	}
}

func TestStore_SaveIsNoopWhenLinksUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	s := New(path, testLogger)
	s.Put(model.SyncLink{DocUUID: "doc-a", RemUUID: "rem-a", Score: 0.9})

	if err := s.Save(context.Background(), "run-1"); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}

	if err := s.Save(context.Background(), "run-2"); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("Save rewrote an unchanged link set; want byte-identical output across runs, got:\n%s\nvs\n%s", first, second)
	}
}

func TestStore_SaveRewritesWhenLinksChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	s := New(path, testLogger)
	s.Put(model.SyncLink{DocUUID: "doc-a", RemUUID: "rem-a", Score: 0.9})
	if err := s.Save(context.Background(), "run-1"); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	s.Put(model.SyncLink{DocUUID: "doc-a", RemUUID: "rem-a", Score: 0.5})
	if err := s.Save(context.Background(), "run-2"); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshaling saved file: %v", err)
	}
	if doc.Meta.RunID != "run-2" {
		t.Errorf("RunID = %q, want run-2 after a content change", doc.Meta.RunID)
	}
	if len(doc.Links) != 1 || doc.Links[0].Score != 0.5 {
		t.Errorf("links = %+v, want one link with score 0.5", doc.Links)
	}
}

func TestStore_LoadMalformedFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("writing malformed file: %v", err)
	}

	s := New(path, testLogger)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load on malformed file should degrade, not error: %v", err)
	}
	if !s.IsEmpty() {
		t.Error("expected empty store after a malformed file")
	}
}

func TestStore_All(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "links.json"), testLogger)
	s.Put(model.SyncLink{DocUUID: "doc1", RemUUID: "rem1"})
	s.Put(model.SyncLink{DocUUID: "doc2", RemUUID: "rem2"})
	if got := len(s.All()); got != 2 {
		t.Errorf("All() len = %d, want 2", got)
	}
}
