// Package linkstore persists the set of SyncLink pairings between document
// and reminder tasks to a flat JSON file, guarded by an advisory file lock so
// concurrent sync invocations don't corrupt each other's writes.
package linkstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/dnoble/vaultsync/internal/model"
)

const (
	lockSuffix       = ".lock"
	lockTimeout      = 30 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

// schemaVersion is the on-disk link store schema version.
const schemaVersion = 1

// meta is the link store's top-level metadata block.
type meta struct {
	Schema      int    `json:"schema"`
	GeneratedAt string `json:"generated_at"`
	RunID       string `json:"run_id"`
}

// document is the on-disk representation of the link store: one JSON
// document per installation, readers tolerate unknown fields.
type document struct {
	Meta  meta             `json:"meta"`
	Links []model.SyncLink `json:"links"`
}

// Store is an in-memory, file-backed collection of SyncLinks keyed by the
// pair of ids it joins. Callers share one Store per process; Load and Save
// each perform one disk round-trip and hold the flock only for that call.
// The lock is not held between a Load and the following Save.
type Store struct {
	mu   sync.RWMutex
	path string
	lock *flock.Flock
	log  *slog.Logger

	byDoc map[string]*model.SyncLink
	byRem map[string]*model.SyncLink
}

// New returns a Store bound to the given file path. The file need not exist
// yet; Load treats a missing file as an empty store.
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:  path,
		lock:  flock.New(path + lockSuffix),
		log:   logger,
		byDoc: make(map[string]*model.SyncLink),
		byRem: make(map[string]*model.SyncLink),
	}
}

// Load acquires a shared lock, reads the store from disk, and populates the
// in-memory indexes. A missing file loads as an empty store; an unreadable
// or malformed file degrades to an empty store plus a logged warning rather
// than an error — a corrupt link store must not block a run from creating
// fresh links.
func (s *Store) Load(ctx context.Context) error {
	if err := acquire(ctx, s.lock, false); err != nil {
		return fmt.Errorf("acquiring link store read lock: %w", err)
	}
	defer s.lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("reading link store failed, starting from an empty store", "path", s.path, "error", err)
		}
		s.byDoc = make(map[string]*model.SyncLink)
		s.byRem = make(map[string]*model.SyncLink)
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("parsing link store failed, starting from an empty store", "path", s.path, "error", err)
		s.byDoc = make(map[string]*model.SyncLink)
		s.byRem = make(map[string]*model.SyncLink)
		return nil
	}

	byDoc := make(map[string]*model.SyncLink, len(doc.Links))
	byRem := make(map[string]*model.SyncLink, len(doc.Links))
	for i := range doc.Links {
		link := &doc.Links[i]
		byDoc[link.DocUUID] = link
		byRem[link.RemUUID] = link
	}
	s.byDoc = byDoc
	s.byRem = byRem
	return nil
}

// Save acquires an exclusive lock and atomically writes the current
// in-memory state to disk (temp file + rename). Links are emitted in
// stable (doc_uuid) sort order so two runs with identical link content
// compare equal regardless of insertion order; when the on-disk links
// already match byte-for-byte, Save leaves the file untouched rather than
// rewriting it just to bump meta.generated_at/run_id — the idempotence
// property the sync loop is tested against.
func (s *Store) Save(ctx context.Context, runID string) error {
	if err := acquire(ctx, s.lock, true); err != nil {
		return fmt.Errorf("acquiring link store write lock: %w", err)
	}
	defer s.lock.Unlock()

	s.mu.RLock()
	links := make([]model.SyncLink, 0, len(s.byDoc))
	for _, link := range s.byDoc {
		links = append(links, *link)
	}
	s.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool { return links[i].DocUUID < links[j].DocUUID })

	if existing, ok := s.readExistingLinks(); ok && linksEqual(existing, links) {
		s.log.Debug("link store unchanged, skipping write", "path", s.path)
		return nil
	}

	doc := document{
		Meta: meta{
			Schema:      schemaVersion,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			RunID:       runID,
		},
		Links: links,
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating link store directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling link store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp link store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp link store file: %w", err)
	}
	return nil
}

// readExistingLinks reads and parses the links currently on disk, in the
// same sort order Save emits them in, for the unchanged-content check. A
// missing or malformed file reports ok=false so Save falls back to writing.
func (s *Store) readExistingLinks() (links []model.SyncLink, ok bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	sort.Slice(doc.Links, func(i, j int) bool { return doc.Links[i].DocUUID < doc.Links[j].DocUUID })
	return doc.Links, true
}

// linksEqual compares two (already doc_uuid-sorted) link slices by their
// JSON encoding rather than reflect.DeepEqual, since time.Time values
// round-tripped through JSON and values built in-process can carry
// different internal representations of the same instant.
func linksEqual(a, b []model.SyncLink) bool {
	if len(a) != len(b) {
		return false
	}
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}

// Get returns the link for a document uuid, if any.
func (s *Store) Get(docUUID string) (model.SyncLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.byDoc[docUUID]
	if !ok {
		return model.SyncLink{}, false
	}
	return *link, true
}

// GetByRem returns the link for a reminder uuid, if any.
func (s *Store) GetByRem(remUUID string) (model.SyncLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.byRem[remUUID]
	if !ok {
		return model.SyncLink{}, false
	}
	return *link, true
}

// Put inserts or replaces a link, keyed by both sides of the pairing.
func (s *Store) Put(link model.SyncLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := link
	s.byDoc[link.DocUUID] = &stored
	s.byRem[link.RemUUID] = &stored
}

// Delete removes the link for a document uuid, if any.
func (s *Store) Delete(docUUID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.byDoc[docUUID]
	if !ok {
		return
	}
	delete(s.byDoc, docUUID)
	delete(s.byRem, link.RemUUID)
}

// All returns a snapshot of every link currently held.
func (s *Store) All() []model.SyncLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SyncLink, 0, len(s.byDoc))
	for _, link := range s.byDoc {
		out = append(out, *link)
	}
	return out
}

// IsEmpty reports whether the store currently holds no links.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byDoc) == 0
}

// acquire retries a lock acquisition (exclusive or shared) until it
// succeeds, the context is cancelled, or lockTimeout elapses.
func acquire(ctx context.Context, l *flock.Flock, exclusive bool) error {
	deadline := time.Now().Add(lockTimeout)
	tryAcquire := func() (bool, error) {
		if exclusive {
			return l.TryLock()
		}
		return l.TryRLock()
	}

	for {
		locked, err := tryAcquire()
		if err != nil {
			return err
		}
		if locked {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for link store lock after %s", lockTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
