// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/storage"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// memStore is an in-memory KV for tests.
type memStore struct {
	data map[string]string

	// failSets makes every Set return an error when true.
	failSets bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(key string) (string, error) {
	v, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("get %q: %w", key, storage.ErrKeyNotFound)
	}
	return v, nil
}

func (s *memStore) Set(key, value string) error {
	if s.failSets {
		return errors.New("store unavailable")
	}
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	delete(s.data, key)
	return nil
}

func (s *memStore) Close() error { return nil }

// addTestNode inserts a node with a fixed ID into the manager's tree.
func addTestNode(m *Manager, id, parentID, question, answer string) {
	n := model.NewNode("", question, answer)
	n.ID = id
	n.ParentID = parentID
	n.Name = "node " + id
	m.Tree().AddNode(n)
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestLoadEmptyStoreCreatesSession(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if m.ActiveID() == "" {
		t.Error("no active session after Load")
	}
	if !m.Tree().IsEmpty() {
		t.Error("fresh session tree not empty")
	}
	if len(m.List()) != 1 {
		t.Errorf("List() has %d sessions, want 1", len(m.List()))
	}
}

func TestLoadHonorsActiveMarker(t *testing.T) {
	store := newMemStore()

	first := NewManager(store)
	if err := first.Load(); err != nil {
		t.Fatal(err)
	}
	addTestNode(first, "a", "", "q", "a")
	wantID := first.SaveCurrentSession("picked session")
	first.CreateNewSession()
	addTestNode(first, "b", "", "q2", "a2")

	// Make the marked session the one to restore.
	if err := store.Set(keyActive, wantID); err != nil {
		t.Fatal(err)
	}

	second := NewManager(store)
	if err := second.Load(); err != nil {
		t.Fatal(err)
	}
	if second.ActiveID() != wantID {
		t.Errorf("active = %s, want marked session %s", second.ActiveID(), wantID)
	}
	if second.ActiveName() != "picked session" {
		t.Errorf("active name = %q", second.ActiveName())
	}
}

func TestLoadFallsBackToMostRecent(t *testing.T) {
	store := newMemStore()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	idx := indexDoc{Sessions: []*Session{
		{ID: "sess_old", Name: "old", CreatedAt: old, UpdatedAt: old, Tree: &TreeDoc{}},
		{ID: "sess_new", Name: "new", CreatedAt: old, UpdatedAt: recent, Tree: &TreeDoc{}},
	}}
	data, err := json.Marshal(idx)
	if err != nil {
		t.Fatal(err)
	}
	store.data[keySessions] = string(data)
	store.data[keyActive] = "sess_gone" // stale marker

	m := NewManager(store)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if m.ActiveID() != "sess_new" {
		t.Errorf("active = %s, want the most recently updated", m.ActiveID())
	}
}

func TestLoadCorruptIndexTreatedAsAbsent(t *testing.T) {
	store := newMemStore()
	store.data[keySessions] = "{not json"

	m := NewManager(store)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if m.ActiveID() == "" {
		t.Error("corrupt index must still yield a usable session")
	}
}

// =============================================================================
// LEGACY MIGRATION
// =============================================================================

// legacyBlob serializes one root node in the pre-multi-session format.
func legacyBlob(t *testing.T) string {
	t.Helper()
	n := model.NewNode("", "legacy question", "legacy answer")
	n.ID = "node_legacy"
	doc := TreeDoc{
		Nodes:   []NodeEntry{{ID: n.ID, Node: n}},
		RootIDs: []string{n.ID},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestMigrateLegacySingleTree(t *testing.T) {
	store := newMemStore()
	store.data[keyLegacy] = legacyBlob(t)

	m := NewManager(store)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	metas := m.List()
	if len(metas) != 1 {
		t.Fatalf("List() has %d sessions, want 1", len(metas))
	}
	if metas[0].Name != "Migrated conversation" {
		t.Errorf("name = %q", metas[0].Name)
	}
	if metas[0].NodeCount != 1 {
		t.Errorf("node count = %d, want 1", metas[0].NodeCount)
	}
	n, err := m.Tree().GetNode("node_legacy")
	if err != nil {
		t.Fatal("migrated node missing from active tree")
	}
	if n.Question != "legacy question" {
		t.Errorf("question = %q", n.Question)
	}
	if _, ok := store.data[keyLegacy]; ok {
		t.Error("legacy blob not discarded after migration")
	}
}

func TestMigrateLegacyIsOneShot(t *testing.T) {
	store := newMemStore()
	store.data[keyLegacy] = legacyBlob(t)

	first := NewManager(store)
	if err := first.Load(); err != nil {
		t.Fatal(err)
	}
	first.Flush()

	second := NewManager(store)
	if err := second.Load(); err != nil {
		t.Fatal(err)
	}
	if got := len(second.List()); got != 1 {
		t.Errorf("second load produced %d sessions, want 1", got)
	}
}

func TestMigrateLegacySkipsWhenSessionsExist(t *testing.T) {
	store := newMemStore()

	first := NewManager(store)
	if err := first.Load(); err != nil {
		t.Fatal(err)
	}
	addTestNode(first, "a", "", "q", "a")
	first.Flush()

	store.data[keyLegacy] = legacyBlob(t)

	second := NewManager(store)
	if err := second.Load(); err != nil {
		t.Fatal(err)
	}
	for _, meta := range second.List() {
		if meta.Name == "Migrated conversation" {
			t.Error("migration ran despite existing sessions")
		}
	}
	if _, ok := store.data[keyLegacy]; !ok {
		t.Error("untouched legacy blob must survive")
	}
}

func TestMigrateLegacyCorruptBlobLeftInPlace(t *testing.T) {
	store := newMemStore()
	store.data[keyLegacy] = "{broken"

	m := NewManager(store)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.data[keyLegacy]; !ok {
		t.Error("unparseable legacy blob must stay available for recovery")
	}
	for _, meta := range m.List() {
		if meta.Name == "Migrated conversation" {
			t.Error("corrupt blob must not produce a session")
		}
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

func TestAutosaveOnTreeMutation(t *testing.T) {
	store := newMemStore()
	m := NewManager(store)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	addTestNode(m, "a", "", "autosaved?", "yes")

	// The persisted index must already contain the node.
	raw, err := store.Get(keySessions)
	if err != nil {
		t.Fatal(err)
	}
	var idx indexDoc
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sess := range idx.Sessions {
		for _, entry := range sess.Tree.Nodes {
			if entry.ID == "a" {
				found = true
			}
		}
	}
	if !found {
		t.Error("mutation was not autosaved to the store")
	}
}

func TestSaveCurrentSessionPreservesNameAndCreatedAt(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	m.SaveCurrentSession("my research")
	created := m.sessions[m.ActiveID()].CreatedAt

	addTestNode(m, "a", "", "q", "a")
	m.SaveCurrentSession("")

	sess := m.sessions[m.ActiveID()]
	if sess.Name != "my research" {
		t.Errorf("name = %q, want preserved", sess.Name)
	}
	if !sess.CreatedAt.Equal(created) {
		t.Error("CreatedAt rewritten on re-save")
	}
}

func TestLoadSessionSwapsTrees(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	addTestNode(m, "a", "", "first tree", "a")
	firstID := m.ActiveID()

	secondID := m.CreateNewSession()
	addTestNode(m, "b", "", "second tree", "b")

	if err := m.LoadSession(firstID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Tree().GetNode("a"); err != nil {
		t.Error("first tree not restored")
	}
	if _, err := m.Tree().GetNode("b"); err == nil {
		t.Error("second tree leaked into the first")
	}

	// The second session's content survived the switch.
	if err := m.LoadSession(secondID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Tree().GetNode("b"); err != nil {
		t.Error("second tree lost when switching away")
	}
}

func TestLoadSessionUnknownID(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadSession("sess_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestLoadSessionEditsDoNotAliasSnapshot(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	addTestNode(m, "a", "", "q", "a")
	id := m.SaveCurrentSession("snapshot test")

	if err := m.LoadSession(id); err != nil {
		t.Fatal(err)
	}

	// Mutate the working node directly, bypassing autosave. The stored
	// snapshot must not see the edit.
	working, err := m.Tree().GetNode("a")
	if err != nil {
		t.Fatal(err)
	}
	working.Question = "scribbled"

	stored := m.sessions[id].Tree.Nodes[0].Node
	if stored.Question == "scribbled" {
		t.Error("working tree aliases the stored snapshot")
	}
}

func TestDeleteActiveSessionCreatesReplacement(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	addTestNode(m, "a", "", "q", "a")
	doomed := m.ActiveID()

	m.DeleteSession(doomed)

	if m.ActiveID() == doomed {
		t.Error("deleted session still active")
	}
	if m.ActiveID() == "" {
		t.Error("no replacement session")
	}
	if !m.Tree().IsEmpty() {
		t.Error("replacement tree not empty")
	}
	if _, ok := m.sessions[doomed]; ok {
		t.Error("session survived deletion")
	}
}

func TestDeleteInactiveSession(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	addTestNode(m, "a", "", "q", "a")
	victim := m.ActiveID()
	m.CreateNewSession()
	active := m.ActiveID()

	m.DeleteSession(victim)

	if m.ActiveID() != active {
		t.Error("active session changed by deleting another")
	}
	if len(m.List()) != 1 {
		t.Errorf("List() has %d sessions, want 1", len(m.List()))
	}
}

func TestRenameSession(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	m.RenameSession(m.ActiveID(), "renamed")
	if m.ActiveName() != "renamed" {
		t.Errorf("name = %q, want renamed", m.ActiveName())
	}
	m.RenameSession("sess_missing", "x") // must not panic
}

func TestListOrder(t *testing.T) {
	store := newMemStore()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := indexDoc{Sessions: []*Session{
		{ID: "sess_b", Name: "b", CreatedAt: t0, UpdatedAt: t0.Add(time.Hour), Tree: &TreeDoc{}},
		{ID: "sess_a", Name: "a", CreatedAt: t0, UpdatedAt: t0.Add(2 * time.Hour), Tree: &TreeDoc{}},
		{ID: "sess_c", Name: "c", CreatedAt: t0, UpdatedAt: t0.Add(time.Hour), Tree: &TreeDoc{}},
	}}
	data, _ := json.Marshal(idx)
	store.data[keySessions] = string(data)

	m := NewManager(store)
	m.loadIndex()

	got := m.List()
	want := []string{"sess_a", "sess_b", "sess_c"} // newest first, ID tiebreak
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("List order = %v, want %v", got, want)
		}
	}
}

func TestSearch(t *testing.T) {
	m := NewManager(newMemStore())
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	addTestNode(m, "a", "", "How do goroutines work?", "They are green threads.")
	m.SaveCurrentSession("concurrency notes")

	if got := m.Search("GOROUTINE"); len(got) != 1 {
		t.Errorf("question search returned %d sessions, want 1", len(got))
	}
	if got := m.Search("green threads"); len(got) != 1 {
		t.Errorf("answer search returned %d sessions, want 1", len(got))
	}
	if got := m.Search("concurrency"); len(got) != 1 {
		t.Errorf("name search returned %d sessions, want 1", len(got))
	}
	if got := m.Search("nonexistent topic"); len(got) != 0 {
		t.Errorf("miss returned %d sessions, want 0", len(got))
	}
	if got := m.Search(""); len(got) != len(m.List()) {
		t.Error("empty query must list everything")
	}
}

// =============================================================================
// PERSISTENCE FAILURES
// =============================================================================

func TestStoreFailuresDoNotBlockEditing(t *testing.T) {
	store := newMemStore()
	m := NewManager(store)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	store.failSets = true
	addTestNode(m, "a", "", "q", "a")
	addTestNode(m, "b", "a", "q2", "a2")

	// In-memory state stays authoritative.
	if m.Tree().Len() != 2 {
		t.Errorf("tree has %d nodes, want 2", m.Tree().Len())
	}

	// Once the store recovers, the next mutation persists everything.
	store.failSets = false
	m.Tree().ToggleCollapse("a")

	raw, err := store.Get(keySessions)
	if err != nil {
		t.Fatal(err)
	}
	var idx indexDoc
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		t.Fatal(err)
	}
	var count int
	for _, sess := range idx.Sessions {
		count += len(sess.Tree.Nodes)
	}
	if count != 2 {
		t.Errorf("persisted %d nodes after recovery, want 2", count)
	}
}

// =============================================================================
// NAME BACK-FILL
// =============================================================================

func TestBackfillNamesOnRestore(t *testing.T) {
	root := model.NewNode("", "q1", "a1")
	root.ID = "r"
	child := model.NewNode("", "q2", "a2")
	child.ID = "c"
	child.ParentID = "r"

	doc := &TreeDoc{
		Nodes:   []NodeEntry{{ID: "r", Node: root}, {ID: "c", Node: child}},
		RootIDs: []string{"r"},
	}

	s := restoreTree(doc)
	nodes := s.Nodes()
	if nodes["r"].Name != "Question 1" {
		t.Errorf("root name = %q, want Question 1", nodes["r"].Name)
	}
	if nodes["c"].Name != "Follow-up 1" {
		t.Errorf("child name = %q, want Follow-up 1", nodes["c"].Name)
	}

	// A second restore is a no-op on already-named nodes.
	again := restoreTree(snapshotTree(s))
	if again.Nodes()["r"].Name != "Question 1" {
		t.Error("back-fill not idempotent")
	}
}

func TestBackfillDoesNotOverwriteNames(t *testing.T) {
	n := model.NewNode("Custom name", "q", "a")
	n.ID = "r"
	doc := &TreeDoc{
		Nodes:   []NodeEntry{{ID: "r", Node: n}},
		RootIDs: []string{"r"},
	}
	s := restoreTree(doc)
	if got := s.Nodes()["r"].Name; got != "Custom name" {
		t.Errorf("name = %q, want Custom name", got)
	}
}
