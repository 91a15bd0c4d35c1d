// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/treeline/internal/storage"
	"github.com/jeranaias/treeline/internal/tree"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidFormat is returned when imported or migrated data is
	// unparseable or structurally incomplete. The session set is left
	// unchanged when it is returned.
	ErrInvalidFormat = errors.New("invalid session format")
)

// =============================================================================
// STORE KEYS
// =============================================================================

// Logical keys in the persisted store.
const (
	keySessions = "treeline_sessions"
	keyActive   = "treeline_active_session"

	// keyLegacy is the pre-multi-session single-tree blob, read exactly
	// once for migration and then discarded.
	keyLegacy = "conversation_tree"
)

// indexDoc is the persisted session index.
type indexDoc struct {
	Sessions []*Session `json:"sessions"`
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the session set, the active session ID, and the working tree
// the UI mutates. It is constructed by main, loaded once at startup, and
// flushed on shutdown; nothing in this package is a process-wide singleton.
//
// Persistence is best-effort: store failures are logged and the in-memory
// state stays authoritative until the next mutation retries the save.
type Manager struct {
	store    storage.KV
	sessions map[string]*Session
	activeID string
	tree     *tree.Store
}

// NewManager creates a manager over the given store with an empty working
// tree. Call Load before use.
func NewManager(store storage.KV) *Manager {
	m := &Manager{
		store:    store,
		sessions: make(map[string]*Session),
		tree:     tree.NewStore(),
	}
	// Every tree mutation autosaves the active session.
	m.tree.OnChange(func() {
		m.SaveCurrentSession("")
	})
	return m
}

// Tree returns the active working tree.
func (m *Manager) Tree() *tree.Store {
	return m.tree
}

// ActiveID returns the active session ID ("" before Load).
func (m *Manager) ActiveID() string {
	return m.activeID
}

// ActiveName returns the active session's display name.
func (m *Manager) ActiveName() string {
	if sess, ok := m.sessions[m.activeID]; ok {
		return sess.Name
	}
	return ""
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// Load reads the persisted session index, migrates the legacy single-tree
// format when present, and activates a session: the recorded active session
// if it still exists, else the most recently updated one, else a brand-new
// empty session.
func (m *Manager) Load() error {
	m.loadIndex()

	if len(m.sessions) == 0 {
		m.migrateLegacy()
	}

	// Recorded active session, if it survived.
	if id, err := m.store.Get(keyActive); err == nil {
		if _, ok := m.sessions[id]; ok {
			return m.LoadSession(id)
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		log.Printf("treeline: read active session marker: %v", err)
	}

	// Most recently updated session.
	if metas := m.List(); len(metas) > 0 {
		return m.LoadSession(metas[0].ID)
	}

	m.CreateNewSession()
	return nil
}

// loadIndex reads and parses the persisted session index. A corrupt index
// is logged and treated as absent; the store is not modified until the next
// successful save.
func (m *Manager) loadIndex() {
	raw, err := m.store.Get(keySessions)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			log.Printf("treeline: read session index: %v", err)
		}
		return
	}

	var idx indexDoc
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		log.Printf("treeline: parse session index: %v: %v", ErrInvalidFormat, err)
		return
	}

	for _, sess := range idx.Sessions {
		if sess == nil || sess.ID == "" {
			continue
		}
		if sess.Tree == nil {
			sess.Tree = &TreeDoc{}
		}
		m.sessions[sess.ID] = sess
	}
}

// migrateLegacy converts the pre-multi-session single-tree blob into
// exactly one session and discards the blob. Runs only when no sessions
// exist; once the blob is gone a second run is a no-op.
func (m *Manager) migrateLegacy() {
	raw, err := m.store.Get(keyLegacy)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			log.Printf("treeline: read legacy tree: %v", err)
		}
		return
	}

	var doc TreeDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// Leave the blob in place: the session set is unchanged and the
		// data stays available for manual recovery.
		log.Printf("treeline: migrate legacy tree: %v: %v", ErrInvalidFormat, err)
		return
	}

	restored := restoreTree(&doc)
	now := time.Now()
	sess := &Session{
		ID:        GenerateSessionID(),
		Name:      "Migrated conversation",
		CreatedAt: now,
		UpdatedAt: now,
		Tree:      snapshotTree(restored),
	}
	m.sessions[sess.ID] = sess
	m.persist()

	if err := m.store.Delete(keyLegacy); err != nil {
		log.Printf("treeline: discard legacy tree: %v", err)
	}
}

// Flush saves the active session. Called on shutdown; failures are already
// logged by the persistence layer.
func (m *Manager) Flush() {
	if m.activeID == "" && m.tree.IsEmpty() {
		return
	}
	m.SaveCurrentSession("")
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// SaveCurrentSession upserts the session entry for the active session,
// creating one (with a fresh ID) if none is active. An empty name preserves
// the existing name; CreatedAt is never overwritten. Returns the session ID.
func (m *Manager) SaveCurrentSession(name string) string {
	now := time.Now()

	if m.activeID == "" {
		m.activeID = GenerateSessionID()
	}

	sess, ok := m.sessions[m.activeID]
	if !ok {
		sess = &Session{ID: m.activeID, CreatedAt: now}
		m.sessions[m.activeID] = sess
	}

	if name != "" {
		sess.Name = name
	} else if sess.Name == "" {
		sess.Name = "Session " + now.Format("2006-01-02 15:04")
	}

	sess.UpdatedAt = now
	sess.Tree = snapshotTree(m.tree)

	m.persist()
	return m.activeID
}

// LoadSession makes the given session active, saving the currently active
// session first if it has content. The working tree becomes a deep copy of
// the stored snapshot so edits never alias it.
func (m *Manager) LoadSession(id string) error {
	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("load session %q: %w", id, ErrSessionNotFound)
	}

	if m.activeID != "" && m.activeID != id && !m.tree.IsEmpty() {
		m.SaveCurrentSession("")
	}

	m.tree.Replace(restoreTree(sess.Tree))
	m.activeID = id
	m.persist()
	return nil
}

// CreateNewSession saves the active session if it has content, then
// establishes a new empty session as active. Returns the new session ID.
func (m *Manager) CreateNewSession() string {
	if m.activeID != "" && !m.tree.IsEmpty() {
		m.SaveCurrentSession("")
	}

	m.tree.Replace(tree.NewStore())
	m.activeID = GenerateSessionID()
	return m.SaveCurrentSession("")
}

// DeleteSession removes a session. Deleting the active session first
// creates a replacement so editing never points at nothing. No-op if the
// ID is unknown.
func (m *Manager) DeleteSession(id string) {
	if _, ok := m.sessions[id]; !ok {
		return
	}
	if id == m.activeID {
		m.CreateNewSession()
	}
	delete(m.sessions, id)
	m.persist()
}

// RenameSession updates a stored session's name. No-op if the ID is
// unknown.
func (m *Manager) RenameSession(id, name string) {
	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	sess.Name = name
	sess.UpdatedAt = time.Now()
	m.persist()
}

// List returns session metadata, most recently updated first.
func (m *Manager) List() []Meta {
	metas := make([]Meta, 0, len(m.sessions))
	for _, sess := range m.sessions {
		metas = append(metas, Meta{
			ID:        sess.ID,
			Name:      sess.Name,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			NodeCount: len(sess.Tree.Nodes),
		})
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].ID < metas[j].ID
		}
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

// Search returns metadata for sessions whose name, questions, or answers
// contain the query (case-insensitive). An empty query lists everything.
func (m *Manager) Search(query string) []Meta {
	if query == "" {
		return m.List()
	}
	query = strings.ToLower(query)

	var results []Meta
	for _, meta := range m.List() {
		sess := m.sessions[meta.ID]
		if sessionMatches(sess, query) {
			results = append(results, meta)
		}
	}
	return results
}

func sessionMatches(sess *Session, query string) bool {
	if strings.Contains(strings.ToLower(sess.Name), query) {
		return true
	}
	for _, entry := range sess.Tree.Nodes {
		if entry.Node == nil {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Node.Question), query) ||
			strings.Contains(strings.ToLower(entry.Node.Answer), query) {
			return true
		}
	}
	return false
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persist writes the session index and the active-session marker.
// Failures are logged, never propagated: the mutation that triggered the
// save has already succeeded in memory and the next one will retry.
func (m *Manager) persist() {
	idx := indexDoc{Sessions: make([]*Session, 0, len(m.sessions))}
	for _, sess := range m.sessions {
		idx.Sessions = append(idx.Sessions, sess)
	}
	sort.Slice(idx.Sessions, func(i, j int) bool {
		if idx.Sessions[i].CreatedAt.Equal(idx.Sessions[j].CreatedAt) {
			return idx.Sessions[i].ID < idx.Sessions[j].ID
		}
		return idx.Sessions[i].CreatedAt.Before(idx.Sessions[j].CreatedAt)
	})

	data, err := json.Marshal(idx)
	if err != nil {
		log.Printf("treeline: encode session index: %v", err)
		return
	}

	if err := m.store.Set(keySessions, string(data)); err != nil {
		log.Printf("treeline: persist session index: %v", err)
	}
	if err := m.store.Set(keyActive, m.activeID); err != nil {
		log.Printf("treeline: persist active session marker: %v", err)
	}
}
