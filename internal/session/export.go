// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// VERSIONED EXPORT FORMAT
// =============================================================================

// ExportVersion is the current export document version. Imports tolerate an
// older or missing version by treating the document as the baseline format.
const ExportVersion = 1

// ExportDoc is the self-contained serialized form of one session.
type ExportDoc struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Session    *Session  `json:"session"`
}

// ExportSession produces a versioned, self-contained serialization of one
// session. Returns ErrSessionNotFound for an unknown ID.
func (m *Manager) ExportSession(id string) (string, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return "", fmt.Errorf("export session %q: %w", id, ErrSessionNotFound)
	}

	doc := ExportDoc{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Session:    sess,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export session %q: %w", id, err)
	}
	return string(data), nil
}

// ImportSession parses an exported session document and registers it under
// a fresh session ID. Imports never collide with or overwrite an existing
// session. Returns the new ID, or ErrInvalidFormat when the document is
// unparseable or carries no tree; the session set is unchanged on failure.
func (m *Manager) ImportSession(serialized string) (string, error) {
	var doc ExportDoc
	if err := json.Unmarshal([]byte(serialized), &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Session == nil || doc.Session.Tree == nil {
		return "", fmt.Errorf("%w: missing session tree", ErrInvalidFormat)
	}

	// Normalize the shape and back-fill names regardless of the document's
	// version; a missing version is the original baseline format.
	restored := restoreTree(doc.Session.Tree)

	now := time.Now()
	sess := &Session{
		ID:        GenerateSessionID(),
		Name:      doc.Session.Name,
		CreatedAt: doc.Session.CreatedAt,
		UpdatedAt: now,
		Tree:      snapshotTree(restored),
	}
	if sess.Name == "" {
		sess.Name = "Imported session"
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}

	m.sessions[sess.ID] = sess
	m.persist()
	return sess.ID, nil
}

// =============================================================================
// MARKDOWN TRANSCRIPT
// =============================================================================

// ExportMarkdown renders a session's tree as a Markdown transcript:
// metadata header, then each conversation branch in depth-first order with
// nesting shown by header depth. Returns ErrSessionNotFound for an unknown
// ID.
func (m *Manager) ExportMarkdown(id string) (string, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return "", fmt.Errorf("export session %q: %w", id, ErrSessionNotFound)
	}

	restored := restoreTree(sess.Tree)
	nodes := restored.Nodes()

	var sb strings.Builder
	sb.WriteString("# " + sess.Name + "\n\n")
	sb.WriteString("Created: " + sess.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	type frame struct {
		id    string
		depth int
	}

	// Roots in reverse so the stack pops them in order.
	rootIDs := restored.RootIDs()
	var stack []frame
	for i := len(rootIDs) - 1; i >= 0; i-- {
		stack = append(stack, frame{rootIDs[i], 0})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := nodes[f.id]
		if !ok {
			continue
		}

		// Header depth caps at h6 per Markdown.
		level := f.depth + 2
		if level > 6 {
			level = 6
		}
		sb.WriteString(strings.Repeat("#", level) + " " + n.Name + "\n\n")
		sb.WriteString("**Q:** " + n.Question + "\n\n")
		sb.WriteString("**A:** " + n.Answer + "\n\n")

		for i := len(n.ChildrenIDs) - 1; i >= 0; i-- {
			stack = append(stack, frame{n.ChildrenIDs[i], f.depth + 1})
		}
	}

	return sb.String(), nil
}
