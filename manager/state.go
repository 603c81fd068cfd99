package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/persist/observability"
	"github.com/tailored-agentic-units/persist/paths"
	"github.com/tailored-agentic-units/persist/storage"
)

// Memory content types understood by the conversation engine.
const (
	MimeText     = "text/plain"
	MimeJSON     = "application/json"
	MimeMarkdown = "text/markdown"
	MimeImage    = "image/*"
	MimeBinary   = "application/octet-stream"
)

var knownMimeTypes = map[string]bool{
	MimeText:     true,
	MimeJSON:     true,
	MimeMarkdown: true,
	MimeImage:    true,
	MimeBinary:   true,
}

// MemoryEntry is one item of an agent's memory.
type MemoryEntry struct {
	Content  string `json:"content"`
	MimeType string `json:"mime_type"`
}

// AgentState is the persisted state of a user's conversational agent: the
// engine's opaque state blob and its ordered memory.
type AgentState struct {
	ManagerState   json.RawMessage `json:"manager_state,omitempty"`
	MemoryContents []MemoryEntry   `json:"memory_contents"`
}

// Restorer applies loaded agent state to a running conversation engine.
type Restorer interface {
	RestoreEngineState(ctx context.Context, state json.RawMessage) error
	RestoreMemory(ctx context.Context, entry MemoryEntry) error
}

// partFailure records one section or entry of a state document that could
// not be decoded.
type partFailure struct {
	part string
	err  error
}

// stateDecode is the outcome of decoding a state record: either a parsed
// state, possibly with skipped parts, or a corrupt payload.
type stateDecode struct {
	state    *AgentState
	failures []partFailure
	corrupt  []byte
}

// decodeAgentState classifies raw. A record that is not a JSON object is
// corrupt. Within an object, the engine state and each memory entry decode
// independently; failures are collected and the remainder kept.
func decodeAgentState(raw []byte) stateDecode {
	if raw == nil {
		raw = []byte{}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return stateDecode{corrupt: raw}
	}

	d := stateDecode{state: &AgentState{MemoryContents: []MemoryEntry{}}}

	if ms, ok := doc["manager_state"]; ok && !isNull(ms) {
		d.state.ManagerState = ms
	}

	mc, ok := doc["memory_contents"]
	if !ok || isNull(mc) {
		return d
	}

	var items []json.RawMessage
	if err := json.Unmarshal(mc, &items); err != nil {
		d.failures = append(d.failures, partFailure{part: "memory_contents", err: err})
		return d
	}

	for i, item := range items {
		entry, err := decodeMemoryEntry(item)
		if err != nil {
			d.failures = append(d.failures, partFailure{part: fmt.Sprintf("memory_contents[%d]", i), err: err})
			continue
		}
		d.state.MemoryContents = append(d.state.MemoryContents, entry)
	}
	return d
}

func decodeMemoryEntry(raw json.RawMessage) (MemoryEntry, error) {
	var fields struct {
		Content  *string `json:"content"`
		MimeType string  `json:"mime_type"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return MemoryEntry{}, err
	}
	if fields.Content == nil {
		return MemoryEntry{}, errors.New("missing content")
	}
	if !knownMimeTypes[fields.MimeType] {
		return MemoryEntry{}, fmt.Errorf("unknown mime type %q", fields.MimeType)
	}
	return MemoryEntry{Content: *fields.Content, MimeType: fields.MimeType}, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// SaveAgentState persists the full state for userID, replacing any previous
// state.
func (m *Manager) SaveAgentState(ctx context.Context, userID int64, state *AgentState) error {
	doc := *state
	if doc.MemoryContents == nil {
		doc.MemoryContents = []MemoryEntry{}
	}

	path := paths.AgentState(userID)
	if err := m.backend.WriteJSON(ctx, path, &doc); err != nil {
		return fmt.Errorf("save agent state %d: %w", userID, err)
	}

	m.emit(ctx, EventStateSaved, observability.LevelVerbose, "manager.SaveAgentState", map[string]any{
		"user_id":  userID,
		"memories": len(doc.MemoryContents),
	})
	return nil
}

// LoadAgentState returns the persisted state for userID. It reports false
// with a nil error when nothing was saved, and also when the record could
// not be parsed: the unparsable bytes are copied to a quarantine path and,
// once the copy is written, the original is removed so the next load does
// not hit the same failure. Sections that fail to decode inside
// an otherwise valid record are skipped and reported through the observer.
func (m *Manager) LoadAgentState(ctx context.Context, userID int64) (*AgentState, bool, error) {
	path := paths.AgentState(userID)

	raw, err := m.backend.ReadBytes(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load agent state %d: %w", userID, err)
	}

	d := decodeAgentState(raw)
	if d.corrupt != nil {
		m.quarantine(ctx, path, d.corrupt)
		return nil, false, nil
	}

	for _, f := range d.failures {
		m.emit(ctx, EventStateRestoreFailed, observability.LevelWarning, "manager.LoadAgentState", map[string]any{
			"user_id": userID,
			"part":    f.part,
			"error":   f.err.Error(),
		})
	}

	m.emit(ctx, EventStateLoaded, observability.LevelVerbose, "manager.LoadAgentState", map[string]any{
		"user_id":  userID,
		"memories": len(d.state.MemoryContents),
		"skipped":  len(d.failures),
	})
	return d.state, true, nil
}

// quarantine preserves raw at the diagnostic path and clears the original.
// The original is only removed once the copy is written. Failures are
// reported, never returned.
func (m *Manager) quarantine(ctx context.Context, path string, raw []byte) {
	target := paths.Quarantine(path)

	if err := m.backend.WriteBytes(ctx, target, raw); err != nil {
		m.emit(ctx, EventQuarantineFailed, observability.LevelError, "manager.quarantine", map[string]any{
			"path":  path,
			"step":  "copy",
			"error": err.Error(),
		})
		return
	}
	if err := m.backend.Delete(ctx, path); err != nil {
		m.emit(ctx, EventQuarantineFailed, observability.LevelError, "manager.quarantine", map[string]any{
			"path":  path,
			"step":  "remove",
			"error": err.Error(),
		})
		return
	}

	m.emit(ctx, EventStateQuarantined, observability.LevelWarning, "manager.quarantine", map[string]any{
		"path":       path,
		"quarantine": target,
		"bytes":      len(raw),
	})
}

// RestoreAgentState loads the state for userID and applies it to r. The
// engine state and every memory entry are applied independently; a part r
// rejects is reported and skipped. It reports whether prior state existed.
func (m *Manager) RestoreAgentState(ctx context.Context, userID int64, r Restorer) (bool, error) {
	state, found, err := m.LoadAgentState(ctx, userID)
	if err != nil || !found {
		return false, err
	}

	if state.ManagerState != nil {
		if err := r.RestoreEngineState(ctx, state.ManagerState); err != nil {
			m.emit(ctx, EventStateRestoreFailed, observability.LevelWarning, "manager.RestoreAgentState", map[string]any{
				"user_id": userID,
				"part":    "manager_state",
				"error":   err.Error(),
			})
		}
	}

	for i, entry := range state.MemoryContents {
		if err := r.RestoreMemory(ctx, entry); err != nil {
			m.emit(ctx, EventStateRestoreFailed, observability.LevelWarning, "manager.RestoreAgentState", map[string]any{
				"user_id": userID,
				"part":    fmt.Sprintf("memory_contents[%d]", i),
				"error":   err.Error(),
			})
		}
	}
	return true, nil
}

// DeleteAgentState removes the state for userID. Missing state is ignored.
func (m *Manager) DeleteAgentState(ctx context.Context, userID int64) error {
	if err := m.backend.Delete(ctx, paths.AgentState(userID)); err != nil {
		return fmt.Errorf("delete agent state %d: %w", userID, err)
	}
	return nil
}
