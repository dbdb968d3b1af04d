package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kaixinguo360/lls/internal/cancel"
	"github.com/kaixinguo360/lls/internal/llmclient"
)

// MixedSession supervises a named set of sessions and delegates every call
// to whichever one is currently active, grounded on
// original_source/ai/mixed.py's MixedAI.
//
// remove() on the active id picks a deterministic successor — the first
// surviving id in creation order, kept in an explicit slice — rather than
// the original's `list(self.ais.keys())[0]`, which leaned on CPython's dict
// ordering; Go's map iteration order cannot stand in for it (see DESIGN.md).
type MixedSession struct {
	sessions  map[string]Session
	order     []string
	activeID  string
	hasActive bool
}

// NewMixedSession returns an empty supervisor.
func NewMixedSession() *MixedSession {
	return &MixedSession{sessions: map[string]Session{}}
}

func (m *MixedSession) Type() string { return "mixed" }

// Add registers a session under id, replacing any prior session of that id.
func (m *MixedSession) Add(id string, s Session) {
	if _, exists := m.sessions[id]; !exists {
		m.order = append(m.order, id)
	}
	m.sessions[id] = s
}

// Remove deletes id. If it was active, the first surviving id (in creation
// order) becomes active, or no session is active if none remain.
func (m *MixedSession) Remove(id string) {
	if _, ok := m.sessions[id]; !ok {
		return
	}
	delete(m.sessions, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.activeID == id {
		m.hasActive = false
		m.activeID = ""
		if len(m.order) > 0 {
			m.activeID = m.order[0]
			m.hasActive = true
		}
	}
}

// Rename changes id's key to newID, keeping it active if it was.
func (m *MixedSession) Rename(id, newID string) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("no such session %q", id)
	}
	if _, exists := m.sessions[newID]; exists {
		return fmt.Errorf("session %q already exists", newID)
	}
	delete(m.sessions, id)
	m.sessions[newID] = s
	for i, v := range m.order {
		if v == id {
			m.order[i] = newID
			break
		}
	}
	if m.activeID == id {
		m.activeID = newID
	}
	return nil
}

// Switch makes id the active session.
func (m *MixedSession) Switch(id string) error {
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("no such session %q", id)
	}
	m.activeID = id
	m.hasActive = true
	return nil
}

// Active returns the currently active id and whether one is set.
func (m *MixedSession) Active() (string, bool) {
	return m.activeID, m.hasActive
}

// IDs returns every registered id in creation order.
func (m *MixedSession) IDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Session returns the session registered under id.
func (m *MixedSession) Session(id string) (Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MixedSession) active() (Session, bool) {
	if !m.hasActive {
		return nil, false
	}
	s, ok := m.sessions[m.activeID]
	return s, ok
}

func (m *MixedSession) Generate(ctx context.Context, instruct, console string) *cancel.Adapter[Output] {
	s, ok := m.active()
	if !ok {
		return cancel.Start(func(ctx context.Context, emit func(Output)) error {
			emit(Output{})
			emit(Output{Think: "no selected ai"})
			return nil
		})
	}
	return s.Generate(ctx, instruct, console)
}

func (m *MixedSession) Save(instruct, console, output string) error {
	s, ok := m.active()
	if !ok {
		return nil
	}
	return s.Save(instruct, console, output)
}

func (m *MixedSession) Get(key string) (string, bool) {
	s, ok := m.active()
	if !ok {
		return "", false
	}
	return s.Get(key)
}

func (m *MixedSession) Set(key, value string) error {
	s, ok := m.active()
	if !ok {
		return fmt.Errorf("no active session")
	}
	return s.Set(key, value)
}

func (m *MixedSession) Configs() []ConfigEntry {
	s, ok := m.active()
	if !ok {
		return nil
	}
	return s.Configs()
}

type mixedConfig struct {
	CurrentAIID string                    `json:"current_ai_id,omitempty"`
	AI          map[string]StoredSession  `json:"ai"`
}

// SaveConfig serializes the whole registry: every sub-session's own
// SaveConfig output, tagged with its type, plus which id is active.
func (m *MixedSession) SaveConfig() (json.RawMessage, error) {
	cfg := mixedConfig{CurrentAIID: m.activeID, AI: map[string]StoredSession{}}
	for id, s := range m.sessions {
		sub, err := s.SaveConfig()
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", id, err)
		}
		cfg.AI[id] = StoredSession{ID: id, Type: s.Type(), Config: sub}
	}
	return json.Marshal(cfg)
}

// MixedSessionFromConfig rebuilds a supervisor from a persisted blob. A
// malformed sub-entry is skipped rather than aborting the whole load,
// matching ai/mixed.py's per-entry try/except around from_config.
func MixedSessionFromConfig(client *llmclient.Client, raw json.RawMessage, diag func(id string, err error)) (*MixedSession, error) {
	m := NewMixedSession()
	if len(raw) == 0 {
		return m, nil
	}
	var cfg mixedConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("mixed session config: %w", err)
	}
	// Deterministic load order so IDs (and hence remove()'s successor
	// choice) don't depend on Go's randomized map iteration.
	ids := make([]string, 0, len(cfg.AI))
	for id := range cfg.AI {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entry := cfg.AI[id]
		s, err := FromStored(client, entry)
		if err != nil {
			if diag != nil {
				diag(id, err)
			}
			continue
		}
		m.Add(id, s)
	}
	if cfg.CurrentAIID != "" {
		if _, ok := m.sessions[cfg.CurrentAIID]; ok {
			m.activeID = cfg.CurrentAIID
			m.hasActive = true
		}
	}
	return m, nil
}
