package genai

import (
	"fmt"

	"github.com/kaixinguo360/lls/internal/llmclient"
)

// FromStored reconstructs a Session from a persisted StoredSession entry,
// dispatching on its Type tag the way original_source/ai/registry.py's
// to_ai_type did for its string-keyed _ai_types table. Session.Type()
// already exposes the tag for the reverse direction (SaveConfig), so unlike
// the original there is no need for a get_ai_type reflection lookup.
func FromStored(client *llmclient.Client, stored StoredSession) (Session, error) {
	switch stored.Type {
	case "chat":
		return ChatSessionFromConfig(client, stored.Config)
	case "text":
		return TextSessionFromConfig(client, stored.Config)
	case "mixed":
		return MixedSessionFromConfig(client, stored.Config, nil)
	default:
		return nil, fmt.Errorf("unknown session type %q", stored.Type)
	}
}

// NewByType constructs a fresh, unconfigured session of the given type.
func NewByType(client *llmclient.Client, typ string) (Session, error) {
	switch typ {
	case "chat":
		return NewChatSession(client), nil
	case "text":
		return NewTextSession(client), nil
	case "mixed":
		return NewMixedSession(), nil
	default:
		return nil, fmt.Errorf("unknown session type %q", typ)
	}
}

// ToStored serializes s back to its StoredSession form under id.
func ToStored(id string, s Session) (StoredSession, error) {
	cfg, err := s.SaveConfig()
	if err != nil {
		return StoredSession{}, err
	}
	return StoredSession{ID: id, Type: s.Type(), Config: cfg}, nil
}
