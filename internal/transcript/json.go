package transcript

import (
	"encoding/json"
	"time"

	"github.com/anthropics/relay/internal/session"
)

// jsonMessage is the wire shape of one exported message. Pointer fields let
// the importer tell a missing key from an empty value.
type jsonMessage struct {
	Role      *string    `json:"role"`
	Content   *string    `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func exportJSON(msgs []session.Message, pretty bool) ([]byte, error) {
	out := make([]jsonMessage, len(msgs))
	for i := range msgs {
		role := string(msgs[i].Role)
		ts := msgs[i].Timestamp
		out[i] = jsonMessage{Role: &role, Content: &msgs[i].Content, Timestamp: &ts}
	}
	if pretty {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

func importJSON(data []byte) ([]session.Message, error) {
	var raw []jsonMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, session.NewValidationError("data", "must be a JSON array of {role, content, timestamp} objects")
	}

	msgs := make([]session.Message, 0, len(raw))
	for i, jm := range raw {
		if jm.Role == nil {
			return nil, &session.ValidationError{Field: "role", Index: i, Reason: "missing required key"}
		}
		role, err := session.ParseRole(*jm.Role)
		if err != nil {
			return nil, &session.ValidationError{Field: "role", Index: i, Reason: "must be one of user, assistant, system"}
		}
		if jm.Content == nil {
			return nil, &session.ValidationError{Field: "content", Index: i, Reason: "missing required key"}
		}
		if *jm.Content == "" && role != session.RoleSystem {
			return nil, &session.ValidationError{Field: "content", Index: i, Reason: "must not be empty"}
		}
		msg := session.Message{Role: role, Content: *jm.Content}
		if jm.Timestamp != nil {
			msg.Timestamp = *jm.Timestamp
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
