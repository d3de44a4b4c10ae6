package push

import (
	"encoding/json"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
)

// Event types pushed to connected sessions.
const (
	EventMessageCreated = "message.created"
	EventReadUpdated    = "read.updated"
)

// ReadUpdate is the payload of a read.updated event. Self-echo is not
// suppressed: the acting user's other devices receive it too, so every
// device converges on the same read state.
type ReadUpdate struct {
	UserID  string `json:"userId"`
	UptoSeq int64  `json:"uptoSeq"`
	At      int64  `json:"at"`
}

// Event is one frame on the push channel. Events of one conversation reach
// a given session in commit order; no ordering holds across conversations.
type Event struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversationId"`
	Message        *model.Message `json:"message,omitempty"`
	Read           *ReadUpdate    `json:"read,omitempty"`
}

func (e *Event) Encode() ([]byte, error) { return json.Marshal(e) }

func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
