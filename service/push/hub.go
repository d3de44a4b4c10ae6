// Package push is the delivery dispatcher: it fans committed messaging
// events out to the connected sessions of a conversation's participants.
// It owns no durable state — sessions that connect after an event was
// dispatched catch up via history and unread queries.
package push

import (
	"github.com/homeproapp/realtorapp-server-sub001/logger"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
)

// Hub ties the session registry to the fan-out pool and implements the
// messaging core's Dispatcher.
type Hub struct {
	registry *Registry
	fanout   *Fanout
}

func NewHub(shards, queueSize int) *Hub {
	h := &Hub{registry: NewRegistry()}
	h.fanout = NewFanout(shards, queueSize, func(s *Session) {
		h.Unregister(s)
	})
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

// Register attaches a session; the transport layer calls this once the
// connection is authenticated.
func (h *Hub) Register(s *Session) { h.registry.Register(s) }

// Unregister detaches and closes a session.
func (h *Hub) Unregister(s *Session) {
	h.registry.Unregister(s)
	s.Close()
}

// MessageAppended pushes a message.created event to every participant
// session, the sender's own devices included.
func (h *Hub) MessageAppended(conv *model.Conversation, msg *model.Message) {
	ev := &Event{
		Type:           EventMessageCreated,
		ConversationID: conv.ConversationID,
		Message:        msg,
	}
	h.deliver(conv, ev)
}

// ReadStateChanged pushes a read.updated event to every participant
// session. Self-echo is deliberate: all of the acting user's devices see
// their own receipt and stay consistent.
func (h *Hub) ReadStateChanged(conv *model.Conversation, userID string, uptoSeq, at int64) {
	ev := &Event{
		Type:           EventReadUpdated,
		ConversationID: conv.ConversationID,
		Read:           &ReadUpdate{UserID: userID, UptoSeq: uptoSeq, At: at},
	}
	h.deliver(conv, ev)
}

func (h *Hub) deliver(conv *model.Conversation, ev *Event) {
	payload, err := ev.Encode()
	if err != nil {
		logger.Errorf("encode event conv=%s: %v", conv.ConversationID, err)
		return
	}
	h.DeliverPayload(conv.ConversationID, participantIDs(conv), payload)
}

// DeliverPayload hands an encoded event to the local sessions of the given
// users. Also the entry point for events relayed from peer nodes.
func (h *Hub) DeliverPayload(conversationID string, userIDs []string, payload []byte) {
	sessions := h.registry.ListByUsers(userIDs)
	h.fanout.Broadcast(conversationID, sessions, payload)
}

func participantIDs(conv *model.Conversation) []string {
	out := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		out = append(out, p.UserID)
	}
	return out
}
