// Package relay bridges committed messaging events across gateway nodes
// over NATS. The node that commits an event fans it out locally and
// publishes it; peer nodes deliver to their own connected sessions. Relay
// is best-effort like the rest of the push path: a publish failure never
// fails the originating call.
package relay

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/homeproapp/realtorapp-server-sub001/logger"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/service/push"
)

const DefaultSubject = "realtor.messaging.events"

// envelope wraps an encoded push event with its addressing so peer nodes
// need no store lookup to deliver.
type envelope struct {
	NodeID         string          `json:"nodeId"`
	ConversationID string          `json:"conversationId"`
	UserIDs        []string        `json:"userIds"`
	Event          json.RawMessage `json:"event"`
}

// Dispatcher implements messaging.Dispatcher: local fan-out through the
// hub plus publication for peers.
type Dispatcher struct {
	Local   *push.Hub
	NC      *nats.Conn
	Subject string
	NodeID  string
}

func NewDispatcher(local *push.Hub, nc *nats.Conn, subject, nodeID string) *Dispatcher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Dispatcher{Local: local, NC: nc, Subject: subject, NodeID: nodeID}
}

func (d *Dispatcher) MessageAppended(conv *model.Conversation, msg *model.Message) {
	d.Local.MessageAppended(conv, msg)
	d.publish(conv, &push.Event{
		Type:           push.EventMessageCreated,
		ConversationID: conv.ConversationID,
		Message:        msg,
	})
}

func (d *Dispatcher) ReadStateChanged(conv *model.Conversation, userID string, uptoSeq, at int64) {
	d.Local.ReadStateChanged(conv, userID, uptoSeq, at)
	d.publish(conv, &push.Event{
		Type:           push.EventReadUpdated,
		ConversationID: conv.ConversationID,
		Read:           &push.ReadUpdate{UserID: userID, UptoSeq: uptoSeq, At: at},
	})
}

func (d *Dispatcher) publish(conv *model.Conversation, ev *push.Event) {
	if d.NC == nil {
		return
	}
	raw, err := ev.Encode()
	if err != nil {
		logger.Errorf("relay encode conv=%s: %v", conv.ConversationID, err)
		return
	}
	userIDs := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		userIDs = append(userIDs, p.UserID)
	}
	data, err := json.Marshal(envelope{
		NodeID:         d.NodeID,
		ConversationID: conv.ConversationID,
		UserIDs:        userIDs,
		Event:          raw,
	})
	if err != nil {
		logger.Errorf("relay marshal conv=%s: %v", conv.ConversationID, err)
		return
	}
	if err := d.NC.Publish(d.Subject, data); err != nil {
		logger.Warnf("relay publish conv=%s: %v", conv.ConversationID, err)
	}
}

// Subscribe starts delivering peer events to the local hub. Events from
// this node are skipped — they were fanned out at commit time.
func (d *Dispatcher) Subscribe() (*nats.Subscription, error) {
	return d.NC.Subscribe(d.Subject, func(m *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Warnf("relay decode: %v", err)
			return
		}
		if env.NodeID == d.NodeID {
			return
		}
		d.Local.DeliverPayload(env.ConversationID, env.UserIDs, env.Event)
	})
}
