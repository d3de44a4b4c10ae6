package push

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
)

func testConv() *model.Conversation {
	return &model.Conversation{
		ConversationID: "lst:listing-1:agent-1_client-1",
		ListingID:      "listing-1",
		Participants: []model.Participant{
			{UserID: "agent-1", Role: model.RoleAgent},
			{UserID: "client-1", Role: model.RoleClient},
		},
	}
}

func recvEvent(t *testing.T, s *Session) *Event {
	t.Helper()
	select {
	case payload := <-s.Send:
		ev, err := DecodeEvent(payload)
		require.NoError(t, err)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func expectSilence(t *testing.T, s *Session) {
	t.Helper()
	select {
	case payload := <-s.Send:
		t.Fatalf("unexpected delivery: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	s1 := NewSession("conn-1", "user-a", 1)
	s2 := NewSession("conn-2", "user-a", 1)
	s3 := NewSession("conn-3", "user-b", 1)

	r.Register(s1)
	r.Register(s2)
	r.Register(s3)

	assert.Equal(t, 3, r.Len())
	assert.Len(t, r.ListByUser("user-a"), 2)
	assert.Len(t, r.ListByUsers([]string{"user-a", "user-b"}), 3)
	assert.Same(t, s3, r.GetByConnID("conn-3"))

	r.Unregister(s1)
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.ListByUser("user-a"), 1)
	assert.Nil(t, r.GetByConnID("conn-1"))

	r.Unregister(s2)
	assert.Nil(t, r.ListByUser("user-a"))
}

func TestHubDeliversToAllParticipantSessions(t *testing.T) {
	hub := NewHub(2, 16)
	conv := testConv()

	agent := NewSession("conn-a", "agent-1", 4)
	clientPhone := NewSession("conn-c1", "client-1", 4)
	clientLaptop := NewSession("conn-c2", "client-1", 4)
	outsider := NewSession("conn-x", "stranger", 4)
	for _, s := range []*Session{agent, clientPhone, clientLaptop, outsider} {
		hub.Register(s)
	}

	msg := &model.Message{ServerMsgID: "srv-1", ConversationID: conv.ConversationID, SenderID: "agent-1", Seq: 1, Text: "hi"}
	hub.MessageAppended(conv, msg)

	// Sender's own devices receive the event too.
	for _, s := range []*Session{agent, clientPhone, clientLaptop} {
		ev := recvEvent(t, s)
		assert.Equal(t, EventMessageCreated, ev.Type)
		require.NotNil(t, ev.Message)
		assert.Equal(t, int64(1), ev.Message.Seq)
	}
	expectSilence(t, outsider)
}

func TestHubReadReceiptSelfEcho(t *testing.T) {
	hub := NewHub(2, 16)
	conv := testConv()

	reader := NewSession("conn-r", "client-1", 4)
	readerOther := NewSession("conn-r2", "client-1", 4)
	counterpart := NewSession("conn-a", "agent-1", 4)
	for _, s := range []*Session{reader, readerOther, counterpart} {
		hub.Register(s)
	}

	hub.ReadStateChanged(conv, "client-1", 3, 1700000000000)

	for _, s := range []*Session{reader, readerOther, counterpart} {
		ev := recvEvent(t, s)
		assert.Equal(t, EventReadUpdated, ev.Type)
		require.NotNil(t, ev.Read)
		assert.Equal(t, "client-1", ev.Read.UserID)
		assert.Equal(t, int64(3), ev.Read.UptoSeq)
	}
}

func TestFanoutPreservesPerConversationOrder(t *testing.T) {
	hub := NewHub(4, 64)
	conv := testConv()
	sess := NewSession("conn-1", "client-1", 64)
	hub.Register(sess)

	const n = 30
	for i := 1; i <= n; i++ {
		hub.MessageAppended(conv, &model.Message{
			ServerMsgID:    fmt.Sprintf("srv-%d", i),
			ConversationID: conv.ConversationID,
			SenderID:       "agent-1",
			Seq:            int64(i),
		})
	}

	for i := 1; i <= n; i++ {
		ev := recvEvent(t, sess)
		require.NotNil(t, ev.Message)
		assert.Equal(t, int64(i), ev.Message.Seq, "events arrive in commit order")
	}
}

func TestSlowSessionIsDropped(t *testing.T) {
	hub := NewHub(1, 16)
	conv := testConv()

	slow := NewSession("conn-slow", "client-1", 1)
	hub.Register(slow)
	require.Equal(t, 1, hub.Registry().Len())

	// Nobody drains the queue; the second event overflows it.
	for i := 1; i <= 3; i++ {
		hub.MessageAppended(conv, &model.Message{
			ServerMsgID:    fmt.Sprintf("srv-%d", i),
			ConversationID: conv.ConversationID,
			SenderID:       "agent-1",
			Seq:            int64(i),
		})
	}

	require.Eventually(t, func() bool {
		return hub.Registry().Len() == 0
	}, 2*time.Second, 10*time.Millisecond, "slow session torn down")

	// Teardown signalled the session.
	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed")
	}
}

func TestEventEncodeDecodeRoundTrip(t *testing.T) {
	ev := &Event{
		Type:           EventMessageCreated,
		ConversationID: "c1",
		Message: &model.Message{
			ServerMsgID:    "srv-1",
			ConversationID: "c1",
			SenderID:       "agent-1",
			Seq:            7,
			Text:           "hello",
			CreatedAt:      1700000000000,
		},
	}
	payload, err := ev.Encode()
	require.NoError(t, err)

	got, err := DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, ev.Type, got.Type)
	require.NotNil(t, got.Message)
	assert.Equal(t, ev.Message.Seq, got.Message.Seq)
	assert.Equal(t, ev.Message.Text, got.Message.Text)
	assert.Nil(t, got.Read)
}
