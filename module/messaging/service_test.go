package messaging

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// recordingDispatcher captures dispatched events in order.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (d *recordingDispatcher) MessageAppended(conv *model.Conversation, msg *model.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, fmt.Sprintf("msg:%s:%d", conv.ConversationID, msg.Seq))
}

func (d *recordingDispatcher) ReadStateChanged(conv *model.Conversation, userID string, uptoSeq, at int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, fmt.Sprintf("read:%s:%s:%d", conv.ConversationID, userID, uptoSeq))
}

func (d *recordingDispatcher) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

var (
	agentP  = Principal{UserID: "agent-1", Role: model.RoleAgent}
	clientP = Principal{UserID: "client-1", Role: model.RoleClient}
)

func firstSendReq(text string) SendMessageRequest {
	return SendMessageRequest{
		ListingID: "listing-1",
		Participants: []model.Participant{
			{UserID: "agent-1", Role: model.RoleAgent},
			{UserID: "client-1", Role: model.RoleClient},
		},
		Text: text,
	}
}

func TestSendMessageCreatesConversationAndDispatches(t *testing.T) {
	disp := &recordingDispatcher{}
	svc := NewService(store.NewMemoryStore(), disp)
	ctx := context.Background()

	m, err := svc.SendMessage(ctx, agentP, firstSendReq("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Seq)
	assert.NotEmpty(t, m.ServerMsgID)
	assert.Equal(t, "agent-1", m.SenderID)

	events := disp.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, fmt.Sprintf("msg:%s:1", m.ConversationID), events[0])
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	_, err := svc.SendMessage(context.Background(), agentP, firstSendReq(""))
	assert.True(t, errs.ErrArgs.Is(err))
}

func TestSendMessageNonParticipantNotFound(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	m, err := svc.SendMessage(ctx, agentP, firstSendReq("hello"))
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, Principal{UserID: "stranger", Role: model.RoleClient}, SendMessageRequest{
		ConversationID: m.ConversationID,
		Text:           "let me in",
	})
	assert.True(t, errs.ErrNotFound.Is(err))

	_, err = svc.SendMessage(ctx, agentP, SendMessageRequest{ConversationID: "missing", Text: "x"})
	assert.True(t, errs.ErrNotFound.Is(err))
}

func TestSendMessageDedupResendReturnsCommitted(t *testing.T) {
	disp := &recordingDispatcher{}
	svc := NewService(store.NewMemoryStore(), disp)
	ctx := context.Background()

	req := firstSendReq("once")
	req.DedupID = "d-1"

	first, err := svc.SendMessage(ctx, agentP, req)
	require.NoError(t, err)
	second, err := svc.SendMessage(ctx, agentP, req)
	require.NoError(t, err)

	assert.Equal(t, first.ServerMsgID, second.ServerMsgID)
	assert.Equal(t, first.Seq, second.Seq)
	assert.Len(t, disp.snapshot(), 1, "resend dispatches nothing")

	// A different sender reusing the dedup id commits its own message.
	other, err := svc.SendMessage(ctx, clientP, SendMessageRequest{
		ConversationID: first.ConversationID,
		Text:           "mine",
		DedupID:        "d-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ServerMsgID, other.ServerMsgID)
}

func TestConcurrentSendsDispatchInCommitOrder(t *testing.T) {
	disp := &recordingDispatcher{}
	svc := NewService(store.NewMemoryStore(), disp)
	ctx := context.Background()

	seed, err := svc.SendMessage(ctx, agentP, firstSendReq("seed"))
	require.NoError(t, err)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, agentP, SendMessageRequest{
				ConversationID: seed.ConversationID,
				Text:           "concurrent",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events := disp.snapshot()
	require.Len(t, events, n+1)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("msg:%s:%d", seed.ConversationID, i+1), ev)
	}
}

func TestMarkReadDispatchesOnceAndOnlyOnTransition(t *testing.T) {
	disp := &recordingDispatcher{}
	svc := NewService(store.NewMemoryStore(), disp)
	ctx := context.Background()

	m, err := svc.SendMessage(ctx, agentP, firstSendReq("hello"))
	require.NoError(t, err)

	res, err := svc.MarkRead(ctx, clientP, m.ConversationID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalMarked)

	res, err = svc.MarkRead(ctx, clientP, m.ConversationID, 1)
	require.NoError(t, err)
	assert.Zero(t, res.TotalMarked)

	events := disp.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, fmt.Sprintf("read:%s:client-1:1", m.ConversationID), events[1])
}

func TestMarkReadOverOwnMessagesStillDispatchesReceipt(t *testing.T) {
	disp := &recordingDispatcher{}
	svc := NewService(store.NewMemoryStore(), disp)
	ctx := context.Background()

	// The agent reads past their own message: nothing transitions, but the
	// watermark moves and the agent's other devices must hear about it.
	m, err := svc.SendMessage(ctx, agentP, firstSendReq("hello"))
	require.NoError(t, err)

	res, err := svc.MarkRead(ctx, agentP, m.ConversationID, 1)
	require.NoError(t, err)
	assert.Zero(t, res.TotalMarked)
	assert.Equal(t, int64(1), res.ReadSeq)

	events := disp.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, fmt.Sprintf("read:%s:agent-1:1", m.ConversationID), events[1])

	// The repeat is a true no-op and stays silent.
	_, err = svc.MarkRead(ctx, agentP, m.ConversationID, 1)
	require.NoError(t, err)
	assert.Len(t, disp.snapshot(), 2)
}

func TestMarkReadNonParticipantNotFound(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	m, err := svc.SendMessage(ctx, agentP, firstSendReq("hello"))
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, Principal{UserID: "stranger", Role: model.RoleClient}, m.ConversationID, 1)
	assert.True(t, errs.ErrNotFound.Is(err))
}

func TestListConversationsByRole(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, agentP, firstSendReq("hello"))
	require.NoError(t, err)

	resp, err := svc.ListConversations(ctx, agentP, 10, 0)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "client-1", resp.Items[0].Counterpart.UserID)

	resp, err = svc.ListConversations(ctx, clientP, 10, 0)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "agent-1", resp.Items[0].Counterpart.UserID)

	_, err = svc.ListConversations(ctx, Principal{UserID: "x", Role: "admin"}, 10, 0)
	assert.True(t, errs.ErrArgs.Is(err))
}

func TestEditMessageSenderOnly(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	m, err := svc.SendMessage(ctx, agentP, firstSendReq("tyop"))
	require.NoError(t, err)

	err = svc.EditMessage(ctx, clientP, m.ConversationID, m.Seq, "hijack")
	assert.True(t, errs.ErrNotFound.Is(err))

	require.NoError(t, svc.EditMessage(ctx, agentP, m.ConversationID, m.Seq, "typo"))

	hist, err := svc.GetHistory(ctx, agentP, m.ConversationID, store.Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, "typo", hist.Messages[0].Text)
	assert.Equal(t, m.Seq, hist.Messages[0].Seq)

	err = svc.EditMessage(ctx, agentP, m.ConversationID, m.Seq, "")
	assert.True(t, errs.ErrArgs.Is(err))
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	m, err := svc.SendMessage(ctx, agentP, firstSendReq("oops"))
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, clientP, m.ConversationID, m.Seq)
	assert.True(t, errs.ErrNotFound.Is(err))

	require.NoError(t, svc.DeleteMessage(ctx, agentP, m.ConversationID, m.Seq))

	hist, err := svc.GetHistory(ctx, agentP, m.ConversationID, store.Cursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hist.Messages)
}
