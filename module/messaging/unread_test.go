package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

func seedConversation(t *testing.T, s *store.MemoryStore, convID string) {
	t.Helper()
	err := s.UpsertConversation(context.Background(), &model.Conversation{
		ConversationID: convID,
		ListingID:      "listing-1",
		Participants: []model.Participant{
			{UserID: "user-a", Role: model.RoleAgent},
			{UserID: "user-b", Role: model.RoleClient},
		},
	})
	require.NoError(t, err)
}

func seedMessage(t *testing.T, s *store.MemoryStore, convID, sender string) *model.Message {
	t.Helper()
	m := &model.Message{ServerMsgID: "srv", ConversationID: convID, SenderID: sender, Text: "m"}
	require.NoError(t, s.AppendMessage(context.Background(), m))
	return m
}

func TestMarkReadReportsTransitions(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	ctx := context.Background()

	// Alternating senders, seqs 1..5: A sends odd, B sends even.
	for i := 0; i < 5; i++ {
		sender := "user-a"
		if i%2 == 1 {
			sender = "user-b"
		}
		seedMessage(t, s, "c1", sender)
	}

	u := NewUnreadTracker(s)
	res, err := u.MarkRead(ctx, "user-b", "c1", 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, res.MarkedSeqs, "own messages never transition")
	assert.Equal(t, 2, res.TotalMarked)
	assert.Equal(t, int64(3), res.ReadSeq)
}

func TestMarkReadIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		seedMessage(t, s, "c1", "user-a")
	}

	u := NewUnreadTracker(s)
	first, err := u.MarkRead(ctx, "user-b", "c1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalMarked)

	second, err := u.MarkRead(ctx, "user-b", "c1", 3)
	require.NoError(t, err)
	assert.Zero(t, second.TotalMarked)
	assert.Empty(t, second.MarkedSeqs)
	assert.Equal(t, int64(3), second.ReadSeq)

	// A lower uptoSeq never regresses the watermark.
	third, err := u.MarkRead(ctx, "user-b", "c1", 1)
	require.NoError(t, err)
	assert.Zero(t, third.TotalMarked)
	assert.Equal(t, int64(3), third.ReadSeq)
}

func TestMarkReadRejectsSeqOutsideConversation(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	ctx := context.Background()
	seedMessage(t, s, "c1", "user-a")

	u := NewUnreadTracker(s)
	_, err := u.MarkRead(ctx, "user-b", "c1", 0)
	assert.True(t, errs.ErrArgs.Is(err))

	_, err = u.MarkRead(ctx, "user-b", "c1", 2)
	assert.True(t, errs.ErrArgs.Is(err))

	_, err = u.MarkRead(ctx, "user-b", "missing", 1)
	assert.True(t, errs.ErrNotFound.Is(err))
}

func TestUnreadCountDerivation(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	ctx := context.Background()
	u := NewUnreadTracker(s)

	n, err := u.UnreadCount(ctx, "user-b", "c1")
	require.NoError(t, err)
	assert.Zero(t, n)

	// Counterpart appends: +1. Own append: unchanged.
	seedMessage(t, s, "c1", "user-a")
	n, err = u.UnreadCount(ctx, "user-b", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	seedMessage(t, s, "c1", "user-b")
	n, err = u.UnreadCount(ctx, "user-b", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUnreadCountAfterPartialMarkRead(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	ctx := context.Background()
	u := NewUnreadTracker(s)

	// Seqs 1..5 all from A, B reads through 3, then A appends seq 6.
	for i := 0; i < 5; i++ {
		seedMessage(t, s, "c1", "user-a")
	}
	_, err := u.MarkRead(ctx, "user-b", "c1", 3)
	require.NoError(t, err)
	seedMessage(t, s, "c1", "user-a")

	n, err := u.UnreadCount(ctx, "user-b", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Deleting an unread message drops it from the derived count.
	require.NoError(t, s.SoftDeleteMessage(ctx, "c1", 5))
	n, err = u.UnreadCount(ctx, "user-b", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUnreadAfterMarkReadAndLaterAppend(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	ctx := context.Background()
	u := NewUnreadTracker(s)

	// Alternating senders, seqs 1..5: A sends odd, B sends even.
	for i := 0; i < 5; i++ {
		sender := "user-a"
		if i%2 == 1 {
			sender = "user-b"
		}
		seedMessage(t, s, "c1", sender)
	}

	// B reads through 3, then A appends seq 6: B's unread is 5 and 6.
	_, err := u.MarkRead(ctx, "user-b", "c1", 3)
	require.NoError(t, err)
	seedMessage(t, s, "c1", "user-a")

	n, err := u.UnreadCount(ctx, "user-b", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUnreadCountsAcrossConversations(t *testing.T) {
	s := store.NewMemoryStore()
	seedConversation(t, s, "c1")
	seedConversation(t, s, "c2")
	ctx := context.Background()
	u := NewUnreadTracker(s)

	seedMessage(t, s, "c1", "user-a")
	seedMessage(t, s, "c1", "user-a")
	seedMessage(t, s, "c2", "user-a")

	counts, err := u.UnreadCounts(ctx, "user-b", []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c1": 2, "c2": 1}, counts)
}
