package messaging

import (
	"context"
	"time"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// UnreadTracker owns per-(user, conversation) read state. Unread counts are
// always derived from the message log and the read watermark, never stored,
// so they cannot drift under concurrent appends and mark-reads.
type UnreadTracker struct {
	store store.Store
}

func NewUnreadTracker(s store.Store) *UnreadTracker { return &UnreadTracker{store: s} }

// MarkReadResult reports what one MarkRead call actually transitioned.
// Retried calls return an empty result.
type MarkReadResult struct {
	MarkedSeqs  []int64 `json:"markedMessageIds"`
	TotalMarked int     `json:"totalMarkedCount"`
	ReadSeq     int64   `json:"readSeq"` // watermark after the call

	// advanced is true when this call moved the watermark. It can be true
	// with TotalMarked == 0: advancing over the caller's own messages
	// transitions nothing but still changes state other devices must see.
	advanced bool
}

// Advanced reports whether the call moved the watermark.
func (r *MarkReadResult) Advanced() bool { return r.advanced }

// MarkRead advances the user's watermark to max(current, uptoSeq) and
// returns the seqs that transitioned from unread to read in this call.
// uptoSeq must be a seq allocated in this conversation (1..maxSeq);
// anything else is an invalid argument. Safe to retry: a second identical
// call marks nothing.
func (t *UnreadTracker) MarkRead(ctx context.Context, userID, conversationID string, uptoSeq int64) (*MarkReadResult, error) {
	maxSeq, err := t.store.MaxSeq(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if uptoSeq < 1 || uptoSeq > maxSeq {
		return nil, errs.ErrArgs.WrapMsg("seq outside conversation", "seq", uptoSeq, "max", maxSeq)
	}

	prev, curr, err := t.store.AdvanceReadState(ctx, userID, conversationID, uptoSeq, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	res := &MarkReadResult{ReadSeq: curr, advanced: curr > prev}
	if uptoSeq <= prev {
		return res, nil // idempotent repeat
	}
	marked, err := t.store.SeqsFrom(ctx, conversationID, prev, uptoSeq, userID)
	if err != nil {
		return nil, err
	}
	res.MarkedSeqs = marked
	res.TotalMarked = len(marked)
	return res, nil
}

// UnreadCount derives the user's unread count for one conversation: live
// messages above the watermark not sent by the user.
func (t *UnreadTracker) UnreadCount(ctx context.Context, userID, conversationID string) (int64, error) {
	rs, err := t.store.GetReadState(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	return t.store.CountFrom(ctx, conversationID, rs.LastReadSeq, userID)
}

// UnreadCounts derives per-conversation unread counts for a list view.
func (t *UnreadTracker) UnreadCounts(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(conversationIDs))
	for _, id := range conversationIDs {
		n, err := t.UnreadCount(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, nil
}
