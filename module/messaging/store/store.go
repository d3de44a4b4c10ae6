// Package store defines the persistence boundary of the messaging core.
// Implementations must uphold the ordering and atomicity guarantees the
// core builds on: per-conversation seq allocation is serialized, read
// watermarks advance with max semantics, and soft-deleted rows are
// invisible to every read — the tombstone predicate is applied here, at
// the store boundary, not per call site.
package store

import (
	"context"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
)

// Cursor addresses a page of history. Before is a unix-ms createdAt bound;
// BeforeSeq breaks ties between messages sharing the same createdAt
// (clock coarseness) so successive pages are exactly gap-free and
// duplicate-free. A zero cursor means "newest page".
type Cursor struct {
	Before    int64
	BeforeSeq int64
}

func (c Cursor) IsZero() bool { return c.Before == 0 && c.BeforeSeq == 0 }

// admits reports whether a message with the given createdAt/seq lies
// strictly before the cursor.
func (c Cursor) admits(createdAt, seq int64) bool {
	if c.IsZero() {
		return true
	}
	if createdAt != c.Before {
		return createdAt < c.Before
	}
	if c.BeforeSeq == 0 {
		// Timestamp-only cursor: strictly older.
		return false
	}
	return seq < c.BeforeSeq
}

// Page is one slice of a conversation's history, newest first.
// NextBefore/NextBeforeSeq echo the oldest returned item and feed the next
// request's cursor.
type Page struct {
	Messages      []*model.Message
	HasMore       bool
	NextBefore    int64
	NextBeforeSeq int64
}

// Store is the persistence collaborator boundary.
//
// AppendMessage allocates the message's seq atomically with respect to
// concurrent appends to the same conversation and fills in Seq, CreatedAt
// and UpdatedAt on the passed message. Appends to different conversations
// are independent.
type Store interface {
	// Conversations.
	UpsertConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]*model.Conversation, error)
	// TouchConversation lifts the conversation's commit waterline:
	// last_seq = max(last_seq, seq), updated_at = max(updated_at, at).
	TouchConversation(ctx context.Context, conversationID string, seq, at int64) error
	AddParticipant(ctx context.Context, conversationID string, p model.Participant) error
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
	SoftDeleteConversation(ctx context.Context, conversationID string) error

	// Messages.
	AppendMessage(ctx context.Context, m *model.Message) error
	GetMessage(ctx context.Context, conversationID string, seq int64) (*model.Message, error)
	FindByDedupID(ctx context.Context, conversationID, senderID, dedupID string) (*model.Message, error)
	PageMessages(ctx context.Context, conversationID string, cur Cursor, limit int) (*Page, error)
	UpdateMessageText(ctx context.Context, conversationID string, seq int64, text string, at int64) error
	SoftDeleteMessage(ctx context.Context, conversationID string, seq int64) error
	MaxSeq(ctx context.Context, conversationID string) (int64, error)

	// Read state.
	GetReadState(ctx context.Context, userID, conversationID string) (*model.ReadState, error)
	// AdvanceReadState sets last_read_seq = max(current, uptoSeq) and
	// returns the watermark before and after the call.
	AdvanceReadState(ctx context.Context, userID, conversationID string, uptoSeq, at int64) (prev, curr int64, err error)

	// CountFrom counts live messages with seq > afterSeq not sent by
	// excludeSender. SeqsFrom lists their seqs for (fromSeq, uptoSeq],
	// ascending.
	CountFrom(ctx context.Context, conversationID string, afterSeq int64, excludeSender string) (int64, error)
	SeqsFrom(ctx context.Context, conversationID string, fromSeq, uptoSeq int64, excludeSender string) ([]int64, error)
}
