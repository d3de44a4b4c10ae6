package model

// ReadState field names for the mongo store.
const (
	ReadFieldUserID         = "user_id"
	ReadFieldConversationID = "conversation_id"
	ReadFieldLastReadSeq    = "last_read_seq"
	ReadFieldUpdatedAt      = "updated_at"
)

// ReadState is a user's read watermark in one conversation: the highest
// message seq the user has acknowledged. It only ever moves forward
// (advanced with max semantics), so a retried or stale mark-read can never
// resurrect unread messages.
//
// Unread counts are derived, never stored: count of live messages with
// seq > LastReadSeq and sender != user.
type ReadState struct {
	UserID         string `bson:"user_id"`
	ConversationID string `bson:"conversation_id"`
	LastReadSeq    int64  `bson:"last_read_seq"`
	UpdatedAt      int64  `bson:"updated_at"` // unix ms
}

func (r *ReadState) GetTableName() string { return "read_state" }
