package model

// Attachment type tags.
const (
	AttachmentImage    = "image"
	AttachmentDocument = "document"
	AttachmentFloorMap = "floor_map"
	AttachmentOther    = "other"
)

// Attachment display-text kinds.
const (
	AttachmentTextCaption  = "caption"
	AttachmentTextAltText  = "alt_text"
	AttachmentTextFileName = "file_name"
)

// Message field names, shared by the mongo store's filters/updates.
const (
	MsgFieldServerMsgID    = "server_msg_id"
	MsgFieldConversationID = "conversation_id"
	MsgFieldSenderID       = "sender_id"
	MsgFieldSeq            = "seq"
	MsgFieldText           = "text"
	MsgFieldAttachments    = "attachments"
	MsgFieldDedupID        = "dedup_id"
	MsgFieldCreatedAt      = "created_at"
	MsgFieldUpdatedAt      = "updated_at"
	MsgFieldDeleted        = "deleted"
)

// AttachmentText is one piece of display text attached to an attachment,
// keyed by kind (caption, alt text, ...). Order is preserved.
type AttachmentText struct {
	Kind string `bson:"kind" json:"kind"`
	Text string `bson:"text" json:"text"`
}

// Attachment is an opaque reference to an externally stored object. The
// core never inspects attachment bytes; ObjectID is resolved by the
// attachment storage collaborator. An attachment is owned by exactly one
// message and disappears with it on soft delete.
type Attachment struct {
	AttachmentID string           `bson:"attachment_id" json:"attachmentId"`
	ObjectID     string           `bson:"object_id" json:"objectId"`
	Type         string           `bson:"type" json:"type"`
	Texts        []AttachmentText `bson:"texts,omitempty" json:"texts,omitempty"`
}

// Message is one entry of a conversation's append-only log.
//
// Seq is allocated by the per-conversation sequencer: strictly increasing in
// commit order, starting at 1. ServerMsgID is a snowflake, globally unique
// across conversations. DedupID is the client-supplied idempotency key; a
// resend with the same DedupID returns the already-committed message.
//
// Once committed, Seq, SenderID, ConversationID and CreatedAt never change;
// an edit touches only Text and UpdatedAt. CreatedAt is non-decreasing in
// seq order within a conversation (ties possible under clock coarseness,
// which is why cursors carry the seq as a secondary key).
type Message struct {
	ServerMsgID    string       `bson:"server_msg_id" json:"messageId"`
	ConversationID string       `bson:"conversation_id" json:"conversationId"`
	SenderID       string       `bson:"sender_id" json:"senderId"`
	Seq            int64        `bson:"seq" json:"seq"`
	Text           string       `bson:"text" json:"text"` // may be empty for attachment-only messages
	Attachments    []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	DedupID        string       `bson:"dedup_id,omitempty" json:"-"`

	CreatedAt int64 `bson:"created_at" json:"createdAt"` // unix ms
	UpdatedAt int64 `bson:"updated_at" json:"updatedAt"` // unix ms

	Deleted bool `bson:"deleted" json:"-"` // tombstone; invisible to reads and unread counts
}

func (m *Message) GetTableName() string { return "message" }
