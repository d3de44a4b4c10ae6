package messaging

import "github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"

// MessageView is a message decorated for one requesting user.
type MessageView struct {
	MessageID      string             `json:"messageId"`
	ConversationID string             `json:"conversationId"`
	SenderID       string             `json:"senderId"`
	Seq            int64              `json:"seq"`
	Text           string             `json:"text"`
	Attachments    []model.Attachment `json:"attachments,omitempty"`
	CreatedAt      int64              `json:"createdAt"`
	UpdatedAt      int64              `json:"updatedAt"`
	IsRead         bool               `json:"isRead"`
}

// MessageHistoryResponse is one page of conversation history, newest first.
// NextBefore/NextBeforeID feed the next request's cursor.
type MessageHistoryResponse struct {
	ConversationID string        `json:"conversationId"`
	Messages       []MessageView `json:"messages"`
	HasMore        bool          `json:"hasMore"`
	NextBefore     int64         `json:"nextBefore,omitempty"`
	NextBeforeID   int64         `json:"nextBeforeId,omitempty"`
}

// ConversationEntryView is one per-listing conversation inside a group.
type ConversationEntryView struct {
	ConversationID string       `json:"conversationId"`
	ListingID      string       `json:"listingId"`
	UpdatedAt      int64        `json:"updatedAt"`
	UnreadCount    int64        `json:"unreadCount"`
	LastMessage    *MessageView `json:"lastMessage,omitempty"`
}

// ConversationGroupView is one row of the grouped list view: a counterpart
// (client for agents, agent for clients) with all shared per-listing
// conversations as sibling entries. The numeric unread count is
// authoritative; HasUnread is derived from it.
type ConversationGroupView struct {
	Counterpart   model.Participant       `json:"counterpart"`
	Conversations []ConversationEntryView `json:"conversations"`
	LastMessage   *MessageView            `json:"lastMessage,omitempty"`
	UnreadCount   int64                   `json:"unreadCount"`
	HasUnread     bool                    `json:"hasUnread"`
	UpdatedAt     int64                   `json:"updatedAt"`
}

// ConversationListResponse is the paginated grouped list view.
type ConversationListResponse struct {
	Items      []ConversationGroupView `json:"items"`
	TotalCount int                     `json:"totalCount"`
	HasMore    bool                    `json:"hasMore"`
}

func viewOf(m *model.Message, lastReadSeq int64, viewerID string) MessageView {
	return MessageView{
		MessageID:      m.ServerMsgID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Seq:            m.Seq,
		Text:           m.Text,
		Attachments:    m.Attachments,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		IsRead:         m.Seq <= lastReadSeq || m.SenderID == viewerID,
	}
}
