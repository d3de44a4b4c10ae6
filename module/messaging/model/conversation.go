package model

import "time"

// Participant roles inside a conversation.
const (
	RoleAgent  = "agent"
	RoleClient = "client"
)

// Conversation field names, shared by the mongo store's filters/updates.
const (
	ConvFieldConversationID = "conversation_id"
	ConvFieldListingID      = "listing_id"
	ConvFieldParticipants   = "participants"
	ConvFieldLastSeq        = "last_seq"
	ConvFieldUpdatedAt      = "updated_at"
	ConvFieldCreatedAt      = "created_at"
	ConvFieldDeletedAt      = "deleted_at"
)

// Participant is a snapshot of a user taking part in a conversation.
// Name is denormalized at creation time so list views never join against
// the user service.
type Participant struct {
	UserID string `bson:"user_id" json:"userId"`
	Role   string `bson:"role" json:"role"`
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
}

// Conversation is the canonical per-listing conversation entity. The agent
// and client list views are projections over this one entity; there is no
// separate agent-side or client-side conversation row.
//
// Invariants:
//   - the participant set only changes through AddParticipant/RemoveParticipant
//     store operations, never as a side effect of message writes;
//   - UpdatedAt is monotonically non-decreasing (bumped to the commit time of
//     the latest message);
//   - LastSeq mirrors the highest committed message seq (commit waterline).
type Conversation struct {
	ConversationID string        `bson:"conversation_id"`
	ListingID      string        `bson:"listing_id"`
	Participants   []Participant `bson:"participants"`

	LastSeq   int64 `bson:"last_seq"`   // highest committed message seq
	UpdatedAt int64 `bson:"updated_at"` // unix ms of the last committed message

	CreatedAt time.Time  `bson:"created_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty"` // soft-delete tombstone
}

func (c *Conversation) GetTableName() string { return "conversation" }

func (c *Conversation) IsDeleted() bool { return c.DeletedAt != nil }

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the role of userID in the conversation, or "" when the
// user is not a participant.
func (c *Conversation) RoleOf(userID string) string {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p.Role
		}
	}
	return ""
}

// Counterparts returns the participants whose role differs from role.
func (c *Conversation) Counterparts(role string) []Participant {
	var out []Participant
	for _, p := range c.Participants {
		if p.Role != role {
			out = append(out, p)
		}
	}
	return out
}
