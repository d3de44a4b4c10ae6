package model

import "time"

// ConversationSeq field names for the mongo segment DAO.
const (
	SeqFieldConversationID = "conversation_id"
	SeqFieldMaxSeq         = "max_seq"
	SeqFieldMinSeq         = "min_seq"
	SeqFieldIssuedSeq      = "issued_seq"
	SeqFieldCreateTime     = "create_time"
	SeqFieldUpdateTime     = "update_time"
)

// ConversationSeq tracks the sequence watermarks of one conversation's
// message log.
//
// IssuedSeq is the highest seq handed out to writers (segment allocation
// runs ahead of commits); MaxSeq is the highest committed, readable seq;
// MinSeq is the retention lower bound after history cleanup. Readable
// range is (MinSeq, MaxSeq].
type ConversationSeq struct {
	ConversationID string `bson:"conversation_id"`
	MaxSeq         int64  `bson:"max_seq"`
	MinSeq         int64  `bson:"min_seq"`
	IssuedSeq      int64  `bson:"issued_seq"`

	CreateTime time.Time `bson:"create_time"`
	UpdateTime time.Time `bson:"update_time"`
}

func (s *ConversationSeq) GetTableName() string { return "seq_conversation" }
