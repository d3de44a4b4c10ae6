package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// SeqAllocator hands out the next message seq for a conversation and lifts
// the committed waterline once the message is durable. Backed by the
// messaging/seq segment allocator in production.
type SeqAllocator interface {
	Next(ctx context.Context, conversationID string) (int64, error)
	AdvanceCommit(ctx context.Context, conversationID string, toSeq int64) error
}

// MongoStore is the durable Store. Soft-delete filtering happens in
// baseline filters built by convFilter/msgFilter so tombstoned rows are
// invisible to every read path uniformly.
type MongoStore struct {
	ConvColl *mongo.Collection
	MsgColl  *mongo.Collection
	ReadColl *mongo.Collection
	SeqColl  *mongo.Collection
	Alloc    SeqAllocator
}

func NewMongoStore(db *mongo.Database, alloc SeqAllocator) *MongoStore {
	conv := model.Conversation{}
	msg := model.Message{}
	rs := model.ReadState{}
	sq := model.ConversationSeq{}
	return &MongoStore{
		ConvColl: db.Collection(conv.GetTableName()),
		MsgColl:  db.Collection(msg.GetTableName()),
		ReadColl: db.Collection(rs.GetTableName()),
		SeqColl:  db.Collection(sq.GetTableName()),
		Alloc:    alloc,
	}
}

func convFilter(conversationID string) bson.M {
	return bson.M{
		model.ConvFieldConversationID: conversationID,
		model.ConvFieldDeletedAt:      nil,
	}
}

func msgFilter(conversationID string) bson.M {
	return bson.M{
		model.MsgFieldConversationID: conversationID,
		model.MsgFieldDeleted:        false,
	}
}

func (s *MongoStore) UpsertConversation(ctx context.Context, c *model.Conversation) error {
	now := time.Now()
	_, err := s.ConvColl.UpdateOne(ctx,
		bson.M{model.ConvFieldConversationID: c.ConversationID},
		bson.M{"$setOnInsert": bson.M{
			model.ConvFieldConversationID: c.ConversationID,
			model.ConvFieldListingID:      c.ListingID,
			model.ConvFieldParticipants:   c.Participants,
			model.ConvFieldLastSeq:        int64(0),
			model.ConvFieldUpdatedAt:      int64(0),
			model.ConvFieldCreatedAt:      now,
			model.ConvFieldDeletedAt:      nil,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("upsert conversation", "err", err)
	}
	return nil
}

func (s *MongoStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.ConvColl.FindOne(ctx, convFilter(conversationID)).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("get conversation", "err", err)
	}
	return &c, nil
}

func (s *MongoStore) ListConversationsByUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	filter := bson.M{
		model.ConvFieldParticipants + ".user_id": userID,
		model.ConvFieldDeletedAt:                 nil,
	}
	cur, err := s.ConvColl.Find(ctx, filter)
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("list conversations", "err", err)
	}
	defer cur.Close(ctx)
	var out []*model.Conversation
	for cur.Next(ctx) {
		var c model.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, errs.ErrUnavailable.WrapMsg("decode conversation", "err", err)
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (s *MongoStore) TouchConversation(ctx context.Context, conversationID string, seqNum, at int64) error {
	_, err := s.ConvColl.UpdateOne(ctx, convFilter(conversationID),
		bson.M{"$max": bson.M{
			model.ConvFieldLastSeq:   seqNum,
			model.ConvFieldUpdatedAt: at,
		}},
	)
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("touch conversation", "err", err)
	}
	return nil
}

func (s *MongoStore) AddParticipant(ctx context.Context, conversationID string, p model.Participant) error {
	res, err := s.ConvColl.UpdateOne(ctx, convFilter(conversationID),
		bson.M{"$addToSet": bson.M{model.ConvFieldParticipants: p}},
	)
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("add participant", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	return nil
}

func (s *MongoStore) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	res, err := s.ConvColl.UpdateOne(ctx, convFilter(conversationID),
		bson.M{"$pull": bson.M{model.ConvFieldParticipants: bson.M{"user_id": userID}}},
	)
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("remove participant", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	return nil
}

func (s *MongoStore) SoftDeleteConversation(ctx context.Context, conversationID string) error {
	now := time.Now()
	res, err := s.ConvColl.UpdateOne(ctx, convFilter(conversationID),
		bson.M{"$set": bson.M{model.ConvFieldDeletedAt: now}},
	)
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("delete conversation", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	return nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, m *model.Message) error {
	next, err := s.Alloc.Next(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	m.Seq = next
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.MsgColl.InsertOne(ctx, m); err != nil {
		return errs.ErrUnavailable.WrapMsg("insert message", "err", err)
	}
	// Lift the commit waterline so readers see the new seq.
	if err := s.Alloc.AdvanceCommit(ctx, m.ConversationID, m.Seq); err != nil {
		return errs.ErrUnavailable.WrapMsg("bump max seq", "err", err)
	}
	return nil
}

func (s *MongoStore) GetMessage(ctx context.Context, conversationID string, seqNum int64) (*model.Message, error) {
	f := msgFilter(conversationID)
	f[model.MsgFieldSeq] = seqNum
	var m model.Message
	err := s.MsgColl.FindOne(ctx, f).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seqNum)
	}
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("get message", "err", err)
	}
	return &m, nil
}

func (s *MongoStore) FindByDedupID(ctx context.Context, conversationID, senderID, dedupID string) (*model.Message, error) {
	f := msgFilter(conversationID)
	f[model.MsgFieldSenderID] = senderID
	f[model.MsgFieldDedupID] = dedupID
	var m model.Message
	err := s.MsgColl.FindOne(ctx, f).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("find by dedup id", "err", err)
	}
	return &m, nil
}

func (s *MongoStore) PageMessages(ctx context.Context, conversationID string, cur Cursor, limit int) (*Page, error) {
	if limit <= 0 {
		return nil, errs.ErrArgs.WrapMsg("limit must be positive", "limit", limit)
	}
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	f := msgFilter(conversationID)
	if !cur.IsZero() {
		if cur.BeforeSeq > 0 {
			f["$or"] = bson.A{
				bson.M{model.MsgFieldCreatedAt: bson.M{"$lt": cur.Before}},
				bson.M{model.MsgFieldCreatedAt: cur.Before,
					model.MsgFieldSeq: bson.M{"$lt": cur.BeforeSeq}},
			}
		} else {
			f[model.MsgFieldCreatedAt] = bson.M{"$lt": cur.Before}
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: model.MsgFieldCreatedAt, Value: -1}, {Key: model.MsgFieldSeq, Value: -1}}).
		SetLimit(int64(limit) + 1)
	c, err := s.MsgColl.Find(ctx, f, opts)
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("page messages", "err", err)
	}
	defer c.Close(ctx)

	page := &Page{}
	for c.Next(ctx) {
		var m model.Message
		if err := c.Decode(&m); err != nil {
			return nil, errs.ErrUnavailable.WrapMsg("decode message", "err", err)
		}
		if len(page.Messages) == limit {
			page.HasMore = true
			break
		}
		mm := m
		page.Messages = append(page.Messages, &mm)
	}
	if err := c.Err(); err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("page messages", "err", err)
	}
	if n := len(page.Messages); n > 0 {
		oldest := page.Messages[n-1]
		page.NextBefore = oldest.CreatedAt
		page.NextBeforeSeq = oldest.Seq
	}
	return page, nil
}

func (s *MongoStore) UpdateMessageText(ctx context.Context, conversationID string, seqNum int64, text string, at int64) error {
	f := msgFilter(conversationID)
	f[model.MsgFieldSeq] = seqNum
	res, err := s.MsgColl.UpdateOne(ctx, f, bson.M{
		"$set": bson.M{model.MsgFieldText: text},
		"$max": bson.M{model.MsgFieldUpdatedAt: at},
	})
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("update message text", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seqNum)
	}
	return nil
}

func (s *MongoStore) SoftDeleteMessage(ctx context.Context, conversationID string, seqNum int64) error {
	f := msgFilter(conversationID)
	f[model.MsgFieldSeq] = seqNum
	res, err := s.MsgColl.UpdateOne(ctx, f,
		bson.M{"$set": bson.M{model.MsgFieldDeleted: true}},
	)
	if err != nil {
		return errs.ErrUnavailable.WrapMsg("delete message", "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seqNum)
	}
	return nil
}

func (s *MongoStore) MaxSeq(ctx context.Context, conversationID string) (int64, error) {
	var sq model.ConversationSeq
	err := s.SeqColl.FindOne(ctx, bson.M{model.SeqFieldConversationID: conversationID}).Decode(&sq)
	if err == mongo.ErrNoDocuments {
		if _, err := s.GetConversation(ctx, conversationID); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err != nil {
		return 0, errs.ErrUnavailable.WrapMsg("max seq", "err", err)
	}
	return sq.MaxSeq, nil
}

func (s *MongoStore) GetReadState(ctx context.Context, userID, conversationID string) (*model.ReadState, error) {
	var r model.ReadState
	err := s.ReadColl.FindOne(ctx, bson.M{
		model.ReadFieldUserID:         userID,
		model.ReadFieldConversationID: conversationID,
	}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return &model.ReadState{UserID: userID, ConversationID: conversationID}, nil
	}
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("get read state", "err", err)
	}
	return &r, nil
}

func (s *MongoStore) AdvanceReadState(ctx context.Context, userID, conversationID string, uptoSeq, at int64) (int64, int64, error) {
	res := s.ReadColl.FindOneAndUpdate(ctx,
		bson.M{model.ReadFieldUserID: userID, model.ReadFieldConversationID: conversationID},
		bson.M{"$max": bson.M{model.ReadFieldLastReadSeq: uptoSeq,
			model.ReadFieldUpdatedAt: at}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	)
	var before model.ReadState
	err := res.Decode(&before)
	if err != nil && err != mongo.ErrNoDocuments {
		return 0, 0, errs.ErrUnavailable.WrapMsg("advance read state", "err", err)
	}
	prev := before.LastReadSeq
	curr := prev
	if uptoSeq > curr {
		curr = uptoSeq
	}
	return prev, curr, nil
}

func (s *MongoStore) CountFrom(ctx context.Context, conversationID string, afterSeq int64, excludeSender string) (int64, error) {
	f := msgFilter(conversationID)
	f[model.MsgFieldSeq] = bson.M{"$gt": afterSeq}
	f[model.MsgFieldSenderID] = bson.M{"$ne": excludeSender}
	n, err := s.MsgColl.CountDocuments(ctx, f)
	if err != nil {
		return 0, errs.ErrUnavailable.WrapMsg("count unread", "err", err)
	}
	return n, nil
}

func (s *MongoStore) SeqsFrom(ctx context.Context, conversationID string, fromSeq, uptoSeq int64, excludeSender string) ([]int64, error) {
	f := msgFilter(conversationID)
	f[model.MsgFieldSeq] = bson.M{"$gt": fromSeq, "$lte": uptoSeq}
	f[model.MsgFieldSenderID] = bson.M{"$ne": excludeSender}
	opts := options.Find().
		SetProjection(bson.M{model.MsgFieldSeq: 1}).
		SetSort(bson.M{model.MsgFieldSeq: 1})
	cur, err := s.MsgColl.Find(ctx, f, opts)
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("list unread seqs", "err", err)
	}
	defer cur.Close(ctx)
	var out []int64
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errs.ErrUnavailable.WrapMsg("decode seq", "err", err)
		}
		out = append(out, m.Seq)
	}
	return out, cur.Err()
}

var _ Store = (*MongoStore)(nil)
