package seq

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
)

// DAO leases seq segments out of the seq_conversation collection.
type DAO struct{ DB *mongo.Database }

func (d *DAO) coll() *mongo.Collection {
	s := model.ConversationSeq{}
	return d.DB.Collection(s.GetTableName())
}

// AllocSegment atomically advances issued_seq by block and returns the
// leased range [start, end].
func (d *DAO) AllocSegment(ctx context.Context, conversationID string, block int64) (start, end int64, err error) {
	if block <= 0 {
		block = 256
	}
	now := time.Now()

	filter := bson.M{model.SeqFieldConversationID: conversationID}
	update := bson.M{
		"$inc": bson.M{model.SeqFieldIssuedSeq: block},
		"$setOnInsert": bson.M{
			model.SeqFieldMaxSeq:     int64(0),
			model.SeqFieldMinSeq:     int64(0),
			model.SeqFieldCreateTime: now,
		},
		"$set": bson.M{model.SeqFieldUpdateTime: now},
	}

	var before struct {
		IssuedSeq int64 `bson:"issued_seq"`
	}
	err = d.coll().FindOneAndUpdate(
		ctx, filter, update,
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil && err != mongo.ErrNoDocuments {
		return 0, 0, err
	}
	old := before.IssuedSeq // zero when the doc did not exist yet
	return old + 1, old + block, nil
}

// AdvanceCommit lifts the readable waterline: max_seq = max(max_seq, toSeq).
func (d *DAO) AdvanceCommit(ctx context.Context, conversationID string, toSeq int64) error {
	_, err := d.coll().UpdateOne(ctx,
		bson.M{model.SeqFieldConversationID: conversationID},
		bson.M{"$max": bson.M{model.SeqFieldMaxSeq: toSeq},
			"$set": bson.M{model.SeqFieldUpdateTime: time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}
