package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ModerationEventRepo interface {
	SaveEvent(ctx context.Context, evt *ModerationEvent) error
	ListByRoom(ctx context.Context, roomID uint64, limit int64) ([]*ModerationEvent, error)
}

type moderationEventRepoImpl struct {
	col *mongo.Collection
}

func NewModerationEventRepo(db *mongo.Database) ModerationEventRepo {
	return &moderationEventRepoImpl{
		col: db.Collection("moderation_event"),
	}
}

// SaveEvent 追加一条审计事件
func (s *moderationEventRepoImpl) SaveEvent(ctx context.Context, evt *ModerationEvent) error {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	_, err := s.col.InsertOne(ctx, evt)
	return err
}

// ListByRoom 按会话拉取审计轨迹，最新在前
func (s *moderationEventRepoImpl) ListByRoom(ctx context.Context, roomID uint64, limit int64) ([]*ModerationEvent, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, bson.M{"room_id": roomID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var events []*ModerationEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
