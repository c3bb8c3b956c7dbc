package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 审计事件类型
const (
	ModerationEventBlock   = "block"
	ModerationEventUnblock = "unblock"
	ModerationEventReport  = "report"
)

// ModerationEvent 拉黑 / 举报审计明细，供风控协作方消费。
// 会话表上只保留标记位和最近一次元数据，完整轨迹落在这里。
type ModerationEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID    uint64             `bson:"room_id" json:"roomId"`
	ListingID uint64             `bson:"listing_id" json:"listingId"`
	ActorID   uint64             `bson:"actor_id" json:"actorId"` // 发起拉黑/举报的用户
	TargetID  uint64             `bson:"target_id" json:"targetId"`
	Side      string             `bson:"side" json:"side"` // buyer / seller
	EventType string             `bson:"event_type" json:"eventType"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
