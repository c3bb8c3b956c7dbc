package service

import (
	"Haggle/internal/api/dto"
	"context"
)

// Broadcaster 领域事件出口。实现方（Redis 总线）负责把事件送达
// 所有实例上订阅了对应会话 / 用户频道的连接；服务层一律先落库再广播。
type Broadcaster interface {
	RoomEvent(ctx context.Context, roomID uint64, event string, data interface{}) error
	UserEvent(ctx context.Context, userID uint64, event string, data interface{}) error
}

// Notifier 通知协作方出口（Kafka notify topic），尽力投递
type Notifier interface {
	Notify(ctx context.Context, evt *dto.NotifyEvent)
}

// Participation 会话参与信息：buyer / seller，或巡查旁观
type Participation struct {
	Side      string
	Spectator bool
}
