package redis

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/pkg/consts"
	"context"
	"strconv"

	"github.com/goccy/go-json"
)

// EventBus 把领域事件发布到 Redis 总线。
// 服务层只依赖它，不直接接触任何连接注册表；网关在每个实例上
// 订阅 im:room:* / im:user:* 再向本地连接扇出。
type EventBus struct{}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// RoomEvent 发布会话级事件
func (s *EventBus) RoomEvent(ctx context.Context, roomID uint64, event string, data interface{}) error {
	payload, err := json.Marshal(&dto.WsEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return Publish(ctx, consts.IMRoomChannel+strconv.FormatUint(roomID, 10), payload)
}

// UserEvent 发布用户级事件（角标等），与具体会话订阅无关
func (s *EventBus) UserEvent(ctx context.Context, userID uint64, event string, data interface{}) error {
	payload, err := json.Marshal(&dto.WsEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return Publish(ctx, consts.IMUserChannel+strconv.FormatUint(userID, 10), payload)
}
