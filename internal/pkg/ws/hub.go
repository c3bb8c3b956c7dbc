package ws

import (
	"Haggle/internal/pkg/consts"
	"Haggle/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"sync"
)

// Hub 维护本实例上的活跃连接：按会话与按用户两套注册表。
// 事件不在进程内直达——服务层发布到 Redis 总线，Run 订阅后
// 向本地连接扇出，多实例部署下各实例各自扇出自己的连接。
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint64]map[*Client]bool
	users map[uint64]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uint64]map[*Client]bool),
		users: make(map[uint64]map[*Client]bool),
	}
}

// Register 连接建立后按用户注册，用于接收用户级事件（角标等）
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]bool)
	}
	h.users[c.userID][c] = true
}

// Unregister 连接断开时移除全部订阅
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[c.userID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.users, c.userID)
		}
	}
	for roomID := range c.rooms {
		h.leaveRoomLocked(c, roomID)
	}
	c.closeSend()
}

// JoinRoom 把连接加入会话订阅并记录该会话内的旁观模式，
// 参与校验由调用方完成
func (h *Hub) JoinRoom(c *Client, roomID uint64, spectator bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	c.rooms[roomID] = spectator
}

// LeaveRoom 退出会话订阅
func (h *Hub) LeaveRoom(c *Client, roomID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c, roomID)
}

func (h *Hub) leaveRoomLocked(c *Client, roomID uint64) {
	delete(c.rooms, roomID)
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// DispatchRoom 向本地订阅了该会话的连接扇出。
// 发送缓冲打满的连接视为失速，直接断开。
func (h *Hub) DispatchRoom(roomID uint64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.trySend(payload)
	}
}

// DispatchUser 向该用户的全部本地连接扇出
func (h *Hub) DispatchUser(userID uint64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.trySend(payload)
	}
}

// Run 订阅 Redis 总线并泵入本地扇出，阻塞直到 ctx 取消
func (h *Hub) Run(ctx context.Context) error {
	sub := redis.PSubscribe(ctx, consts.IMRoomChannelGlob, consts.IMUserChannelGlob)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	log.Info("实时总线订阅已建立")

	for {
		select {
		case <-ctx.Done():
			log.Info("实时总线订阅退出")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.route(msg.Channel, []byte(msg.Payload))
		}
	}
}

// route 按频道前缀路由：im:room:{id} 进会话扇出，im:user:{id} 进用户扇出
func (h *Hub) route(channel string, payload []byte) {
	switch {
	case strings.HasPrefix(channel, consts.IMRoomChannel):
		id, err := strconv.ParseUint(strings.TrimPrefix(channel, consts.IMRoomChannel), 10, 64)
		if err != nil {
			log.Warn("非法会话频道", "channel", channel)
			return
		}
		h.DispatchRoom(id, payload)
	case strings.HasPrefix(channel, consts.IMUserChannel):
		id, err := strconv.ParseUint(strings.TrimPrefix(channel, consts.IMUserChannel), 10, 64)
		if err != nil {
			log.Warn("非法用户频道", "channel", channel)
			return
		}
		h.DispatchUser(id, payload)
	}
}
