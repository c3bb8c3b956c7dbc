package ws

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/model"
	"Haggle/internal/service"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // 必须小于 pongWait
	maxMessageSize = 4096
)

// inboundEnvelope 入站信封，Data 延迟解码
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client 单条 websocket 连接。实时通道只做轻量操作：
// 入退房、文本消息、输入状态、已读。图片 / 位置 / 报价走 REST。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID   uint64
	userTier string
	roles    []string
	rooms    map[uint64]bool // 本连接已加入的会话，值为该会话内是否旁观

	chatService service.ChatService

	sendMu sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn,
	userID uint64, userTier string, roles []string, chatService service.ChatService) *Client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      userID,
		userTier:    userTier,
		roles:       roles,
		rooms:       make(map[uint64]bool),
		chatService: chatService,
		ctx:         clientCtx,
		cancel:      cancel,
	}
}

// trySend 非阻塞投递，缓冲打满说明连接失速，直接关闭出口。
// 出口关闭后的后续投递静默丢弃。
func (c *Client) trySend(payload []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.closed = true
		close(c.send)
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply 只发给当前连接，不走总线
func (c *Client) reply(event string, data interface{}) {
	payload, err := json.Marshal(&dto.WsEnvelope{Event: event, Data: data})
	if err != nil {
		log.ErrorContext(c.ctx, "出站信封编码失败", "event", event, "err", err)
		return
	}
	c.trySend(payload)
}

func (c *Client) replyError(err error) {
	c.reply(dto.WsEventError, map[string]string{"message": err.Error()})
}

// ReadPump 读循环：心跳维护与入站事件分发。退出即注销连接。
func (c *Client) ReadPump() {
	defer func() {
		c.cancel()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WarnContext(c.ctx, "websocket异常断开", "userID", c.userID, "err", err)
			}
			return
		}

		var env inboundEnvelope
		if err = json.Unmarshal(raw, &env); err != nil {
			c.replyError(service.ErrParamInvalid)
			continue
		}
		c.dispatch(&env)
	}
}

// dispatch 入站事件路由，每个事件独立超时
func (c *Client) dispatch(env *inboundEnvelope) {
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()

	switch env.Event {
	case dto.WsEventJoinRoom:
		c.onJoinRoom(ctx, env.Data)
	case dto.WsEventLeaveRoom:
		c.onLeaveRoom(env.Data)
	case dto.WsEventSendMessage:
		c.onSendMessage(ctx, env.Data)
	case dto.WsEventTyping:
		c.onTyping(ctx, env.Data, true)
	case dto.WsEventStopTyping:
		c.onTyping(ctx, env.Data, false)
	case dto.WsEventMarkRead:
		c.onMarkRead(ctx, env.Data)
	default:
		c.replyError(service.ErrParamInvalid)
	}
}

// onJoinRoom 参与校验后加入会话订阅。巡查角色以旁观模式进入。
func (c *Client) onJoinRoom(ctx context.Context, data json.RawMessage) {
	var req dto.WsRoomReq
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == 0 {
		c.replyError(service.ErrParamInvalid)
		return
	}

	p, err := c.chatService.GetParticipation(ctx, req.RoomID, c.userID, c.roles)
	if err != nil {
		c.replyError(err)
		return
	}
	c.hub.JoinRoom(c, req.RoomID, p.Spectator)
	c.reply(dto.WsEventJoinedRoom, &dto.WsJoinedRoomDTO{
		RoomID:        req.RoomID,
		UserType:      p.Side,
		SpectatorMode: p.Spectator,
	})
}

func (c *Client) onLeaveRoom(data json.RawMessage) {
	var req dto.WsRoomReq
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == 0 {
		c.replyError(service.ErrParamInvalid)
		return
	}
	c.hub.LeaveRoom(c, req.RoomID)
}

// spectatorIn 本连接在该会话内是否处于旁观模式。
// 旁观按会话记录，巡查角色仍可在自己真实参与的会话里正常收发。
func (c *Client) spectatorIn(roomID uint64) bool {
	return c.rooms[roomID]
}

// onSendMessage 实时通道仅允许文本消息，旁观会话只读
func (c *Client) onSendMessage(ctx context.Context, data json.RawMessage) {
	var req dto.WsSendMessageReq
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == 0 || req.MessageText == "" {
		c.replyError(service.ErrParamInvalid)
		return
	}
	if c.spectatorIn(req.RoomID) {
		c.replyError(service.ErrSpectatorReadOnly)
		return
	}

	if _, err := c.chatService.SendMessage(ctx, c.userID, c.userTier, &dto.SendMessageReq{
		RoomID:           req.RoomID,
		MessageType:      model.MessageTypeText,
		MessageText:      req.MessageText,
		ReplyToMessageID: req.ReplyToMessageID,
	}); err != nil {
		c.replyError(err)
	}
}

func (c *Client) onTyping(ctx context.Context, data json.RawMessage, typing bool) {
	var req dto.WsRoomReq
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == 0 {
		return
	}
	if c.spectatorIn(req.RoomID) {
		c.replyError(service.ErrSpectatorReadOnly)
		return
	}
	if err := c.chatService.PublishTyping(ctx, req.RoomID, c.userID, typing); err != nil {
		log.WarnContext(ctx, "输入状态透传失败", "roomID", req.RoomID, "err", err)
	}
}

func (c *Client) onMarkRead(ctx context.Context, data json.RawMessage) {
	var req dto.WsRoomReq
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == 0 {
		c.replyError(service.ErrParamInvalid)
		return
	}
	if c.spectatorIn(req.RoomID) {
		c.replyError(service.ErrSpectatorReadOnly)
		return
	}
	if err := c.chatService.MarkRead(ctx, req.RoomID, c.userID); err != nil {
		c.replyError(err)
	}
}

// WritePump 写循环：串行化写出与心跳
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
