package dto

import "time"

// 客户端入站事件
const (
	WsEventJoinRoom    = "join_room"
	WsEventLeaveRoom   = "leave_room"
	WsEventSendMessage = "send_message"
	WsEventTyping      = "typing"
	WsEventStopTyping  = "stop_typing"
	WsEventMarkRead    = "mark_read"
)

// 服务端出站事件
const (
	WsEventJoinedRoom      = "joined_room"
	WsEventNewMessage      = "new_message"
	WsEventUserTyping      = "user_typing"
	WsEventUserStopTyping  = "user_stop_typing"
	WsEventMessageRead     = "message_read"
	WsEventMessageDeleted  = "message_deleted"
	WsEventRoomInactive    = "room_inactive"
	WsEventOfferReceived   = "offer_received"
	WsEventOfferUpdated    = "offer_updated"
	WsEventChatCountUpdate = "chat_count_update"
	WsEventError           = "error"
)

// WsEnvelope 实时通道统一信封
type WsEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// WsRoomReq join_room / leave_room / typing / mark_read 的入参
type WsRoomReq struct {
	RoomID uint64 `json:"room_id"`
}

// WsSendMessageReq 实时通道发消息入参（仅文本）
type WsSendMessageReq struct {
	RoomID           uint64  `json:"room_id"`
	MessageText      string  `json:"message_text"`
	ReplyToMessageID *uint64 `json:"reply_to_message_id"`
}

// WsJoinedRoomDTO 入房确认
type WsJoinedRoomDTO struct {
	RoomID        uint64 `json:"roomId"`
	UserType      string `json:"userType,omitempty"`
	SpectatorMode bool   `json:"spectatorMode,omitempty"`
}

// WsTypingDTO 输入状态广播
type WsTypingDTO struct {
	RoomID uint64 `json:"roomId"`
	UserID uint64 `json:"userId"`
}

// WsMessageReadDTO 已读回执广播
type WsMessageReadDTO struct {
	RoomID   uint64 `json:"roomId"`
	ReaderID uint64 `json:"readerId"`
}

// WsMessageDeletedDTO 消息删除广播
type WsMessageDeletedDTO struct {
	RoomID    uint64 `json:"roomId"`
	MessageID uint64 `json:"messageId"`
}

// WsRoomInactiveDTO 会话关闭广播
type WsRoomInactiveDTO struct {
	RoomID uint64 `json:"roomId"`
}

// ChatCountUpdateDTO 用户级角标推送，独立于任何具体会话订阅
type ChatCountUpdateDTO struct {
	Count     int64     `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NotifyEvent 投递给通知协作方（Kafka notify topic）的事件
type NotifyEvent struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	RoomID     uint64    `json:"room_id,omitempty"`
	ListingID  uint64    `json:"listing_id,omitempty"`
	OfferID    uint64    `json:"offer_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// 通知事件类型
const (
	NotifyOfferReceived = "offer_received"
	NotifyOfferAccepted = "offer_accepted"
	NotifyOfferRejected = "offer_rejected"
	NotifyRoomReported  = "room_reported"
	NotifyRoomBlocked   = "room_blocked"
)
