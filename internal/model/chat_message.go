package model

import (
	"time"

	"gorm.io/gorm"
)

// 消息类型
const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeLocation = "location"
	MessageTypeSystem   = "system"
)

// 系统消息事件
const (
	SystemEventOfferAccepted = "offer_accepted"
	SystemEventOfferRejected = "offer_rejected"
)

// ChatMessage 消息明细表
// 自增主键 ID 即会话内的定序键：两条消息可能共享同一毫秒时间戳，
// 投递顺序一律以 ID 为准。
type ChatMessage struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID   uint64  `gorm:"not null;index:idx_room_msg" json:"roomId"`
	SenderID *uint64 `gorm:"index" json:"senderId,omitempty"` // NULL 表示系统消息

	MessageType string  `gorm:"type:varchar(16);not null;default:'text'" json:"messageType"`
	MessageText *string `gorm:"type:text" json:"messageText,omitempty"`

	// 图片消息的媒体引用（对象存储由外部协作方负责，这里只存引用）
	MediaURL          *string `gorm:"type:varchar(512)" json:"mediaUrl,omitempty"`
	MediaMimeType     *string `gorm:"type:varchar(64)" json:"mediaMimeType,omitempty"`
	MediaThumbnailURL *string `gorm:"type:varchar(512)" json:"mediaThumbnailUrl,omitempty"`
	MediaSize         *int64  `json:"mediaSize,omitempty"`
	MediaWidth        *int    `json:"mediaWidth,omitempty"`
	MediaHeight       *int    `json:"mediaHeight,omitempty"`

	// 位置消息
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// 回复引用，必须指向同一会话内更早的消息
	ReplyToMessageID *uint64 `gorm:"index" json:"replyToMessageId,omitempty"`

	SystemEventType *string `gorm:"type:varchar(32)" json:"systemEventType,omitempty"`

	IsRead   bool       `gorm:"not null;default:0;index:idx_room_msg" json:"isRead"`
	ReadAt   *time.Time `json:"readAt,omitempty"`
	EditedAt *time.Time `json:"editedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // 软删除，保留审计
}

func (ChatMessage) TableName() string { return "chat_messages" }

// IsSystem 系统消息没有发送者，创建即已读，不参与未读计数
func (m *ChatMessage) IsSystem() bool { return m.SenderID == nil }
