package dto

import "time"

// CreateRoomReq 按房源发起（或获取）会话
type CreateRoomReq struct {
	ListingID uint64 `json:"listing_id" binding:"required"`
}

// ChatRoomDTO 会话列表项 / 详情响应
type ChatRoomDTO struct {
	ID                     uint64    `json:"id"`
	ListingID              uint64    `json:"listingId"`
	BuyerID                uint64    `json:"buyerId"`
	SellerID               uint64    `json:"sellerId"`
	IsActive               bool      `json:"isActive"`
	LastMessageAt          time.Time `json:"lastMessageAt"`
	UnreadCount            uint      `json:"unreadCount"` // 请求方视角的未读数
	IsImportant            bool      `json:"isImportant"` // 请求方视角的置顶标记
	BuyerSubscriptionTier  string    `json:"buyerSubscriptionTier"`
	SellerSubscriptionTier string    `json:"sellerSubscriptionTier"`
	BuyerRequestedContact  bool      `json:"buyerRequestedContact"`
	SellerSharedContact    bool      `json:"sellerSharedContact"`
	BlockedByBuyer         bool      `json:"blockedByBuyer"`
	BlockedBySeller        bool      `json:"blockedBySeller"`
}

// SendMessageReq 发送消息请求体。实时通道仅允许文本，
// 图片 / 位置消息走 REST 落库后再广播。
type SendMessageReq struct {
	RoomID           uint64   `json:"room_id"`
	ListingID        uint64   `json:"listing_id"` // room_id 为空时按房源惰性建会话
	MessageType      string   `json:"message_type" binding:"required,oneof=text image location"`
	MessageText      string   `json:"message_text"`
	MediaURL         string   `json:"media_url"`
	MediaMimeType    string   `json:"media_mime_type"`
	MediaThumbnail   string   `json:"media_thumbnail_url"`
	MediaSize        int64    `json:"media_size"`
	MediaWidth       int      `json:"media_width"`
	MediaHeight      int      `json:"media_height"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	ReplyToMessageID *uint64  `json:"reply_to_message_id"`
}

// ChatMessageDTO 消息明细响应
type ChatMessageDTO struct {
	ID                uint64     `json:"id"`
	RoomID            uint64     `json:"roomId"`
	SenderID          *uint64    `json:"senderId,omitempty"`
	MessageType       string     `json:"messageType"`
	MessageText       *string    `json:"messageText,omitempty"`
	MediaURL          *string    `json:"mediaUrl,omitempty"`
	MediaMimeType     *string    `json:"mediaMimeType,omitempty"`
	MediaThumbnailURL *string    `json:"mediaThumbnailUrl,omitempty"`
	MediaSize         *int64     `json:"mediaSize,omitempty"`
	MediaWidth        *int       `json:"mediaWidth,omitempty"`
	MediaHeight       *int       `json:"mediaHeight,omitempty"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	ReplyToMessageID  *uint64    `json:"replyToMessageId,omitempty"`
	SystemEventType   *string    `json:"systemEventType,omitempty"`
	IsRead            bool       `json:"isRead"`
	ReadAt            *time.Time `json:"readAt,omitempty"`
	EditedAt          *time.Time `json:"editedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// EditMessageReq 编辑文本消息
type EditMessageReq struct {
	MessageText string `json:"message_text" binding:"required"`
}

// SetImportantReq 置顶 / 取消置顶
type SetImportantReq struct {
	Important bool `json:"important"`
}

// BlockRoomReq 拉黑 / 取消拉黑
type BlockRoomReq struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

// ReportRoomReq 举报会话
type ReportRoomReq struct {
	Reason string `json:"reason" binding:"required"`
}

// UnreadCountDTO 角标未读总数
type UnreadCountDTO struct {
	Count int64 `json:"count"`
}
