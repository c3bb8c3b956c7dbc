package model

import "time"

// ChatRoom 会话主表：一个 (listing, buyer) 对至多一条记录
type ChatRoom struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID uint64 `gorm:"not null;uniqueIndex:idx_listing_buyer;index" json:"listingId"`
	BuyerID   uint64 `gorm:"not null;uniqueIndex:idx_listing_buyer;index" json:"buyerId"`
	SellerID  uint64 `gorm:"not null;index" json:"sellerId"` // 创建时从房源所有者快照

	IsActive      bool      `gorm:"not null;default:1;index" json:"isActive"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`

	// 双边未读计数，与消息写入事务内同步维护
	UnreadCountBuyer  uint `gorm:"not null;default:0" json:"unreadCountBuyer"`
	UnreadCountSeller uint `gorm:"not null;default:0" json:"unreadCountSeller"`

	// 置顶标记
	IsImportantBuyer  bool `gorm:"not null;default:0" json:"isImportantBuyer"`
	IsImportantSeller bool `gorm:"not null;default:0" json:"isImportantSeller"`

	// 订阅等级快照，仅用于展示排序
	BuyerSubscriptionTier  string `gorm:"type:varchar(32)" json:"buyerSubscriptionTier"`
	SellerSubscriptionTier string `gorm:"type:varchar(32)" json:"sellerSubscriptionTier"`

	// 联系方式交换标记
	BuyerRequestedContact bool `gorm:"not null;default:0" json:"buyerRequestedContact"`
	SellerSharedContact   bool `gorm:"not null;default:0" json:"sellerSharedContact"`

	// 拉黑 / 举报
	BlockedByBuyer   bool    `gorm:"not null;default:0" json:"blockedByBuyer"`
	BlockedBySeller  bool    `gorm:"not null;default:0" json:"blockedBySeller"`
	BlockMetadata    *string `gorm:"type:varchar(512)" json:"blockMetadata,omitempty"`
	ReportedByBuyer  bool    `gorm:"not null;default:0" json:"reportedByBuyer"`
	ReportedBySeller bool    `gorm:"not null;default:0" json:"reportedBySeller"`
	ReportMetadata   *string `gorm:"type:varchar(512)" json:"reportMetadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ChatRoom) TableName() string { return "chat_rooms" }

// 会话参与方角色
const (
	RoomSideBuyer  = "buyer"
	RoomSideSeller = "seller"
)

// SideOf 返回用户在会话中的角色，非参与者返回空串
func (r *ChatRoom) SideOf(userID uint64) string {
	switch userID {
	case r.BuyerID:
		return RoomSideBuyer
	case r.SellerID:
		return RoomSideSeller
	default:
		return ""
	}
}

// PeerID 返回会话中对手方的用户 ID
func (r *ChatRoom) PeerID(userID uint64) uint64 {
	if userID == r.BuyerID {
		return r.SellerID
	}
	return r.BuyerID
}

// BlockedAgainst 检查指定一方是否被对方拉黑
func (r *ChatRoom) BlockedAgainst(side string) bool {
	if side == RoomSideBuyer {
		return r.BlockedBySeller
	}
	return r.BlockedByBuyer
}
