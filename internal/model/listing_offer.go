package model

import "time"

// 报价状态机：pending -> accepted | rejected | withdrawn | expired | countered
// countered 对当前报价是终态，但会派生一条新的 pending 还价，
// 其 parent_offer_id 指向被还价的这一条。
const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusWithdrawn = "withdrawn"
	OfferStatusExpired   = "expired"
	OfferStatusCountered = "countered"
)

// ListingOffer 房源报价表
// 还价链通过 parent_offer_id 平铺存储，子报价的 ID 严格大于父报价，
// 链上遍历走显式查询而不是对象图。
type ListingOffer struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID     uint64 `gorm:"not null;index;uniqueIndex:uk_room_proposer_pending,priority:1" json:"roomId"`
	ListingID  uint64 `gorm:"not null;index" json:"listingId"`
	BuyerID    uint64 `gorm:"not null" json:"buyerId"`  // 创建时从会话复制
	SellerID   uint64 `gorm:"not null" json:"sellerId"` // 创建时从会话复制
	ProposerID uint64 `gorm:"not null;index;uniqueIndex:uk_room_proposer_pending,priority:2" json:"proposerId"`

	OfferedAmount      float64 `gorm:"type:decimal(14,2);not null" json:"offeredAmount"`
	ListingPriceAtTime float64 `gorm:"type:decimal(14,2);not null" json:"listingPriceAtTime"` // 报价时房源价格快照
	DiscountPercentage float64 `gorm:"type:decimal(5,2);not null" json:"discountPercentage"`  // 创建时计算，之后不变

	Notes         string  `gorm:"type:varchar(512)" json:"notes"`
	ParentOfferID *uint64 `gorm:"index" json:"parentOfferId,omitempty"`

	Status string `gorm:"type:varchar(16);not null;default:'pending';index:idx_status_expire" json:"status"`
	// PendingKey 仅在 pending 期间为 1，离开 pending 时置 NULL。
	// 唯一索引 (room_id, proposer_id, pending_key) 在数据库层保证
	// 同一会话内每个提案方至多一条未决报价，并发插入按此裁决。
	PendingKey      *uint8     `gorm:"uniqueIndex:uk_room_proposer_pending,priority:3" json:"-"`
	ExpiresAt       time.Time  `gorm:"not null;index:idx_status_expire" json:"expiresAt"`
	ViewedAt        *time.Time `json:"viewedAt,omitempty"`
	RespondedAt     *time.Time `json:"respondedAt,omitempty"`
	RejectionReason string     `gorm:"type:varchar(255)" json:"rejectionReason"`
	AutoRejected    bool       `gorm:"not null;default:0" json:"autoRejected"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ListingOffer) TableName() string { return "listing_offers" }

// ResponderID 返回报价的被动方（可响应方）
func (o *ListingOffer) ResponderID() uint64 {
	if o.ProposerID == o.BuyerID {
		return o.SellerID
	}
	return o.BuyerID
}
