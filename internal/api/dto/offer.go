package dto

import "time"

// ProposeOfferReq 发起报价 / 还价。room_id 为空时按房源惰性建会话；
// 还价时携带 parent_offer_id 指向被还的那条报价。
type ProposeOfferReq struct {
	RoomID             uint64  `json:"room_id"`
	ListingID          uint64  `json:"listing_id"`
	OfferedAmount      float64 `json:"offered_amount" binding:"required,gt=0"`
	ListingPriceAtTime float64 `json:"listing_price_at_time" binding:"required,gt=0"`
	Notes              string  `json:"notes"`
	ParentOfferID      *uint64 `json:"parent_offer_id"`
}

// RespondOfferReq 响应报价
type RespondOfferReq struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
	Reason   string `json:"reason"`
}

// ListingOfferDTO 报价完整响应，折扣为创建时计算的快照
type ListingOfferDTO struct {
	ID                 uint64     `json:"id"`
	RoomID             uint64     `json:"roomId"`
	ListingID          uint64     `json:"listingId"`
	BuyerID            uint64     `json:"buyerId"`
	SellerID           uint64     `json:"sellerId"`
	ProposerID         uint64     `json:"proposerId"`
	OfferedAmount      float64    `json:"offeredAmount"`
	ListingPriceAtTime float64    `json:"listingPriceAtTime"`
	DiscountPercentage float64    `json:"discountPercentage"`
	Notes              string     `json:"notes"`
	ParentOfferID      *uint64    `json:"parentOfferId,omitempty"`
	Status             string     `json:"status"`
	ExpiresAt          time.Time  `json:"expiresAt"`
	ViewedAt           *time.Time `json:"viewedAt,omitempty"`
	RespondedAt        *time.Time `json:"respondedAt,omitempty"`
	RejectionReason    string     `json:"rejectionReason,omitempty"`
	AutoRejected       bool       `json:"autoRejected"`
	CreatedAt          time.Time  `json:"createdAt"`
}
