package repository

import (
	"Haggle/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// 报价创建事务内的两类失败，由 service 层翻译为业务错误
var (
	ErrParentNotPending   = errors.New("parent offer not pending")
	ErrProposerHasPending = errors.New("proposer already has a pending offer")
)

type ListingOfferRepo interface {
	Create(ctx context.Context, offer *model.ListingOffer) error
	GetByID(ctx context.Context, offerID uint64) (*model.ListingOffer, error)
	ListByRoom(ctx context.Context, roomID uint64) ([]*model.ListingOffer, error)

	Transition(ctx context.Context, offerID uint64, to string, updates map[string]interface{}) (bool, error)
	MarkViewed(ctx context.Context, offerID uint64) error
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type listingOfferRepoImpl struct {
	db *gorm.DB
}

func NewListingOfferRepo(db *gorm.DB) ListingOfferRepo {
	return &listingOfferRepoImpl{db: db}
}

// Create 创建报价。若带 parent_offer_id 则是还价：
// 父报价必须处于 pending 且属于对手方，在同一事务内条件更新为 countered。
// 同一会话内提案方至多一条未决报价由 uk_room_proposer_pending 唯一索引保证，
// 并发重复提交在插入时由数据库裁决，不依赖事务内的快照读。
func (s *listingOfferRepoImpl) Create(ctx context.Context, offer *model.ListingOffer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if offer.ParentOfferID != nil {
			res := tx.Model(&model.ListingOffer{}).
				Where("id = ? AND room_id = ? AND status = ? AND proposer_id <> ?",
					*offer.ParentOfferID, offer.RoomID, model.OfferStatusPending, offer.ProposerID).
				Updates(map[string]interface{}{
					"status":       model.OfferStatusCountered,
					"responded_at": time.Now(),
					"pending_key":  nil,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrParentNotPending
			}
		}

		offer.Status = model.OfferStatusPending
		pendingKey := uint8(1)
		offer.PendingKey = &pendingKey
		if err := tx.Create(offer).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrProposerHasPending
			}
			return err
		}
		return nil
	})
}

// GetByID 精确查询
func (s *listingOfferRepoImpl) GetByID(ctx context.Context, offerID uint64) (*model.ListingOffer, error) {
	var offer model.ListingOffer
	err := s.db.WithContext(ctx).First(&offer, offerID).Error
	return &offer, err
}

// ListByRoom 返回会话内的完整还价链，按创建顺序
func (s *listingOfferRepoImpl) ListByRoom(ctx context.Context, roomID uint64) ([]*model.ListingOffer, error) {
	var offers []*model.ListingOffer
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&offers).Error
	return offers, err
}

// Transition 报价状态 CAS：仅当仍为 pending 时迁移到目标状态。
// 并发响应 / 撤回 / 过期清扫之间按此线性化，先到者赢。
func (s *listingOfferRepoImpl) Transition(ctx context.Context, offerID uint64, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["pending_key"] = nil
	res := s.db.WithContext(ctx).Model(&model.ListingOffer{}).
		Where("id = ? AND status = ?", offerID, model.OfferStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// MarkViewed 首次查看时间，只写一次
func (s *listingOfferRepoImpl) MarkViewed(ctx context.Context, offerID uint64) error {
	return s.db.WithContext(ctx).Model(&model.ListingOffer{}).
		Where("id = ? AND viewed_at IS NULL", offerID).
		Update("viewed_at", time.Now()).Error
}

// ExpirePending 过期清扫：条件批量更新，已被响应的报价不受影响，
// 重复执行对同一条报价是空操作。
func (s *listingOfferRepoImpl) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.ListingOffer{}).
		Where("status = ? AND expires_at < ?", model.OfferStatusPending, now).
		Updates(map[string]interface{}{
			"status":        model.OfferStatusExpired,
			"auto_rejected": true,
			"pending_key":   nil,
		})
	return res.RowsAffected, res.Error
}
