package repository

import (
	"Haggle/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRoomRepo interface {
	GetOrCreate(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error)
	GetByID(ctx context.Context, roomID uint64) (*model.ChatRoom, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.ChatRoom, error)

	SetBlocked(ctx context.Context, roomID uint64, side string, blocked bool, metadata *string) error
	SetReported(ctx context.Context, roomID uint64, side string, metadata *string) error
	SetImportant(ctx context.Context, roomID uint64, side string, important bool) error
	SetContactFlag(ctx context.Context, roomID uint64, side string) error

	DeactivateByListingIDs(ctx context.Context, listingIDs []uint64) ([]uint64, error)
	TotalUnread(ctx context.Context, userID uint64) (int64, error)
	ZeroUnread(ctx context.Context, roomID uint64, side string) error
}

type chatRoomRepoImpl struct {
	db *gorm.DB
}

func NewChatRoomRepo(db *gorm.DB) ChatRoomRepo {
	return &chatRoomRepoImpl{db: db}
}

// unreadColumn 返回指定一方的未读计数列名
func unreadColumn(side string) string {
	if side == model.RoomSideBuyer {
		return "unread_count_buyer"
	}
	return "unread_count_seller"
}

// GetOrCreate 按 (listing_id, buyer_id) 获取或惰性创建会话。
// 并发创建撞唯一索引时回读既有记录。
func (s *chatRoomRepoImpl) GetOrCreate(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error) {
	var existing model.ChatRoom
	err := s.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ?", room.ListingID, room.BuyerID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room.IsActive = true
	room.LastMessageAt = time.Now()
	if err = s.db.WithContext(ctx).Create(room).Error; err != nil {
		ferr := s.db.WithContext(ctx).
			Where("listing_id = ? AND buyer_id = ?", room.ListingID, room.BuyerID).
			First(&existing).Error
		if ferr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return room, nil
}

// GetByID 根据会话 ID 获取会话
func (s *chatRoomRepoImpl) GetByID(ctx context.Context, roomID uint64) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	return &room, err
}

// ListByUser 用户会话列表：己方置顶优先，其余按最新消息时间倒序
func (s *chatRoomRepoImpl) ListByUser(ctx context.Context, userID uint64) ([]*model.ChatRoom, error) {
	var rooms []*model.ChatRoom
	err := s.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN buyer_id = ? THEN is_important_buyer ELSE is_important_seller END DESC, last_message_at DESC",
			Vars:               []interface{}{userID},
			WithoutParentheses: true,
		}}).
		Find(&rooms).Error
	return rooms, err
}

// SetBlocked 按方向设置拉黑标记，天然幂等
func (s *chatRoomRepoImpl) SetBlocked(ctx context.Context, roomID uint64, side string, blocked bool, metadata *string) error {
	col := "blocked_by_buyer"
	if side == model.RoomSideSeller {
		col = "blocked_by_seller"
	}
	updates := map[string]interface{}{col: blocked}
	if metadata != nil {
		updates["block_metadata"] = *metadata
	}
	return s.db.WithContext(ctx).Model(&model.ChatRoom{}).
		Where("id = ?", roomID).Updates(updates).Error
}

// SetReported 记录举报标记，与拉黑互相独立，本身不限制会话
func (s *chatRoomRepoImpl) SetReported(ctx context.Context, roomID uint64, side string, metadata *string) error {
	col := "reported_by_buyer"
	if side == model.RoomSideSeller {
		col = "reported_by_seller"
	}
	updates := map[string]interface{}{col: true}
	if metadata != nil {
		updates["report_metadata"] = *metadata
	}
	return s.db.WithContext(ctx).Model(&model.ChatRoom{}).
		Where("id = ?", roomID).Updates(updates).Error
}

// SetImportant 按方向设置置顶标记
func (s *chatRoomRepoImpl) SetImportant(ctx context.Context, roomID uint64, side string, important bool) error {
	col := "is_important_buyer"
	if side == model.RoomSideSeller {
		col = "is_important_seller"
	}
	return s.db.WithContext(ctx).Model(&model.ChatRoom{}).
		Where("id = ?", roomID).Update(col, important).Error
}

// SetContactFlag 买方发起联系方式请求 / 卖方确认共享
func (s *chatRoomRepoImpl) SetContactFlag(ctx context.Context, roomID uint64, side string) error {
	col := "buyer_requested_contact"
	if side == model.RoomSideSeller {
		col = "seller_shared_contact"
	}
	return s.db.WithContext(ctx).Model(&model.ChatRoom{}).
		Where("id = ?", roomID).Update(col, true).Error
}

// DeactivateByListingIDs 批量关闭失效房源对应的会话，返回本次实际关闭的会话 ID。
// 已关闭的会话不再计入，重复执行是空操作。
func (s *chatRoomRepoImpl) DeactivateByListingIDs(ctx context.Context, listingIDs []uint64) ([]uint64, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ChatRoom{}).
			Where("listing_id IN ? AND is_active = ?", listingIDs, true).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&model.ChatRoom{}).
			Where("id IN ?", ids).
			Update("is_active", false).Error
	})
	return ids, err
}

// TotalUnread 聚合用户在所有会话中己方的未读总数，驱动角标推送
func (s *chatRoomRepoImpl) TotalUnread(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.ChatRoom{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Select("COALESCE(SUM(CASE WHEN buyer_id = ? THEN unread_count_buyer ELSE unread_count_seller END), 0)", userID).
		Scan(&total).Error
	return total, err
}

// ZeroUnread 清零指定一方的未读计数
func (s *chatRoomRepoImpl) ZeroUnread(ctx context.Context, roomID uint64, side string) error {
	return s.db.WithContext(ctx).Model(&model.ChatRoom{}).
		Where("id = ?", roomID).Update(unreadColumn(side), 0).Error
}
