package repository

import (
	"Haggle/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type ChatMessageRepo interface {
	Create(ctx context.Context, msg *model.ChatMessage, recipientSide string) error
	GetByID(ctx context.Context, msgID uint64) (*model.ChatMessage, error)
	GetInRoom(ctx context.Context, roomID, msgID uint64) (*model.ChatMessage, error)
	ListByRoom(ctx context.Context, roomID uint64, cursor uint64, limit int) ([]*model.ChatMessage, error)

	MarkRead(ctx context.Context, roomID, readerID uint64, readerSide string) (int64, error)
	SoftDelete(ctx context.Context, msgID uint64, recipientSide string) error
	UpdateText(ctx context.Context, msgID uint64, text string) error
}

type chatMessageRepoImpl struct {
	db *gorm.DB
}

func NewChatMessageRepo(db *gorm.DB) ChatMessageRepo {
	return &chatMessageRepoImpl{db: db}
}

// Create 落库一条消息：插入明细、刷新会话 last_message_at，
// 并在同一事务内原子递增接收方未读计数。系统消息生而已读，不计数。
func (s *chatMessageRepoImpl) Create(ctx context.Context, msg *model.ChatMessage, recipientSide string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if msg.IsSystem() {
			now := time.Now()
			msg.IsRead = true
			msg.ReadAt = &now
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"last_message_at": time.Now()}
		if !msg.IsSystem() {
			col := unreadColumn(recipientSide)
			updates[col] = gorm.Expr(col + " + 1")
		}
		return tx.Model(&model.ChatRoom{}).
			Where("id = ?", msg.RoomID).Updates(updates).Error
	})
}

// GetByID 精确查询，包含已软删除的消息（审计用）
func (s *chatMessageRepoImpl) GetByID(ctx context.Context, msgID uint64) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := s.db.WithContext(ctx).Unscoped().First(&msg, msgID).Error
	return &msg, err
}

// GetInRoom 校验回复引用：消息必须存在于同一会话且未被删除
func (s *chatMessageRepoImpl) GetInRoom(ctx context.Context, roomID, msgID uint64) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("id = ? AND room_id = ?", msgID, roomID).
		First(&msg).Error
	return &msg, err
}

// ListByRoom 按 ID 严格递增返回消息，游标为上一页最后一条的 ID。
// 并发插入不会造成漏页或重页，软删除的消息不参与渲染。
func (s *chatMessageRepoImpl) ListByRoom(ctx context.Context, roomID uint64, cursor uint64, limit int) ([]*model.ChatMessage, error) {
	var msgs []*model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND id > ?", roomID, cursor).
		Order("id ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// MarkRead 单条 UPDATE 把发给读者的未读消息全部置已读，同时清零读者未读计数。
// 读标记取出后才落库的新消息不受影响，保持未读，可与 Create 并发执行。
func (s *chatMessageRepoImpl) MarkRead(ctx context.Context, roomID, readerID uint64, readerSide string) (int64, error) {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ChatMessage{}).
			Where("room_id = ? AND sender_id IS NOT NULL AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		return tx.Model(&model.ChatRoom{}).
			Where("id = ?", roomID).Update(unreadColumn(readerSide), 0).Error
	})
	return affected, err
}

// SoftDelete 打墓碑而不物理删除；若消息仍未读，回补接收方未读计数（下限 0）。
// 是否未读以事务内读为准，避免与 MarkRead 竞争时重复扣减。
func (s *chatMessageRepoImpl) SoftDelete(ctx context.Context, msgID uint64, recipientSide string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg model.ChatMessage
		if err := tx.First(&msg, msgID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.ChatMessage{}, msg.ID).Error; err != nil {
			return err
		}

		if !msg.IsRead && !msg.IsSystem() {
			col := unreadColumn(recipientSide)
			return tx.Model(&model.ChatRoom{}).
				Where("id = ?", msg.RoomID).
				Update(col, gorm.Expr("CASE WHEN "+col+" > 0 THEN "+col+" - 1 ELSE 0 END")).Error
		}
		return nil
	})
}

// UpdateText 编辑文本消息内容并记录编辑时间
func (s *chatMessageRepoImpl) UpdateText(ctx context.Context, msgID uint64, text string) error {
	return s.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("id = ?", msgID).
		Updates(map[string]interface{}{"message_text": text, "edited_at": time.Now()}).Error
}
