package service

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/pkg/consts"
	"Haggle/internal/pkg/mongo"
	"Haggle/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// ModerationService 拉黑与举报。会话表只落标记位，
// 完整事件轨迹追加到审计库供风控侧消费。
type ModerationService interface {
	SetBlocked(ctx context.Context, roomID, userID uint64, blocked bool, reason string) error
	Report(ctx context.Context, roomID, userID uint64, reason string) error
	ListEvents(ctx context.Context, roomID uint64, roles []string) ([]*mongo.ModerationEvent, error)
}

type moderationServiceImpl struct {
	roomRepo  repository.ChatRoomRepo
	auditRepo mongo.ModerationEventRepo
	notifier  Notifier
}

func NewModerationService(roomRepo repository.ChatRoomRepo, auditRepo mongo.ModerationEventRepo, notifier Notifier) ModerationService {
	return &moderationServiceImpl{
		roomRepo:  roomRepo,
		auditRepo: auditRepo,
		notifier:  notifier,
	}
}

// SetBlocked 拉黑 / 取消拉黑对方。只影响被拉黑一方的发送，历史消息依旧可读。
func (s *moderationServiceImpl) SetBlocked(ctx context.Context, roomID, userID uint64, blocked bool, reason string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return mapNotFound(err, ErrRoomNotFound)
	}
	side := room.SideOf(userID)
	if side == "" {
		return UnauthorizedError
	}

	var metadata *string
	if reason != "" {
		metadata = &reason
	}
	if err = s.roomRepo.SetBlocked(ctx, roomID, side, blocked, metadata); err != nil {
		return err
	}

	eventType := mongo.ModerationEventBlock
	if !blocked {
		eventType = mongo.ModerationEventUnblock
	}
	s.saveAudit(ctx, &mongo.ModerationEvent{
		RoomID:    roomID,
		ListingID: room.ListingID,
		ActorID:   userID,
		TargetID:  room.PeerID(userID),
		Side:      side,
		EventType: eventType,
		Reason:    reason,
	})
	if blocked {
		s.notifier.Notify(ctx, &dto.NotifyEvent{
			Type:       dto.NotifyRoomBlocked,
			UserID:     room.PeerID(userID),
			RoomID:     roomID,
			ListingID:  room.ListingID,
			OccurredAt: time.Now(),
		})
	}
	return nil
}

// Report 举报会话。举报不限制会话本身，但触发风控侧通知。
func (s *moderationServiceImpl) Report(ctx context.Context, roomID, userID uint64, reason string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return mapNotFound(err, ErrRoomNotFound)
	}
	side := room.SideOf(userID)
	if side == "" {
		return UnauthorizedError
	}

	if err = s.roomRepo.SetReported(ctx, roomID, side, &reason); err != nil {
		return err
	}

	s.saveAudit(ctx, &mongo.ModerationEvent{
		RoomID:    roomID,
		ListingID: room.ListingID,
		ActorID:   userID,
		TargetID:  room.PeerID(userID),
		Side:      side,
		EventType: mongo.ModerationEventReport,
		Reason:    reason,
	})
	s.notifier.Notify(ctx, &dto.NotifyEvent{
		Type:       dto.NotifyRoomReported,
		UserID:     room.PeerID(userID),
		RoomID:     roomID,
		ListingID:  room.ListingID,
		OccurredAt: time.Now(),
	})
	return nil
}

// ListEvents 审计轨迹查询，仅平台巡查角色可见
func (s *moderationServiceImpl) ListEvents(ctx context.Context, roomID uint64, roles []string) ([]*mongo.ModerationEvent, error) {
	if !hasRole(roles, consts.RoleModerator) {
		return nil, UnauthorizedError
	}
	return s.auditRepo.ListByRoom(ctx, roomID, 100)
}

// saveAudit 审计失败不阻断主流程，只记日志
func (s *moderationServiceImpl) saveAudit(ctx context.Context, evt *mongo.ModerationEvent) {
	if err := s.auditRepo.SaveEvent(ctx, evt); err != nil {
		log.ErrorContext(ctx, "审计事件写入失败", "roomID", evt.RoomID, "eventType", evt.EventType, "err", err)
	}
}
