package job

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/pkg/catalog"
	"Haggle/internal/pkg/logger"
	"Haggle/internal/repository"
	"Haggle/internal/service"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// ListingRoomJob 定时从房源目录拉取已下架 / 已删除的房源，
// 批量关闭其名下仍激活的会话并通知在线端。
type ListingRoomJob struct {
	roomRepo    repository.ChatRoomRepo
	catalog     catalog.Client
	broadcaster service.Broadcaster
}

func NewListingRoomJob(roomRepo repository.ChatRoomRepo, catalogClient catalog.Client, broadcaster service.Broadcaster) *ListingRoomJob {
	return &ListingRoomJob{
		roomRepo:    roomRepo,
		catalog:     catalogClient,
		broadcaster: broadcaster,
	}
}

func (s *ListingRoomJob) Run() {
	traceID := "job-listing-room-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	listingIDs, err := s.catalog.ListClosedListingIDs(ctx)
	if err != nil {
		log.ErrorContext(ctx, "已关闭房源拉取失败", "err", err)
		return
	}
	if len(listingIDs) == 0 {
		return
	}

	roomIDs, err := s.roomRepo.DeactivateByListingIDs(ctx, listingIDs)
	if err != nil {
		log.ErrorContext(ctx, "会话批量关闭失败", "listing_count", len(listingIDs), "err", err)
		return
	}
	if len(roomIDs) == 0 {
		return
	}

	log.InfoContext(ctx, "ListingRoomJob processing", "listing_count", len(listingIDs), "room_count", len(roomIDs))

	// 单个会话通知失败不影响其余会话
	for _, roomID := range roomIDs {
		if err = s.broadcaster.RoomEvent(ctx, roomID, dto.WsEventRoomInactive,
			&dto.WsRoomInactiveDTO{RoomID: roomID}); err != nil {
			log.ErrorContext(ctx, "会话关闭通知失败", "roomID", roomID, "err", err)
		}
	}
}
