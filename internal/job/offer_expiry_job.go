package job

import (
	"Haggle/internal/pkg/logger"
	"Haggle/internal/service"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// OfferExpiryJob 定时清扫超时未响应的报价。
// 底层是条件批量更新，与在线响应并发安全，重复执行是空操作。
type OfferExpiryJob struct {
	offerService service.OfferService
}

func NewOfferExpiryJob(offerService service.OfferService) *OfferExpiryJob {
	return &OfferExpiryJob{
		offerService: offerService,
	}
}

func (s *OfferExpiryJob) Run() {
	traceID := "job-offer-expiry-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	expired, err := s.offerService.ExpirePendingOffers(ctx)
	if err != nil {
		log.ErrorContext(ctx, "报价过期清扫失败", "err", err)
		return
	}
	if expired > 0 {
		log.InfoContext(ctx, "OfferExpiryJob processing", "expired_count", expired)
	}
}
