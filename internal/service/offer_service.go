package service

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/model"
	"Haggle/internal/pkg/catalog"
	"Haggle/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"time"

	"github.com/jinzhu/copier"
)

// OfferService 价格协商服务
type OfferService interface {
	Propose(ctx context.Context, proposerID uint64, proposerTier string, req *dto.ProposeOfferReq) (*dto.ListingOfferDTO, error)
	Respond(ctx context.Context, offerID, responderID uint64, req *dto.RespondOfferReq) (*dto.ListingOfferDTO, error)
	Withdraw(ctx context.Context, offerID, requesterID uint64) (*dto.ListingOfferDTO, error)
	MarkViewed(ctx context.Context, offerID, viewerID uint64) error
	ListByRoom(ctx context.Context, roomID, userID uint64, roles []string) ([]*dto.ListingOfferDTO, error)

	ExpirePendingOffers(ctx context.Context) (int64, error)
}

type offerServiceImpl struct {
	offerRepo   repository.ListingOfferRepo
	roomRepo    repository.ChatRoomRepo
	chatService ChatService
	catalog     catalog.Client
	broadcaster Broadcaster
	notifier    Notifier
	offerTTL    time.Duration
}

func NewOfferService(offerRepo repository.ListingOfferRepo, roomRepo repository.ChatRoomRepo,
	chatService ChatService, catalogClient catalog.Client,
	broadcaster Broadcaster, notifier Notifier, offerTTL time.Duration) OfferService {
	return &offerServiceImpl{
		offerRepo:   offerRepo,
		roomRepo:    roomRepo,
		chatService: chatService,
		catalog:     catalogClient,
		broadcaster: broadcaster,
		notifier:    notifier,
		offerTTL:    offerTTL,
	}
}

// Propose 发起报价或还价。买家金额不得高于挂牌价；
// 折扣在创建时一次性计算并固化。
func (s *offerServiceImpl) Propose(ctx context.Context, proposerID uint64, proposerTier string, req *dto.ProposeOfferReq) (*dto.ListingOfferDTO, error) {
	room, err := s.proposalRoom(ctx, proposerID, proposerTier, req)
	if err != nil {
		return nil, err
	}
	side := room.SideOf(proposerID)
	if side == "" {
		return nil, UnauthorizedError
	}
	if !room.IsActive {
		return nil, ErrRoomInactive
	}
	if room.BlockedAgainst(side) {
		return nil, ErrRoomBlocked
	}

	if req.OfferedAmount <= 0 || req.ListingPriceAtTime <= 0 {
		return nil, ErrOfferAmountInvalid
	}
	if side == model.RoomSideBuyer && req.OfferedAmount > req.ListingPriceAtTime {
		return nil, ErrOfferAmountInvalid
	}

	offer := &model.ListingOffer{
		RoomID:             room.ID,
		ListingID:          room.ListingID,
		BuyerID:            room.BuyerID,
		SellerID:           room.SellerID,
		ProposerID:         proposerID,
		OfferedAmount:      req.OfferedAmount,
		ListingPriceAtTime: req.ListingPriceAtTime,
		DiscountPercentage: discountOf(req.ListingPriceAtTime, req.OfferedAmount),
		Notes:              req.Notes,
		ParentOfferID:      req.ParentOfferID,
		ExpiresAt:          time.Now().Add(s.offerTTL),
	}

	if err = s.offerRepo.Create(ctx, offer); err != nil {
		switch {
		case errors.Is(err, repository.ErrParentNotPending):
			return nil, ErrOfferInvalidState
		case errors.Is(err, repository.ErrProposerHasPending):
			return nil, ErrOfferConflict
		default:
			return nil, err
		}
	}

	d := toOfferDTO(offer)
	if err = s.broadcaster.RoomEvent(ctx, room.ID, dto.WsEventOfferReceived, d); err != nil {
		log.ErrorContext(ctx, "报价广播失败", "roomID", room.ID, "offerID", offer.ID, "err", err)
	}
	s.notifier.Notify(ctx, &dto.NotifyEvent{
		Type:       dto.NotifyOfferReceived,
		UserID:     offer.ResponderID(),
		RoomID:     room.ID,
		ListingID:  room.ListingID,
		OfferID:    offer.ID,
		OccurredAt: time.Now(),
	})
	return d, nil
}

// proposalRoom 定位报价所属会话：给定 room_id 直取，否则按房源惰性建会话
func (s *offerServiceImpl) proposalRoom(ctx context.Context, proposerID uint64, proposerTier string, req *dto.ProposeOfferReq) (*model.ChatRoom, error) {
	if req.RoomID != 0 {
		room, err := s.roomRepo.GetByID(ctx, req.RoomID)
		if err != nil {
			return nil, mapNotFound(err, ErrRoomNotFound)
		}
		return room, nil
	}
	if req.ListingID == 0 {
		return nil, ErrParamInvalid
	}

	listing, err := s.catalog.GetListing(ctx, req.ListingID)
	if err != nil {
		log.WarnContext(ctx, "房源快照获取失败", "listingID", req.ListingID, "err", err)
		return nil, ErrListingNotFound
	}
	if listing.Status != catalog.ListingStatusLive {
		return nil, ErrListingNotFound
	}
	if listing.SellerID == proposerID {
		return nil, ErrInvalidParticipant
	}

	return s.roomRepo.GetOrCreate(ctx, &model.ChatRoom{
		ListingID:              req.ListingID,
		BuyerID:                proposerID,
		SellerID:               listing.SellerID,
		BuyerSubscriptionTier:  proposerTier,
		SellerSubscriptionTier: listing.SellerTier,
	})
}

// Respond 接受或拒绝报价。只有被动方可响应，pending 状态 CAS 迁移，
// 与撤回 / 过期清扫并发时先到者赢。
func (s *offerServiceImpl) Respond(ctx context.Context, offerID, responderID uint64, req *dto.RespondOfferReq) (*dto.ListingOfferDTO, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, mapNotFound(err, ErrOfferNotFound)
	}
	if offer.ResponderID() != responderID {
		return nil, UnauthorizedError
	}

	now := time.Now()
	updates := map[string]interface{}{"responded_at": now}
	to := model.OfferStatusAccepted
	if req.Decision == "reject" {
		to = model.OfferStatusRejected
		if req.Reason != "" {
			updates["rejection_reason"] = req.Reason
		}
	}

	ok, err := s.offerRepo.Transition(ctx, offerID, to, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOfferInvalidState
	}

	offer.Status = to
	offer.RespondedAt = &now
	if req.Decision == "reject" {
		offer.RejectionReason = req.Reason
	}

	if to == model.OfferStatusAccepted {
		s.onAccepted(ctx, offer)
	} else {
		s.onRejected(ctx, offer)
	}

	d := toOfferDTO(offer)
	if err = s.broadcaster.RoomEvent(ctx, offer.RoomID, dto.WsEventOfferUpdated, d); err != nil {
		log.ErrorContext(ctx, "报价状态广播失败", "roomID", offer.RoomID, "offerID", offer.ID, "err", err)
	}
	return d, nil
}

// onAccepted 接受后的副作用：会话内系统消息、通知接收方、
// 异步通知目录方标记房源可能已售。目录方失败不回滚报价状态。
func (s *offerServiceImpl) onAccepted(ctx context.Context, offer *model.ListingOffer) {
	text := fmt.Sprintf("报价 ¥%.2f 已被接受", offer.OfferedAmount)
	if err := s.chatService.SendSystemMessage(ctx, offer.RoomID, model.SystemEventOfferAccepted, text); err != nil {
		log.ErrorContext(ctx, "成交系统消息发送失败", "roomID", offer.RoomID, "offerID", offer.ID, "err", err)
	}

	s.notifier.Notify(ctx, &dto.NotifyEvent{
		Type:       dto.NotifyOfferAccepted,
		UserID:     offer.ProposerID,
		RoomID:     offer.RoomID,
		ListingID:  offer.ListingID,
		OfferID:    offer.ID,
		OccurredAt: time.Now(),
	})

	go func() {
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.catalog.MarkLikelySold(c, offer.ListingID); err != nil {
			log.ErrorContext(c, "房源成交回写失败", "listingID", offer.ListingID, "offerID", offer.ID, "err", err)
		}
	}()
}

func (s *offerServiceImpl) onRejected(ctx context.Context, offer *model.ListingOffer) {
	text := fmt.Sprintf("报价 ¥%.2f 已被拒绝", offer.OfferedAmount)
	if err := s.chatService.SendSystemMessage(ctx, offer.RoomID, model.SystemEventOfferRejected, text); err != nil {
		log.ErrorContext(ctx, "拒绝系统消息发送失败", "roomID", offer.RoomID, "offerID", offer.ID, "err", err)
	}

	s.notifier.Notify(ctx, &dto.NotifyEvent{
		Type:       dto.NotifyOfferRejected,
		UserID:     offer.ProposerID,
		RoomID:     offer.RoomID,
		ListingID:  offer.ListingID,
		OfferID:    offer.ID,
		OccurredAt: time.Now(),
	})
}

// Withdraw 提案方撤回自己的 pending 报价
func (s *offerServiceImpl) Withdraw(ctx context.Context, offerID, requesterID uint64) (*dto.ListingOfferDTO, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, mapNotFound(err, ErrOfferNotFound)
	}
	if offer.ProposerID != requesterID {
		return nil, UnauthorizedError
	}

	ok, err := s.offerRepo.Transition(ctx, offerID, model.OfferStatusWithdrawn, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOfferInvalidState
	}

	offer.Status = model.OfferStatusWithdrawn
	d := toOfferDTO(offer)
	if err = s.broadcaster.RoomEvent(ctx, offer.RoomID, dto.WsEventOfferUpdated, d); err != nil {
		log.ErrorContext(ctx, "报价状态广播失败", "roomID", offer.RoomID, "offerID", offer.ID, "err", err)
	}
	return d, nil
}

// MarkViewed 被动方首次查看报价的时间戳，重复调用是空操作
func (s *offerServiceImpl) MarkViewed(ctx context.Context, offerID, viewerID uint64) error {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return mapNotFound(err, ErrOfferNotFound)
	}
	if offer.ResponderID() != viewerID {
		return UnauthorizedError
	}
	return s.offerRepo.MarkViewed(ctx, offerID)
}

// ListByRoom 会话内完整还价链
func (s *offerServiceImpl) ListByRoom(ctx context.Context, roomID, userID uint64, roles []string) ([]*dto.ListingOfferDTO, error) {
	if _, err := s.chatService.GetParticipation(ctx, roomID, userID, roles); err != nil {
		return nil, err
	}

	offers, err := s.offerRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.ListingOfferDTO, 0, len(offers))
	for _, o := range offers {
		res = append(res, toOfferDTO(o))
	}
	return res, nil
}

// ExpirePendingOffers 批量过期清扫，由定时任务驱动
func (s *offerServiceImpl) ExpirePendingOffers(ctx context.Context) (int64, error) {
	return s.offerRepo.ExpirePending(ctx, time.Now())
}

// discountOf 折扣百分比，保留两位小数
func discountOf(price, amount float64) float64 {
	return math.Round((price-amount)/price*100*100) / 100
}

func toOfferDTO(offer *model.ListingOffer) *dto.ListingOfferDTO {
	d := &dto.ListingOfferDTO{}
	_ = copier.Copy(d, offer)
	return d
}
