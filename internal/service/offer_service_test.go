package service

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/model"
	"Haggle/internal/pkg/catalog"
	"Haggle/internal/repository"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type offerFixture struct {
	db       *gorm.DB
	catalog  *fakeCatalog
	bus      *fakeBus
	notifier *fakeNotifier
	chat     ChatService
	svc      OfferService
}

func newOfferFixture(t *testing.T) *offerFixture {
	t.Helper()

	db := newTestDB(t)
	roomRepo := repository.NewChatRoomRepo(db)
	msgRepo := repository.NewChatMessageRepo(db)
	offerRepo := repository.NewListingOfferRepo(db)
	cat := newFakeCatalog()
	bus := &fakeBus{}
	notifier := &fakeNotifier{}

	chat := NewChatService(roomRepo, msgRepo, cat, bus)
	return &offerFixture{
		db:       db,
		catalog:  cat,
		bus:      bus,
		notifier: notifier,
		chat:     chat,
		svc:      NewOfferService(offerRepo, roomRepo, chat, cat, bus, notifier, 48*time.Hour),
	}
}

func (f *offerFixture) seedRoom(t *testing.T, listingID, buyerID, sellerID uint64) *model.ChatRoom {
	t.Helper()
	room := &model.ChatRoom{ListingID: listingID, BuyerID: buyerID, SellerID: sellerID, IsActive: true}
	require.NoError(t, f.db.Create(room).Error)
	return room
}

func proposeReq(roomID uint64, amount, price float64) *dto.ProposeOfferReq {
	return &dto.ProposeOfferReq{RoomID: roomID, OfferedAmount: amount, ListingPriceAtTime: price}
}

func TestOfferService_Propose(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusPending, offer.Status)
	assert.InDelta(t, 20.00, offer.DiscountPercentage, 0.001)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), offer.ExpiresAt, time.Minute)

	received := f.bus.roomEventsOf(dto.WsEventOfferReceived)
	require.Len(t, received, 1)
	assert.Equal(t, room.ID, received[0].TargetID)

	// 通知发给被动方（卖家）
	notes := f.notifier.eventsOf(dto.NotifyOfferReceived)
	require.Len(t, notes, 1)
	assert.Equal(t, uint64(2), notes[0].UserID)
	assert.Equal(t, offer.ID, notes[0].OfferID)
}

func TestOfferService_Propose_LazyRoomByListing(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	f.catalog.addListing(100, 2, 1000, catalog.ListingStatusLive)

	offer, err := f.svc.Propose(ctx, 1, "premium", &dto.ProposeOfferReq{
		ListingID: 100, OfferedAmount: 750, ListingPriceAtTime: 1000,
	})
	require.NoError(t, err)
	assert.NotZero(t, offer.RoomID)
	assert.Equal(t, uint64(2), offer.SellerID)

	// 卖家不能对自己的房源发起首个报价
	_, err = f.svc.Propose(ctx, 2, "", &dto.ProposeOfferReq{
		ListingID: 100, OfferedAmount: 900, ListingPriceAtTime: 1000,
	})
	assert.ErrorIs(t, err, ErrInvalidParticipant)
}

func TestOfferService_Propose_AmountGuards(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	// 买家报价不得高于挂牌价
	_, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 1200, 1000))
	assert.ErrorIs(t, err, ErrOfferAmountInvalid)

	// 卖家还价可以高于买家出价，不受挂牌价上限约束
	_, err = f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)
	_, err = f.svc.Propose(ctx, 2, "", proposeReq(room.ID, 1100, 1000))
	require.NoError(t, err)
}

func TestOfferService_Propose_ConflictMapping(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	first, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)

	// 同方重复报价
	_, err = f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 820, 1000))
	assert.ErrorIs(t, err, ErrOfferConflict)

	// 还价链：卖家还价后父报价终态，不能再被还
	counterReq := proposeReq(room.ID, 900, 1000)
	counterReq.ParentOfferID = &first.ID
	_, err = f.svc.Propose(ctx, 2, "", counterReq)
	require.NoError(t, err)

	again := proposeReq(room.ID, 850, 1000)
	again.ParentOfferID = &first.ID
	_, err = f.svc.Propose(ctx, 1, "", again)
	assert.ErrorIs(t, err, ErrOfferInvalidState)
}

func TestOfferService_Respond_Accept(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)

	// 提案方不能响应自己的报价
	_, err = f.svc.Respond(ctx, offer.ID, 1, &dto.RespondOfferReq{Decision: "accept"})
	assert.ErrorIs(t, err, UnauthorizedError)

	accepted, err := f.svc.Respond(ctx, offer.ID, 2, &dto.RespondOfferReq{Decision: "accept"})
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	updated := f.bus.roomEventsOf(dto.WsEventOfferUpdated)
	require.Len(t, updated, 1)

	// 会话内出现成交系统消息
	msgs, err := f.chat.GetHistory(ctx, room.ID, 1, nil, 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	require.NotNil(t, last.SystemEventType)
	assert.Equal(t, model.SystemEventOfferAccepted, *last.SystemEventType)

	notes := f.notifier.eventsOf(dto.NotifyOfferAccepted)
	require.Len(t, notes, 1)
	assert.Equal(t, uint64(1), notes[0].UserID)

	// 疑似售出信号异步送达目录方
	assert.Eventually(t, func() bool {
		sold := f.catalog.soldListings()
		return len(sold) == 1 && sold[0] == room.ListingID
	}, time.Second, 10*time.Millisecond)

	// 已接受的报价不能再次响应
	_, err = f.svc.Respond(ctx, offer.ID, 2, &dto.RespondOfferReq{Decision: "reject"})
	assert.ErrorIs(t, err, ErrOfferInvalidState)
}

func TestOfferService_Respond_Reject(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)

	rejected, err := f.svc.Respond(ctx, offer.ID, 2, &dto.RespondOfferReq{Decision: "reject", Reason: "价格太低"})
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusRejected, rejected.Status)
	assert.Equal(t, "价格太低", rejected.RejectionReason)

	// 拒绝不触发疑似售出
	assert.Empty(t, f.catalog.soldListings())

	notes := f.notifier.eventsOf(dto.NotifyOfferRejected)
	require.Len(t, notes, 1)
}

func TestOfferService_Respond_ConcurrentSingleWinner(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)

	// 接受与拒绝并发到达，状态机裁决出唯一赢家
	decisions := []string{"accept", "reject"}
	results := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, decision := range decisions {
		wg.Add(1)
		go func(i int, decision string) {
			defer wg.Done()
			_, results[i] = f.svc.Respond(ctx, offer.ID, 2, &dto.RespondOfferReq{Decision: decision})
		}(i, decision)
	}
	wg.Wait()

	var won, lost int
	for _, err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrOfferInvalidState)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	// 落库状态与赢家一致，通知也只发一次
	got := &model.ListingOffer{}
	require.NoError(t, f.db.First(got, offer.ID).Error)
	assert.Contains(t, []string{model.OfferStatusAccepted, model.OfferStatusRejected}, got.Status)
	total := len(f.notifier.eventsOf(dto.NotifyOfferAccepted)) + len(f.notifier.eventsOf(dto.NotifyOfferRejected))
	assert.Equal(t, 1, total)
}

func TestOfferService_Withdraw(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)

	// 只有提案方可以撤回
	_, err = f.svc.Withdraw(ctx, offer.ID, 2)
	assert.ErrorIs(t, err, UnauthorizedError)

	withdrawn, err := f.svc.Withdraw(ctx, offer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusWithdrawn, withdrawn.Status)

	// 已撤回不能再撤
	_, err = f.svc.Withdraw(ctx, offer.ID, 1)
	assert.ErrorIs(t, err, ErrOfferInvalidState)
}

func TestOfferService_MarkViewedAndList(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)

	// 提案方自己的查看不记录
	assert.ErrorIs(t, f.svc.MarkViewed(ctx, offer.ID, 1), UnauthorizedError)
	require.NoError(t, f.svc.MarkViewed(ctx, offer.ID, 2))

	offers, err := f.svc.ListByRoom(ctx, room.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.NotNil(t, offers[0].ViewedAt)

	_, err = f.svc.ListByRoom(ctx, room.ID, 9, nil)
	assert.ErrorIs(t, err, UnauthorizedError)
}

func TestOfferService_ExpirePendingOffers(t *testing.T) {
	f := newOfferFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	offer, err := f.svc.Propose(ctx, 1, "", proposeReq(room.ID, 800, 1000))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.ListingOffer{}).
		Where("id = ?", offer.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	expired, err := f.svc.ExpirePendingOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var got model.ListingOffer
	require.NoError(t, f.db.First(&got, offer.ID).Error)
	assert.Equal(t, model.OfferStatusExpired, got.Status)
	assert.True(t, got.AutoRejected)
}
