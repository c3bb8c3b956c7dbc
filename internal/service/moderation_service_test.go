package service

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/model"
	"Haggle/internal/pkg/consts"
	pkgmongo "Haggle/internal/pkg/mongo"
	"Haggle/internal/repository"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeAuditRepo 内存审计库
type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*pkgmongo.ModerationEvent
}

func (s *fakeAuditRepo) SaveEvent(_ context.Context, evt *pkgmongo.ModerationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *fakeAuditRepo) ListByRoom(_ context.Context, roomID uint64, _ int64) ([]*pkgmongo.ModerationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*pkgmongo.ModerationEvent
	for _, e := range s.events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out, nil
}

type moderationFixture struct {
	db       *gorm.DB
	roomRepo repository.ChatRoomRepo
	audit    *fakeAuditRepo
	notifier *fakeNotifier
	svc      ModerationService
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()

	db := newTestDB(t)
	roomRepo := repository.NewChatRoomRepo(db)
	audit := &fakeAuditRepo{}
	notifier := &fakeNotifier{}

	return &moderationFixture{
		db:       db,
		roomRepo: roomRepo,
		audit:    audit,
		notifier: notifier,
		svc:      NewModerationService(roomRepo, audit, notifier),
	}
}

func (f *moderationFixture) seedRoom(t *testing.T, listingID, buyerID, sellerID uint64) *model.ChatRoom {
	t.Helper()
	room := &model.ChatRoom{ListingID: listingID, BuyerID: buyerID, SellerID: sellerID, IsActive: true}
	require.NoError(t, f.db.Create(room).Error)
	return room
}

func TestModerationService_BlockUnblock(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	require.NoError(t, f.svc.SetBlocked(ctx, room.ID, 2, true, "骚扰"))

	got, err := f.roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.BlockedBySeller)

	require.NoError(t, f.svc.SetBlocked(ctx, room.ID, 2, false, ""))
	got, err = f.roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, got.BlockedBySeller)

	// 完整轨迹进审计库：block 和 unblock 各一条
	events, err := f.svc.ListEvents(ctx, room.ID, []string{consts.RoleModerator})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, pkgmongo.ModerationEventBlock, events[0].EventType)
	assert.Equal(t, pkgmongo.ModerationEventUnblock, events[1].EventType)
	assert.Equal(t, uint64(2), events[0].ActorID)
	assert.Equal(t, uint64(1), events[0].TargetID)

	// 拉黑触发风控通知，取消拉黑不触发
	notes := f.notifier.eventsOf(dto.NotifyRoomBlocked)
	require.Len(t, notes, 1)
	assert.Equal(t, uint64(1), notes[0].UserID)

	assert.ErrorIs(t, f.svc.SetBlocked(ctx, room.ID, 9, true, ""), UnauthorizedError)
}

func TestModerationService_Report(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	require.NoError(t, f.svc.Report(ctx, room.ID, 1, "可疑交易"))

	got, err := f.roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.ReportedByBuyer)
	// 举报不拉黑会话
	assert.False(t, got.BlockedByBuyer)

	notes := f.notifier.eventsOf(dto.NotifyRoomReported)
	require.Len(t, notes, 1)
	assert.Equal(t, room.ID, notes[0].RoomID)
}

func TestModerationService_ListEvents_ModeratorOnly(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 100, 1, 2)

	_, err := f.svc.ListEvents(ctx, room.ID, []string{"USER"})
	assert.ErrorIs(t, err, UnauthorizedError)
}
