package repository

import (
	"Haggle/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRoomRepo_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRoomRepo(db)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, &model.ChatRoom{
		ListingID: 100, BuyerID: 1, SellerID: 2,
		BuyerSubscriptionTier: "premium",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.NotZero(t, created.ID)

	// 同一 (listing, buyer) 再次调用返回同一会话
	again, err := repo.GetOrCreate(ctx, &model.ChatRoom{
		ListingID: 100, BuyerID: 1, SellerID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	// 同一房源不同买家产生独立会话
	other, err := repo.GetOrCreate(ctx, &model.ChatRoom{
		ListingID: 100, BuyerID: 3, SellerID: 2,
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestChatRoomRepo_ListByUser_ImportantFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRoomRepo(db)
	ctx := context.Background()

	old := seedRoom(t, db, 100, 1, 2)
	mid := seedRoom(t, db, 101, 1, 3)
	latest := seedRoom(t, db, 102, 1, 4)

	base := time.Now()
	require.NoError(t, db.Model(old).Update("last_message_at", base.Add(-2*time.Hour)).Error)
	require.NoError(t, db.Model(mid).Update("last_message_at", base.Add(-time.Hour)).Error)
	require.NoError(t, db.Model(latest).Update("last_message_at", base).Error)

	// 买家把最老的会话置顶
	require.NoError(t, repo.SetImportant(ctx, old.ID, model.RoomSideBuyer, true))

	rooms, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, old.ID, rooms[0].ID)
	assert.Equal(t, latest.ID, rooms[1].ID)
	assert.Equal(t, mid.ID, rooms[2].ID)

	// 对手方视角不受买家置顶影响
	sellerRooms, err := repo.ListByUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sellerRooms, 1)
	assert.Equal(t, old.ID, sellerRooms[0].ID)
}

func TestChatRoomRepo_BlockAndReportFlags(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)

	require.NoError(t, repo.SetBlocked(ctx, room.ID, model.RoomSideSeller, true, strPtr("垃圾信息")))
	require.NoError(t, repo.SetReported(ctx, room.ID, model.RoomSideBuyer, strPtr("可疑交易")))

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.BlockedBySeller)
	assert.False(t, got.BlockedByBuyer)
	assert.True(t, got.ReportedByBuyer)
	assert.True(t, got.BlockedAgainst(model.RoomSideBuyer))
	assert.False(t, got.BlockedAgainst(model.RoomSideSeller))

	// 取消拉黑是幂等写
	require.NoError(t, repo.SetBlocked(ctx, room.ID, model.RoomSideSeller, false, nil))
	got, err = repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, got.BlockedBySeller)
}

func TestChatRoomRepo_DeactivateByListingIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRoomRepo(db)
	ctx := context.Background()

	r1 := seedRoom(t, db, 100, 1, 2)
	r2 := seedRoom(t, db, 100, 3, 2)
	r3 := seedRoom(t, db, 200, 1, 4)

	ids, err := repo.DeactivateByListingIDs(ctx, []uint64{100})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{r1.ID, r2.ID}, ids)

	got, err := repo.GetByID(ctx, r3.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	// 重复清扫是空操作
	ids, err = repo.DeactivateByListingIDs(ctx, []uint64{100})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChatRoomRepo_TotalUnread(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRoomRepo(db)
	ctx := context.Background()

	r1 := seedRoom(t, db, 100, 1, 2)
	r2 := seedRoom(t, db, 101, 1, 3)
	r3 := seedRoom(t, db, 102, 4, 1)

	require.NoError(t, db.Model(r1).Update("unread_count_buyer", 3).Error)
	require.NoError(t, db.Model(r2).Update("unread_count_buyer", 2).Error)
	// 用户 1 在 r3 中是卖家
	require.NoError(t, db.Model(r3).Update("unread_count_seller", 5).Error)
	require.NoError(t, db.Model(r3).Update("unread_count_buyer", 7).Error)

	total, err := repo.TotalUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	total, err = repo.TotalUnread(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, total)
}
