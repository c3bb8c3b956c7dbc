package repository

import (
	"Haggle/internal/model"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextMessage(roomID, senderID uint64, text string) *model.ChatMessage {
	return &model.ChatMessage{
		RoomID:      roomID,
		SenderID:    u64Ptr(senderID),
		MessageType: model.MessageTypeText,
		MessageText: strPtr(text),
	}
}

func TestChatMessageRepo_Create_BumpsUnreadAndLastMessage(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	roomRepo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)

	// 买家发两条，卖家未读 +2
	require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 1, "你好"), model.RoomSideSeller))
	require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 1, "还在吗"), model.RoomSideSeller))

	got, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), got.UnreadCountSeller)
	assert.Zero(t, got.UnreadCountBuyer)
	assert.True(t, got.LastMessageAt.After(room.LastMessageAt))
}

func TestChatMessageRepo_Create_SystemMessageBornRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	roomRepo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)

	msg := &model.ChatMessage{
		RoomID:          room.ID,
		MessageType:     model.MessageTypeSystem,
		MessageText:     strPtr("报价已被接受"),
		SystemEventType: strPtr(model.SystemEventOfferAccepted),
	}
	require.NoError(t, repo.Create(ctx, msg, model.RoomSideSeller))

	assert.True(t, msg.IsRead)
	require.NotNil(t, msg.ReadAt)

	// 系统消息不计任何一方未读
	got, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCountBuyer)
	assert.Zero(t, got.UnreadCountSeller)
}

func TestChatMessageRepo_ListByRoom_CursorPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 1, fmt.Sprintf("第%d条", i)), model.RoomSideSeller))
	}

	first, err := repo.ListByRoom(ctx, room.ID, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	// ID 严格递增
	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i].ID, first[i-1].ID)
	}

	second, err := repo.ListByRoom(ctx, room.ID, first[len(first)-1].ID, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Greater(t, second[0].ID, first[len(first)-1].ID)
}

func TestChatMessageRepo_MarkRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	roomRepo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)
	require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 1, "一"), model.RoomSideSeller))
	require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 1, "二"), model.RoomSideSeller))
	// 卖家自己发的消息不受己方已读影响
	require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 2, "好的"), model.RoomSideBuyer))

	affected, err := repo.MarkRead(ctx, room.ID, 2, model.RoomSideSeller)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	got, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCountSeller)
	assert.Equal(t, uint(1), got.UnreadCountBuyer)

	// 全量已读是幂等操作
	affected, err = repo.MarkRead(ctx, room.ID, 2, model.RoomSideSeller)
	require.NoError(t, err)
	assert.Zero(t, affected)

	// 已读之后的新消息保持未读
	require.NoError(t, repo.Create(ctx, newTextMessage(room.ID, 1, "三"), model.RoomSideSeller))
	msgs, err := repo.ListByRoom(ctx, room.ID, 0, 10)
	require.NoError(t, err)
	last := msgs[len(msgs)-1]
	assert.False(t, last.IsRead)
}

func TestChatMessageRepo_SoftDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	roomRepo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)
	msg := newTextMessage(room.ID, 1, "撤回这条")
	require.NoError(t, repo.Create(ctx, msg, model.RoomSideSeller))

	require.NoError(t, repo.SoftDelete(ctx, msg.ID, model.RoomSideSeller))

	// 历史接口不再返回
	msgs, err := repo.ListByRoom(ctx, room.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// 审计读仍可见墓碑
	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.DeletedAt.Valid)

	// 未读消息删除后回补接收方计数
	gotRoom, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, gotRoom.UnreadCountSeller)
}

func TestChatMessageRepo_SoftDelete_ReadMessageKeepsCounter(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	roomRepo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)
	msg := newTextMessage(room.ID, 1, "先读后删")
	require.NoError(t, repo.Create(ctx, msg, model.RoomSideSeller))

	_, err := repo.MarkRead(ctx, room.ID, 2, model.RoomSideSeller)
	require.NoError(t, err)

	// 已读消息的删除不再扣减，计数不会变成负数
	require.NoError(t, repo.SoftDelete(ctx, msg.ID, model.RoomSideSeller))

	got, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCountSeller)
}

func TestChatMessageRepo_UpdateText(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)
	msg := newTextMessage(room.ID, 1, "原文")
	require.NoError(t, repo.Create(ctx, msg, model.RoomSideSeller))

	require.NoError(t, repo.UpdateText(ctx, msg.ID, "改过的"))

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MessageText)
	assert.Equal(t, "改过的", *got.MessageText)
	assert.NotNil(t, got.EditedAt)
}

func TestChatMessageRepo_Create_ConcurrentSendsKeepOrderingAndCounters(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db)
	roomRepo := NewChatRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 100, 1, 2)

	// 双方交错并发发送，消息 ID 仍然严格递增，未读计数不丢不重
	const perSide = 20
	var wg sync.WaitGroup
	for i := 0; i < perSide; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			msg := newTextMessage(room.ID, 1, fmt.Sprintf("买家 %d", n))
			assert.NoError(t, repo.Create(ctx, msg, model.RoomSideSeller))
		}(i)
		go func(n int) {
			defer wg.Done()
			msg := newTextMessage(room.ID, 2, fmt.Sprintf("卖家 %d", n))
			assert.NoError(t, repo.Create(ctx, msg, model.RoomSideBuyer))
		}(i)
	}
	wg.Wait()

	msgs, err := repo.ListByRoom(ctx, room.ID, 0, perSide*2+10)
	require.NoError(t, err)
	require.Len(t, msgs, perSide*2)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}

	got, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(perSide), got.UnreadCountBuyer)
	assert.Equal(t, uint(perSide), got.UnreadCountSeller)
}
