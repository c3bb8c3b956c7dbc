package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID uint64) *Client {
	return NewClient(context.Background(), nil, nil, userID, "", nil, nil)
}

func recvOrNil(c *Client) []byte {
	select {
	case p := <-c.send:
		return p
	default:
		return nil
	}
}

func TestHub_RoomFanout(t *testing.T) {
	hub := NewHub()

	buyer := newTestClient(1)
	seller := newTestClient(2)
	outsider := newTestClient(3)

	hub.Register(buyer)
	hub.Register(seller)
	hub.Register(outsider)

	hub.JoinRoom(buyer, 10, false)
	hub.JoinRoom(seller, 10, false)
	hub.JoinRoom(outsider, 11, false)

	hub.DispatchRoom(10, []byte("hello"))

	assert.Equal(t, []byte("hello"), recvOrNil(buyer))
	assert.Equal(t, []byte("hello"), recvOrNil(seller))
	assert.Nil(t, recvOrNil(outsider))

	// 退房后不再收到会话事件
	hub.LeaveRoom(seller, 10)
	hub.DispatchRoom(10, []byte("again"))
	assert.Equal(t, []byte("again"), recvOrNil(buyer))
	assert.Nil(t, recvOrNil(seller))
}

func TestHub_UserFanout_MultiConnection(t *testing.T) {
	hub := NewHub()

	// 同一用户两端在线
	phone := newTestClient(1)
	web := newTestClient(1)
	other := newTestClient(2)

	hub.Register(phone)
	hub.Register(web)
	hub.Register(other)

	hub.DispatchUser(1, []byte("badge"))

	assert.Equal(t, []byte("badge"), recvOrNil(phone))
	assert.Equal(t, []byte("badge"), recvOrNil(web))
	assert.Nil(t, recvOrNil(other))
}

func TestHub_UnregisterRemovesAllSubscriptions(t *testing.T) {
	hub := NewHub()

	c := newTestClient(1)
	hub.Register(c)
	hub.JoinRoom(c, 10, false)
	hub.JoinRoom(c, 11, false)

	hub.Unregister(c)

	hub.DispatchRoom(10, []byte("x"))
	hub.DispatchUser(1, []byte("y"))

	// 出口已关闭，没有残留投递
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_RouteByChannelPrefix(t *testing.T) {
	hub := NewHub()

	c := newTestClient(7)
	hub.Register(c)
	hub.JoinRoom(c, 42, false)

	hub.route("im:room:42", []byte("room-msg"))
	assert.Equal(t, []byte("room-msg"), recvOrNil(c))

	hub.route("im:user:7", []byte("user-msg"))
	assert.Equal(t, []byte("user-msg"), recvOrNil(c))

	// 非法频道静默丢弃
	hub.route("im:room:not-a-number", []byte("junk"))
	hub.route("unrelated:1", []byte("junk"))
	assert.Nil(t, recvOrNil(c))
}

func TestClient_TrySend_SlowConsumerClosed(t *testing.T) {
	c := newTestClient(1)

	for i := 0; i < cap(c.send); i++ {
		c.trySend([]byte("fill"))
	}
	// 缓冲打满后的下一次投递关闭出口
	c.trySend([]byte("overflow"))

	drained := 0
	for range c.send {
		drained++
	}
	require.Equal(t, cap(c.send), drained)

	// 关闭后的投递静默丢弃，不会 panic
	c.trySend([]byte("late"))
}

func TestClient_SpectatorModePerRoom(t *testing.T) {
	hub := NewHub()
	c := newTestClient(9)
	hub.Register(c)

	// 同一条连接：旁观进入会话 10，以参与方身份进入会话 11
	hub.JoinRoom(c, 10, true)
	hub.JoinRoom(c, 11, false)

	assert.True(t, c.spectatorIn(10))
	assert.False(t, c.spectatorIn(11))
	// 未加入的会话不视为旁观，读写校验交给服务层
	assert.False(t, c.spectatorIn(99))

	// 退出后旁观标记随之清除
	hub.LeaveRoom(c, 10)
	assert.False(t, c.spectatorIn(10))
}
