package consts

// 实时总线频道前缀：多实例部署时所有实例订阅同一组频道，
// 广播经 Redis Pub/Sub 到达订阅者所在的任意进程
const (
	IMRoomChannel     = "im:room:"
	IMUserChannel     = "im:user:"
	IMRoomChannelGlob = "im:room:*"
	IMUserChannelGlob = "im:user:*"
)
