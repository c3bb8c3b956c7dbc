package consts

const (
	// RoleModerator 平台巡查角色：旁观者模式接入会话，只读
	RoleModerator = "MODERATOR"
)
