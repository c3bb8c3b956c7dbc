package handler

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/pkg/response"
	"Haggle/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

// 历史消息单页上限
const maxHistoryPageSize = 200

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateRoom 按房源发起（或获取）会话
func (s *ChatHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	tier := c.GetString("tier")

	res, err := s.chatService.GetOrCreateRoom(c, userID, tier, req.ListingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetRoomList 会话列表
func (s *ChatHandler) GetRoomList(c *gin.Context) {
	userID := c.GetUint64("user_id")

	res, err := s.chatService.GetRoomList(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetHistory 历史消息，游标分页
func (s *ChatHandler) GetHistory(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if err != nil || pageSize <= 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}

	userID := c.GetUint64("user_id")
	roles := c.GetStringSlice("roles")

	res, err := s.chatService.GetHistory(c, roomID, userID, roles, cursor, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendMessage 发送消息（文本 / 图片 / 位置）
func (s *ChatHandler) SendMessage(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.SendMessageReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	req.RoomID = roomID

	userID := c.GetUint64("user_id")
	tier := c.GetString("tier")

	res, err := s.chatService.SendMessage(c, userID, tier, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkRead 会话全量置已读
func (s *ChatHandler) MarkRead(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.chatService.MarkRead(c, roomID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteMessage 删除自己发出的消息
func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	msgID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.chatService.DeleteMessage(c, msgID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// EditMessage 编辑自己发出的文本消息
func (s *ChatHandler) EditMessage(c *gin.Context) {
	msgID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.EditMessageReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	res, err := s.chatService.EditMessage(c, msgID, userID, req.MessageText)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SetImportant 置顶 / 取消置顶会话
func (s *ChatHandler) SetImportant(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.SetImportantReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.chatService.SetImportant(c, roomID, userID, req.Important); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetContactFlag 买方请求联系方式 / 卖方确认共享
func (s *ChatHandler) SetContactFlag(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.chatService.SetContactFlag(c, roomID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetUnreadCount 角标未读总数
func (s *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetUint64("user_id")

	count, err := s.chatService.GetTotalUnread(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.UnreadCountDTO{Count: count})
}
