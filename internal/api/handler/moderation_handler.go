package handler

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/pkg/response"
	"Haggle/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	moderationService service.ModerationService
}

func NewModerationHandler(moderationService service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

// SetBlocked 拉黑 / 取消拉黑对方
func (s *ModerationHandler) SetBlocked(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.BlockRoomReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.moderationService.SetBlocked(c, roomID, userID, req.Blocked, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Report 举报会话
func (s *ModerationHandler) Report(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.ReportRoomReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.moderationService.Report(c, roomID, userID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListEvents 审计轨迹查询，仅平台巡查可见
func (s *ModerationHandler) ListEvents(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	roles := c.GetStringSlice("roles")

	res, err := s.moderationService.ListEvents(c, roomID, roles)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
