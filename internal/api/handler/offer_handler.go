package handler

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/pkg/response"
	"Haggle/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	offerService service.OfferService
}

func NewOfferHandler(offerService service.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

// Propose 发起报价 / 还价
func (s *OfferHandler) Propose(c *gin.Context) {
	var req dto.ProposeOfferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	tier := c.GetString("tier")

	res, err := s.offerService.Propose(c, userID, tier, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Respond 接受 / 拒绝报价
func (s *OfferHandler) Respond(c *gin.Context) {
	offerID, err := strconv.ParseUint(c.Param("offer_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.RespondOfferReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	res, err := s.offerService.Respond(c, offerID, userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Withdraw 撤回自己的报价
func (s *OfferHandler) Withdraw(c *gin.Context) {
	offerID, err := strconv.ParseUint(c.Param("offer_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	res, err := s.offerService.Withdraw(c, offerID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkViewed 被动方首次查看报价
func (s *OfferHandler) MarkViewed(c *gin.Context) {
	offerID, err := strconv.ParseUint(c.Param("offer_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err = s.offerService.MarkViewed(c, offerID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListByRoom 会话内的完整还价链
func (s *OfferHandler) ListByRoom(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	roles := c.GetStringSlice("roles")

	res, err := s.offerService.ListByRoom(c, roomID, userID, roles)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
