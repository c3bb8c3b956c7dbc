package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid       = errors.New("参数错误")
	ErrRoomNotFound       = errors.New("会话不存在")
	ErrMessageNotFound    = errors.New("消息不存在")
	ErrOfferNotFound      = errors.New("报价不存在")
	ErrListingNotFound    = errors.New("房源不存在或已下架")
	ErrInvalidParticipant = errors.New("不能对自己发布的房源发起会话")
	ErrRoomInactive       = errors.New("会话已关闭")
	ErrRoomBlocked        = errors.New("你已被对方拉黑，无法发送")
	ErrOfferConflict      = errors.New("当前已有待处理的报价")
	ErrOfferInvalidState  = errors.New("报价状态已变更，请刷新后重试")
	ErrOfferAmountInvalid = errors.New("报价金额无效")
	ErrReplyNotInRoom     = errors.New("被回复的消息不在当前会话")
	ErrSpectatorReadOnly  = errors.New("巡查模式下仅可查看")
	UnauthorizedError     = errors.New("权限不足")
	UnExpectedError       = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrRoomNotFound:       NotFound,
	ErrMessageNotFound:    NotFound,
	ErrOfferNotFound:      NotFound,
	ErrListingNotFound:    NotFound,
	ErrInvalidParticipant: BadRequest,
	ErrRoomInactive:       BadRequest,
	ErrRoomBlocked:        Forbidden,
	ErrOfferConflict:      BadRequest,
	ErrOfferInvalidState:  BadRequest,
	ErrOfferAmountInvalid: BadRequest,
	ErrReplyNotInRoom:     BadRequest,
	ErrSpectatorReadOnly:  Forbidden,
	UnauthorizedError:     Unauthorized,
	UnExpectedError:       InternalServerError,
}
