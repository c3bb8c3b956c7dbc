package service

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/model"
	"Haggle/internal/pkg/catalog"
	"Haggle/internal/pkg/consts"
	"Haggle/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// ChatService 会话与消息服务
type ChatService interface {
	GetOrCreateRoom(ctx context.Context, buyerID uint64, buyerTier string, listingID uint64) (*dto.ChatRoomDTO, error)
	GetRoomList(ctx context.Context, userID uint64) ([]*dto.ChatRoomDTO, error)
	GetParticipation(ctx context.Context, roomID, userID uint64, roles []string) (*Participation, error)
	GetHistory(ctx context.Context, roomID, userID uint64, roles []string, cursor uint64, pageSize int) ([]*dto.ChatMessageDTO, error)

	SendMessage(ctx context.Context, senderID uint64, senderTier string, req *dto.SendMessageReq) (*dto.ChatMessageDTO, error)
	SendSystemMessage(ctx context.Context, roomID uint64, eventType, text string) error
	MarkRead(ctx context.Context, roomID, readerID uint64) error
	DeleteMessage(ctx context.Context, msgID, requesterID uint64) error
	EditMessage(ctx context.Context, msgID, requesterID uint64, text string) (*dto.ChatMessageDTO, error)

	SetImportant(ctx context.Context, roomID, userID uint64, important bool) error
	SetContactFlag(ctx context.Context, roomID, userID uint64) error
	PublishTyping(ctx context.Context, roomID, userID uint64, typing bool) error
	GetTotalUnread(ctx context.Context, userID uint64) (int64, error)
}

type chatServiceImpl struct {
	roomRepo    repository.ChatRoomRepo
	msgRepo     repository.ChatMessageRepo
	catalog     catalog.Client
	broadcaster Broadcaster
}

func NewChatService(roomRepo repository.ChatRoomRepo, msgRepo repository.ChatMessageRepo,
	catalogClient catalog.Client, broadcaster Broadcaster) ChatService {
	return &chatServiceImpl{
		roomRepo:    roomRepo,
		msgRepo:     msgRepo,
		catalog:     catalogClient,
		broadcaster: broadcaster,
	}
}

func oppositeSide(side string) string {
	if side == model.RoomSideBuyer {
		return model.RoomSideSeller
	}
	return model.RoomSideBuyer
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// GetOrCreateRoom 买家对一个在售房源惰性开启会话
func (s *chatServiceImpl) GetOrCreateRoom(ctx context.Context, buyerID uint64, buyerTier string, listingID uint64) (*dto.ChatRoomDTO, error) {
	room, err := s.getOrCreateRoom(ctx, buyerID, buyerTier, listingID)
	if err != nil {
		return nil, err
	}
	return toRoomDTO(room, buyerID), nil
}

func (s *chatServiceImpl) getOrCreateRoom(ctx context.Context, buyerID uint64, buyerTier string, listingID uint64) (*model.ChatRoom, error) {
	listing, err := s.catalog.GetListing(ctx, listingID)
	if err != nil {
		log.WarnContext(ctx, "房源快照获取失败", "listingID", listingID, "err", err)
		return nil, ErrListingNotFound
	}
	if listing.Status != catalog.ListingStatusLive {
		return nil, ErrListingNotFound
	}
	if listing.SellerID == buyerID {
		return nil, ErrInvalidParticipant
	}

	return s.roomRepo.GetOrCreate(ctx, &model.ChatRoom{
		ListingID:              listingID,
		BuyerID:                buyerID,
		SellerID:               listing.SellerID,
		BuyerSubscriptionTier:  buyerTier,
		SellerSubscriptionTier: listing.SellerTier,
	})
}

// GetRoomList 会话列表，己方置顶优先
func (s *chatServiceImpl) GetRoomList(ctx context.Context, userID uint64) ([]*dto.ChatRoomDTO, error) {
	rooms, err := s.roomRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.ChatRoomDTO, 0, len(rooms))
	for _, r := range rooms {
		res = append(res, toRoomDTO(r, userID))
	}
	return res, nil
}

// GetParticipation 每次受控操作前的参与校验。
// 平台巡查角色不是参与方，以旁观者身份只读接入。
func (s *chatServiceImpl) GetParticipation(ctx context.Context, roomID, userID uint64, roles []string) (*Participation, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, mapNotFound(err, ErrRoomNotFound)
	}

	if side := room.SideOf(userID); side != "" {
		return &Participation{Side: side}, nil
	}
	if hasRole(roles, consts.RoleModerator) {
		return &Participation{Spectator: true}, nil
	}
	return nil, UnauthorizedError
}

// GetHistory 历史消息：拉黑 / 已关闭的会话依旧可读，只降级为只读
func (s *chatServiceImpl) GetHistory(ctx context.Context, roomID, userID uint64, roles []string, cursor uint64, pageSize int) ([]*dto.ChatMessageDTO, error) {
	if _, err := s.GetParticipation(ctx, roomID, userID, roles); err != nil {
		return nil, err
	}

	msgs, err := s.msgRepo.ListByRoom(ctx, roomID, cursor, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.ChatMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, toMessageDTO(m))
	}
	return res, nil
}

// sendableRoom 发送前的会话校验：参与方、激活、未被对方拉黑
func (s *chatServiceImpl) sendableRoom(ctx context.Context, roomID, senderID uint64) (*model.ChatRoom, string, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, "", mapNotFound(err, ErrRoomNotFound)
	}
	side := room.SideOf(senderID)
	if side == "" {
		return nil, "", UnauthorizedError
	}
	if !room.IsActive {
		return nil, "", ErrRoomInactive
	}
	if room.BlockedAgainst(side) {
		return nil, "", ErrRoomBlocked
	}
	return room, side, nil
}

// SendMessage 发送消息：先落库（同事务维护未读计数），再广播，
// 最后向接收方推送角标更新。
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID uint64, senderTier string, req *dto.SendMessageReq) (*dto.ChatMessageDTO, error) {
	roomID := req.RoomID
	if roomID == 0 {
		if req.ListingID == 0 {
			return nil, ErrParamInvalid
		}
		room, err := s.getOrCreateRoom(ctx, senderID, senderTier, req.ListingID)
		if err != nil {
			return nil, err
		}
		roomID = room.ID
	}

	room, side, err := s.sendableRoom(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	msg, err := buildMessage(room.ID, senderID, req)
	if err != nil {
		return nil, err
	}
	if req.ReplyToMessageID != nil {
		if _, err = s.msgRepo.GetInRoom(ctx, room.ID, *req.ReplyToMessageID); err != nil {
			return nil, ErrReplyNotInRoom
		}
	}

	if err = s.msgRepo.Create(ctx, msg, oppositeSide(side)); err != nil {
		return nil, err
	}

	d := toMessageDTO(msg)
	if err = s.broadcaster.RoomEvent(ctx, room.ID, dto.WsEventNewMessage, d); err != nil {
		log.ErrorContext(ctx, "消息广播失败", "roomID", room.ID, "msgID", msg.ID, "err", err)
	}
	s.pushBadge(ctx, room.PeerID(senderID))

	return d, nil
}

// SendSystemMessage 系统消息（如报价达成），生而已读，不计未读
func (s *chatServiceImpl) SendSystemMessage(ctx context.Context, roomID uint64, eventType, text string) error {
	msg := &model.ChatMessage{
		RoomID:          roomID,
		MessageType:     model.MessageTypeSystem,
		MessageText:     &text,
		SystemEventType: &eventType,
	}
	if err := s.msgRepo.Create(ctx, msg, model.RoomSideBuyer); err != nil {
		return err
	}
	if err := s.broadcaster.RoomEvent(ctx, roomID, dto.WsEventNewMessage, toMessageDTO(msg)); err != nil {
		log.ErrorContext(ctx, "系统消息广播失败", "roomID", roomID, "err", err)
	}
	return nil
}

// MarkRead 全量置已读并清零己方未读。与并发发送安全：
// 取读标记之后落库的消息保持未读。
func (s *chatServiceImpl) MarkRead(ctx context.Context, roomID, readerID uint64) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return mapNotFound(err, ErrRoomNotFound)
	}
	side := room.SideOf(readerID)
	if side == "" {
		return UnauthorizedError
	}

	affected, err := s.msgRepo.MarkRead(ctx, roomID, readerID, side)
	if err != nil {
		return err
	}

	if affected > 0 {
		if err = s.broadcaster.RoomEvent(ctx, roomID, dto.WsEventMessageRead,
			&dto.WsMessageReadDTO{RoomID: roomID, ReaderID: readerID}); err != nil {
			log.ErrorContext(ctx, "已读回执广播失败", "roomID", roomID, "err", err)
		}
	}
	s.pushBadge(ctx, readerID)
	return nil
}

// DeleteMessage 仅发送者可删；打墓碑并回补接收方未读
func (s *chatServiceImpl) DeleteMessage(ctx context.Context, msgID, requesterID uint64) error {
	msg, err := s.msgRepo.GetByID(ctx, msgID)
	if err != nil {
		return mapNotFound(err, ErrMessageNotFound)
	}
	if msg.DeletedAt.Valid {
		return nil
	}
	if msg.SenderID == nil || *msg.SenderID != requesterID {
		return UnauthorizedError
	}

	room, err := s.roomRepo.GetByID(ctx, msg.RoomID)
	if err != nil {
		return mapNotFound(err, ErrRoomNotFound)
	}
	recipientSide := oppositeSide(room.SideOf(requesterID))

	if err = s.msgRepo.SoftDelete(ctx, msg.ID, recipientSide); err != nil {
		return err
	}

	if err = s.broadcaster.RoomEvent(ctx, msg.RoomID, dto.WsEventMessageDeleted,
		&dto.WsMessageDeletedDTO{RoomID: msg.RoomID, MessageID: msg.ID}); err != nil {
		log.ErrorContext(ctx, "删除广播失败", "roomID", msg.RoomID, "msgID", msg.ID, "err", err)
	}
	s.pushBadge(ctx, room.PeerID(requesterID))
	return nil
}

// EditMessage 仅发送者可编辑文本消息；历史接口为准，实时端下次拉取可见
func (s *chatServiceImpl) EditMessage(ctx context.Context, msgID, requesterID uint64, text string) (*dto.ChatMessageDTO, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrParamInvalid
	}

	msg, err := s.msgRepo.GetByID(ctx, msgID)
	if err != nil {
		return nil, mapNotFound(err, ErrMessageNotFound)
	}
	if msg.DeletedAt.Valid {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID == nil || *msg.SenderID != requesterID {
		return nil, UnauthorizedError
	}
	if msg.MessageType != model.MessageTypeText {
		return nil, ErrParamInvalid
	}

	if err = s.msgRepo.UpdateText(ctx, msgID, text); err != nil {
		return nil, err
	}

	now := time.Now()
	msg.MessageText = &text
	msg.EditedAt = &now
	return toMessageDTO(msg), nil
}

// SetImportant 按己方视角置顶会话
func (s *chatServiceImpl) SetImportant(ctx context.Context, roomID, userID uint64, important bool) error {
	side, err := s.participantSide(ctx, roomID, userID)
	if err != nil {
		return err
	}
	return s.roomRepo.SetImportant(ctx, roomID, side, important)
}

// SetContactFlag 买方请求联系方式 / 卖方确认共享
func (s *chatServiceImpl) SetContactFlag(ctx context.Context, roomID, userID uint64) error {
	side, err := s.participantSide(ctx, roomID, userID)
	if err != nil {
		return err
	}
	return s.roomRepo.SetContactFlag(ctx, roomID, side)
}

// PublishTyping 输入状态透传，不落库
func (s *chatServiceImpl) PublishTyping(ctx context.Context, roomID, userID uint64, typing bool) error {
	if _, err := s.participantSide(ctx, roomID, userID); err != nil {
		return err
	}
	event := dto.WsEventUserTyping
	if !typing {
		event = dto.WsEventUserStopTyping
	}
	return s.broadcaster.RoomEvent(ctx, roomID, event, &dto.WsTypingDTO{RoomID: roomID, UserID: userID})
}

// GetTotalUnread 角标未读总数
func (s *chatServiceImpl) GetTotalUnread(ctx context.Context, userID uint64) (int64, error) {
	return s.roomRepo.TotalUnread(ctx, userID)
}

func (s *chatServiceImpl) participantSide(ctx context.Context, roomID, userID uint64) (string, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return "", mapNotFound(err, ErrRoomNotFound)
	}
	side := room.SideOf(userID)
	if side == "" {
		return "", UnauthorizedError
	}
	return side, nil
}

// pushBadge 推送用户级未读总数，失败只记日志
func (s *chatServiceImpl) pushBadge(ctx context.Context, userID uint64) {
	total, err := s.roomRepo.TotalUnread(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "未读总数聚合失败", "userID", userID, "err", err)
		return
	}
	if err = s.broadcaster.UserEvent(ctx, userID, dto.WsEventChatCountUpdate,
		&dto.ChatCountUpdateDTO{Count: total, Timestamp: time.Now()}); err != nil {
		log.ErrorContext(ctx, "角标推送失败", "userID", userID, "err", err)
	}
}

// buildMessage 按消息类型校验载荷：每种类型有且仅有其对应载荷
func buildMessage(roomID, senderID uint64, req *dto.SendMessageReq) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		RoomID:           roomID,
		SenderID:         &senderID,
		MessageType:      req.MessageType,
		ReplyToMessageID: req.ReplyToMessageID,
	}

	switch req.MessageType {
	case model.MessageTypeText:
		if strings.TrimSpace(req.MessageText) == "" || req.MediaURL != "" {
			return nil, ErrParamInvalid
		}
		msg.MessageText = &req.MessageText

	case model.MessageTypeImage:
		if req.MediaURL == "" || req.MediaMimeType == "" || req.MessageText != "" {
			return nil, ErrParamInvalid
		}
		msg.MediaURL = &req.MediaURL
		msg.MediaMimeType = &req.MediaMimeType
		if req.MediaThumbnail != "" {
			msg.MediaThumbnailURL = &req.MediaThumbnail
		}
		if req.MediaSize > 0 {
			msg.MediaSize = &req.MediaSize
		}
		if req.MediaWidth > 0 && req.MediaHeight > 0 {
			msg.MediaWidth = &req.MediaWidth
			msg.MediaHeight = &req.MediaHeight
		}

	case model.MessageTypeLocation:
		if req.Latitude == nil || req.Longitude == nil || req.MessageText != "" || req.MediaURL != "" {
			return nil, ErrParamInvalid
		}
		msg.Latitude = req.Latitude
		msg.Longitude = req.Longitude

	default:
		return nil, ErrParamInvalid
	}

	return msg, nil
}

func toRoomDTO(room *model.ChatRoom, viewerID uint64) *dto.ChatRoomDTO {
	d := &dto.ChatRoomDTO{}
	_ = copier.Copy(d, room)

	if room.SideOf(viewerID) == model.RoomSideBuyer {
		d.UnreadCount = room.UnreadCountBuyer
		d.IsImportant = room.IsImportantBuyer
	} else {
		d.UnreadCount = room.UnreadCountSeller
		d.IsImportant = room.IsImportantSeller
	}
	return d
}

func toMessageDTO(msg *model.ChatMessage) *dto.ChatMessageDTO {
	d := &dto.ChatMessageDTO{}
	_ = copier.Copy(d, msg)
	return d
}

func mapNotFound(err error, to error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return to
	}
	return err
}
