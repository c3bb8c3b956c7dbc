package handler

import (
	"Haggle/internal/pkg/response"
	"Haggle/internal/pkg/security"
	"Haggle/internal/pkg/ws"
	"Haggle/internal/service"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	hub         *ws.Hub
	chatService service.ChatService
}

func NewWsHandler(hub *ws.Hub, chatService service.ChatService) *WsHandler {
	return &WsHandler{hub: hub, chatService: chatService}
}

// Connect 建立实时连接。浏览器的 WebSocket 不带自定义头，
// token 走查询参数，升级前完成鉴权。
func (s *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	client := ws.NewClient(c.Request.Context(), s.hub, conn,
		claims.UserID, claims.Tier, claims.Roles, s.chatService)
	s.hub.Register(client)

	log.Info("用户 WS 连接已建立", "userID", claims.UserID)

	go client.WritePump()
	client.ReadPump()
}
