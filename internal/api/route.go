package api

import (
	"Haggle/internal/api/middleware"
	"Haggle/internal/pkg/consts"
	"Haggle/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		chatGroup := apiGroup.Group("/chat")
		{
			// 实时通道：token 走查询参数，升级前鉴权
			chatGroup.GET("/ws", group.WsHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/rooms", group.ChatHandler.CreateRoom)
				authGroup.GET("/rooms", group.ChatHandler.GetRoomList)
				authGroup.GET("/rooms/:room_id/messages", group.ChatHandler.GetHistory)
				authGroup.POST("/rooms/:room_id/messages", group.ChatHandler.SendMessage)
				authGroup.POST("/rooms/:room_id/read", group.ChatHandler.MarkRead)
				authGroup.PUT("/rooms/:room_id/important", group.ChatHandler.SetImportant)
				authGroup.POST("/rooms/:room_id/contact", group.ChatHandler.SetContactFlag)
				authGroup.GET("/rooms/:room_id/offers", group.OfferHandler.ListByRoom)
				authGroup.GET("/unread", group.ChatHandler.GetUnreadCount)

				authGroup.PUT("/messages/:message_id", group.ChatHandler.EditMessage)
				authGroup.DELETE("/messages/:message_id", group.ChatHandler.DeleteMessage)

				authGroup.POST("/rooms/:room_id/block", group.ModerationHandler.SetBlocked)
				authGroup.POST("/rooms/:room_id/report", group.ModerationHandler.Report)
			}

			moderatorGroup := chatGroup.Group("")
			moderatorGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(consts.RoleModerator))
			{
				moderatorGroup.GET("/rooms/:room_id/moderation-events", group.ModerationHandler.ListEvents)
			}
		}

		offerGroup := apiGroup.Group("/offers")
		offerGroup.Use(middleware.AuthMiddleware())
		{
			offerGroup.POST("", group.OfferHandler.Propose)
			offerGroup.POST("/:offer_id/respond", group.OfferHandler.Respond)
			offerGroup.POST("/:offer_id/withdraw", group.OfferHandler.Withdraw)
			offerGroup.POST("/:offer_id/viewed", group.OfferHandler.MarkViewed)
		}
	}

	return r
}
