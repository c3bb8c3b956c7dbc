package wire

import (
	"Haggle/internal/api"
	"Haggle/internal/api/config"
	"Haggle/internal/api/handler"
	"Haggle/internal/job"
	"Haggle/internal/pkg/catalog"
	"Haggle/internal/pkg/cron"
	"Haggle/internal/pkg/kafka"
	pkgmongo "Haggle/internal/pkg/mongo"
	"Haggle/internal/pkg/redis"
	"Haggle/internal/pkg/ws"
	"Haggle/internal/repository"
	"Haggle/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router   *gin.Engine
	DB       *gorm.DB
	Hub      *ws.Hub
	CronMgr  *cron.Manager
	Producer *kafka.Producer
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	roomRepo := repository.NewChatRoomRepo(db)
	msgRepo := repository.NewChatMessageRepo(db)
	offerRepo := repository.NewListingOfferRepo(db)
	auditRepo := pkgmongo.NewModerationEventRepo(mongoDB)

	catalogClient := catalog.NewClient(cfg.Catalog)
	eventBus := redis.NewEventBus()

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	chatService := service.NewChatService(roomRepo, msgRepo, catalogClient, eventBus)
	offerService := service.NewOfferService(offerRepo, roomRepo, chatService, catalogClient,
		eventBus, producer, time.Duration(cfg.Offer.TTLHours)*time.Hour)
	moderationService := service.NewModerationService(roomRepo, auditRepo, producer)

	hub := ws.NewHub()

	handlers := &api.HandlersGroup{
		ChatHandler:       handler.NewChatHandler(chatService),
		OfferHandler:      handler.NewOfferHandler(offerService),
		ModerationHandler: handler.NewModerationHandler(moderationService),
		WsHandler:         handler.NewWsHandler(hub, chatService),
	}

	router := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(cfg.Cron,
		job.NewOfferExpiryJob(offerService),
		job.NewListingRoomJob(roomRepo, catalogClient, eventBus))

	return &ApplicationContainer{
		Router:   router,
		DB:       db,
		Hub:      hub,
		CronMgr:  cronMgr,
		Producer: producer,
	}, nil
}
