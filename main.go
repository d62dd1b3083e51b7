package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/logging"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Environment)

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, "messaging-service")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer shutdownTracing(context.Background())

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info().Str("mode", rabbitmq.Mode(publisher)).Msg("event publisher ready")

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, "messaging-service", cfg.Environment)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	participantRepo := repositories.NewParticipantRepo(database)
	feedRepo := repositories.NewFeedRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()

	conversationHandler := handlers.NewConversationHandler(conversationRepo, participantRepo, feedRepo, userRepo, hub, audit)
	messageHandler := handlers.NewMessageHandler(conversationRepo, messageRepo, participantRepo, userRepo, hub, audit)
	searchHandler := handlers.NewSearchHandler(messageRepo, userRepo, feedRepo)
	socketHandler := ws.NewSocketHandler(hub, conversationRepo, messageRepo, participantRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messaging-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	auth := middleware.Auth(userRepo)

	router.GET("/conversations", auth, conversationHandler.GetFeed)
	router.POST("/conversations", auth, conversationHandler.CreateGroup)
	router.POST("/conversations/direct", auth, conversationHandler.ResolveDirect)
	router.GET("/conversations/:conversation_id", auth, conversationHandler.GetConversation)
	router.GET("/conversations/:conversation_id/peers", auth, conversationHandler.ListPeers)
	router.POST("/conversations/:conversation_id/pin", auth, conversationHandler.SetPinned)
	router.POST("/conversations/:conversation_id/archive", auth, conversationHandler.SetArchived)
	router.POST("/conversations/:conversation_id/seen", auth, conversationHandler.MarkSeen)
	router.GET("/conversations/:conversation_id/messages", auth, messageHandler.ListMessages)
	router.POST("/conversations/:conversation_id/messages", auth, messageHandler.PostMessage)
	router.POST("/messages", auth, messageHandler.CreateWithMessage)
	router.DELETE("/messages/:message_id", auth, messageHandler.DeleteMessage)
	router.GET("/search", auth, searchHandler.Search)

	router.GET("/ws", auth, socketHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	log.Info().Str("port", cfg.Port).Msg("messaging-service listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
