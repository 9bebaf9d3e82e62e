package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"tripchat/global"
	"tripchat/logger"
	"tripchat/middleware"
	"tripchat/service/api"
	"tripchat/service/auth"
	"tripchat/service/bus"
	"tripchat/service/chat"
	"tripchat/service/kafka"
	"tripchat/service/mgo"
	"tripchat/service/notify"
	"tripchat/service/storage"
	redisstore "tripchat/service/storage/redis"
	"tripchat/service/store"
	"tripchat/tools/ids"
)

func main() {
	cfg := global.Load()
	ids.SetNodeID(cfg.Server.NodeID)

	if err := redisstore.Init(redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}); err != nil {
		logger.Errorf("[boot] redis init: %v", err)
		return
	}
	defer redisstore.Close()

	if err := mgo.Init(mgo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	}); err != nil {
		logger.Errorf("[boot] mongo init: %v", err)
		return
	}
	defer mgo.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := store.NewPool(ctx, cfg.Postgres.URL)
	cancel()
	if err != nil {
		logger.Errorf("[boot] postgres init: %v", err)
		return
	}
	defer pool.Close()

	messages := store.NewMessages(mgo.DB())
	idxCtx, idxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := messages.EnsureIndexes(idxCtx); err != nil {
		logger.Warnf("[boot] message indexes: %v", err)
	}
	idxCancel()

	users := store.NewUsers(pool)
	rooms := store.NewRooms(pool)
	presence := storage.NewPresenceStore(redisstore.Client(), cfg.Chat.PresenceTTL, cfg.Chat.TypingTTL)

	eventBus, err := buildBus(cfg)
	if err != nil {
		logger.Errorf("[boot] bus init: %v", err)
		return
	}
	defer eventBus.Close()

	verifier := auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Alg, users)
	registry := chat.NewRegistry()
	router := chat.NewRouter(cfg.Server.GatewayID, rooms, messages, presence, eventBus)
	dispatcher := notify.NewDispatcher(registry, eventBus)

	gateway := chat.NewServer(chat.Conf{
		GatewayID:     cfg.Server.GatewayID,
		SendQueueSize: cfg.Chat.SendQueueSize,
		WriteTimeout:  cfg.Chat.WriteTimeout,
	}, verifier, registry, router, dispatcher)

	if cfg.Kafka.Enabled {
		go func() {
			err := kafka.RunConsumerGroup(context.Background(), cfg.Kafka,
				[]string{cfg.Kafka.NotificationTopic}, notify.NewFeedHandler(eventBus))
			if err != nil {
				logger.Errorf("[boot] kafka feed consumer: %v", err)
			}
		}()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLog())
	api.RegisterRoutes(engine, api.Deps{
		Verifier:     verifier,
		Gateway:      gateway,
		Rooms:        rooms,
		Messages:     messages,
		HistoryLimit: int64(cfg.Chat.HistoryLimit),
	})

	logger.Infof("[boot] gateway %s listening on %s (bus=%s)", cfg.Server.GatewayID, cfg.Server.Addr, cfg.Bus.Driver)
	if err := engine.Run(cfg.Server.Addr); err != nil {
		logger.Errorf("[boot] server: %v", err)
	}
}

func buildBus(cfg *global.Config) (bus.Bus, error) {
	switch cfg.Bus.Driver {
	case "nats":
		return bus.NewNatsBus(bus.NatsConfig{
			Servers: cfg.Nats.Servers,
			Name:    cfg.Nats.Name,
		})
	default:
		return bus.NewRedisBus(redisstore.Client()), nil
	}
}
