package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HelpLink/config"
	"HelpLink/logger"
	"HelpLink/middleware"
	"HelpLink/service/realtime"
	"HelpLink/service/realtime/handlers"
	"HelpLink/service/storage"
	"HelpLink/store"
	"HelpLink/tools/ids"
	"HelpLink/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	ids.SetNodeID(cfg.NodeID)
	nodeID := "gw-" + ids.GenerateString()

	// Presence is optional; the gateway runs without Redis.
	if cfg.RedisAddr != "" {
		if err := storage.InitRedis(storage.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}); err != nil {
			logger.Warn("redis unavailable, presence disabled", zap.Error(err))
		}
	}

	var (
		messages store.MessageStore
		users    store.UserStore
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ms, err := store.NewMongoStore(ctx, &store.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
		cancel()
		if err != nil {
			logger.Error("connect mongodb", zap.Error(err))
			os.Exit(1)
		}
		messages, users = ms, ms
	} else {
		logger.Warn("no mongo uri configured, using in-memory store")
		mem := store.NewMemStore()
		messages, users = mem, mem
	}

	reg := realtime.NewRegistry(realtime.Config{
		HeartbeatEvery: cfg.HeartbeatEvery,
		SweepEvery:     cfg.SweepEvery,
		MaxIdle:        cfg.MaxIdle,
		MaxConns:       cfg.MaxConns,
		SendQueueSize:  cfg.SendQueueSize,
	})
	pipe := realtime.NewPipeline(messages, users, reg, cfg.MaxBodyLen)

	jwtOpts := security.DefaultOptions([]byte(cfg.JWTSecret))
	verify := func(token string) (string, error) { return security.Verify(jwtOpts, token) }

	srv := realtime.NewServer(reg, pipe, verify, nodeID, cfg.PresenceTTL)
	handlers.RegisterAll(srv.Disp())
	reg.Start()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS())
	srv.Routes(r)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Info("gateway listening", zap.String("addr", cfg.HTTPAddr), zap.String("node", nodeID))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	reg.Shutdown()
	_ = storage.CloseRedis()
}
