package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"github.com/homeproapp/realtorapp-server-sub001/global/config"
	"github.com/homeproapp/realtorapp-server-sub001/logger"
	midsec "github.com/homeproapp/realtorapp-server-sub001/middleware/security"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/api"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/seq"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/service/mgo"
	"github.com/homeproapp/realtorapp-server-sub001/service/push"
	"github.com/homeproapp/realtorapp-server-sub001/service/relay"
	rds "github.com/homeproapp/realtorapp-server-sub001/service/storage/redis"
	"github.com/homeproapp/realtorapp-server-sub001/tools/ids"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	ids.SetNodeID(cfg.SnowNode)

	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Errorf("init store: %v", err)
		os.Exit(1)
	}

	hub := push.NewHub(cfg.Push.Shards, cfg.Push.QueueSize)
	ws := push.NewWSServer(hub, cfg.Push.SendQueueSize)

	var dispatch messaging.Dispatcher = hub
	var nc *nats.Conn
	if cfg.Nats.URL != "" {
		nc, err = nats.Connect(cfg.Nats.URL, nats.Name("realtor-messaging-"+cfg.NodeID))
		if err != nil {
			logger.Errorf("connect nats: %v", err)
			os.Exit(1)
		}
		rd := relay.NewDispatcher(hub, nc, cfg.Nats.Subject, cfg.NodeID)
		if _, err := rd.Subscribe(); err != nil {
			logger.Errorf("subscribe relay: %v", err)
			os.Exit(1)
		}
		dispatch = rd
		logger.Infof("relay active subject=%s node=%s", rd.Subject, cfg.NodeID)
	}

	svc := messaging.NewService(st, dispatch)

	engine := gin.New()
	engine.Use(gin.Recovery())
	h := api.NewHandler(svc, ws)
	h.RegisterRoutes(engine, midsec.DefaultOptions([]byte(cfg.JWTSecret)))
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Infof("listening on %s", addr)
		if err := engine.Run(addr); err != nil {
			logger.Errorf("http server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	if nc != nil {
		nc.Close()
	}
	_ = rds.Close()
	_ = mgo.Close(ctx)
}

// buildStore picks the persistence backend. With mongo and redis
// configured it runs the durable store plus the segment seq allocator;
// otherwise a single-node in-memory store.
func buildStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	if cfg.Mongo.URI == "" {
		logger.Warn("mongo not configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	if err := mgo.Init(ctx, &mgo.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	}); err != nil {
		return nil, err
	}
	if err := rds.Init(rds.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}); err != nil {
		return nil, err
	}
	alloc := &seq.Allocator{
		Rdb: rds.GetRedis(),
		DAO: &seq.DAO{DB: mgo.GetDB()},
	}
	return store.NewMongoStore(mgo.GetDB(), alloc), nil
}
