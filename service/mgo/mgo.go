package mgo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI         string
	Database    string
	Username    string
	Password    string
	MaxPoolSize uint64
}

var (
	mgoOnce sync.Once
	db      *mongo.Database
	client  *mongo.Client
)

// Init connects the process-wide mongo client (singleton).
func Init(ctx context.Context, cfg *Config) error {
	var initErr error
	mgoOnce.Do(func() {
		opts := options.Client().ApplyURI(cfg.URI)
		if cfg.MaxPoolSize > 0 {
			opts.SetMaxPoolSize(cfg.MaxPoolSize)
		}
		if cfg.Username != "" {
			opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
		}

		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cli, err := mongo.Connect(cctx, opts)
		if err != nil {
			initErr = err
			return
		}
		if err := cli.Ping(cctx, readpref.Primary()); err != nil {
			initErr = err
			return
		}
		client = cli
		db = cli.Database(cfg.Database)
	})
	return initErr
}

func GetDB() *mongo.Database {
	if db == nil {
		panic("mongo not initialized, call Init first")
	}
	return db
}

func Close(ctx context.Context) error {
	if client != nil {
		return client.Disconnect(ctx)
	}
	return nil
}
