package mgo

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config represents the MongoDB configuration.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
}

var (
	mgoOnce sync.Once
	mgoMgr  *Manager
)

type Manager struct {
	client *mongo.Client
	db     *mongo.Database
}

// Init connects and pings the deployment (singleton, first call wins).
func Init(c Config) error {
	var initErr error
	mgoOnce.Do(func() {
		if c.URI == "" {
			initErr = errors.New("mongo uri is required")
			return
		}
		opts := options.Client().ApplyURI(c.URI)
		if c.MaxPoolSize > 0 {
			opts.SetMaxPoolSize(c.MaxPoolSize)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cli, err := mongo.Connect(ctx, opts)
		if err != nil {
			initErr = errors.WithStack(err)
			return
		}
		if err := cli.Ping(ctx, nil); err != nil {
			initErr = errors.WithStack(err)
			return
		}
		mgoMgr = &Manager{client: cli, db: cli.Database(c.Database)}
	})
	return initErr
}

// DB returns the shared database handle.
func DB() *mongo.Database {
	if mgoMgr == nil {
		panic("mongo not initialized, call Init first")
	}
	return mgoMgr.db
}

// Close disconnects the shared client.
func Close(ctx context.Context) error {
	if mgoMgr != nil && mgoMgr.client != nil {
		return mgoMgr.client.Disconnect(ctx)
	}
	return nil
}
