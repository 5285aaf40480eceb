package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sifan077/QuickLink/config"
	"github.com/sifan077/QuickLink/internal/app/repository"
	"github.com/sifan077/QuickLink/internal/app/service"
	infraKafka "github.com/sifan077/QuickLink/internal/infra/kafka"
	infraMongo "github.com/sifan077/QuickLink/internal/infra/mongo"
	infraNATS "github.com/sifan077/QuickLink/internal/infra/nats"
	infraPostgres "github.com/sifan077/QuickLink/internal/infra/postgres"
	infraRedis "github.com/sifan077/QuickLink/internal/infra/redis"
	"go.uber.org/zap"
)

// resources tracks connections opened during startup so they can be closed
// in reverse order on shutdown.
type resources struct {
	log     *zap.Logger
	closers []func()

	redis    *goredis.Client
	natsConn *nats.Conn
	js       nats.JetStreamContext
}

func (r *resources) onClose(fn func()) {
	r.closers = append(r.closers, fn)
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// redisClient connects lazily so the snapshot backend and the rate limiter share one client.
func (r *resources) redisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if r.redis != nil {
		return r.redis, nil
	}
	client, err := infraRedis.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.redis = client
	r.onClose(func() { _ = client.Close() })
	r.log.Info("connected to redis", zap.String("addr", client.Options().Addr))
	return client, nil
}

func (r *resources) nats(cfg config.NATSConfig, name string) (*nats.Conn, nats.JetStreamContext, error) {
	if r.natsConn != nil {
		return r.natsConn, r.js, nil
	}
	conn, js, err := infraNATS.Connect(cfg, name)
	if err != nil {
		return nil, nil, err
	}
	r.natsConn, r.js = conn, js
	r.onClose(func() { _ = conn.Drain() })
	r.log.Info("connected to nats", zap.String("url", infraNATS.URL(cfg)))
	return conn, js, nil
}

// openRepository selects the durable backend for the link snapshot.
func (r *resources) openRepository(ctx context.Context, cfg *config.Config) (repository.SnapshotRepository, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		r.log.Warn("using in-memory link storage, links are lost on restart")
		return repository.NewMemorySnapshotRepository(), nil

	case config.BackendFile:
		return repository.NewFileSnapshotRepository(cfg.Store.FilePath), nil

	case config.BackendRedis:
		client, err := r.redisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisSnapshotRepository(client, cfg.Store.Key), nil

	case config.BackendPostgres:
		if err := infraPostgres.MigrateSnapshotTable(ctx, cfg.Postgres); err != nil {
			return nil, err
		}
		pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		r.onClose(pool.Close)
		r.log.Info("connected to postgres", zap.String("host", cfg.Postgres.Host), zap.String("database", cfg.Postgres.Database))
		return repository.NewPostgresSnapshotRepository(pool, cfg.Store.Key), nil

	case config.BackendMongo:
		client, err := infraMongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		r.onClose(func() { _ = client.Disconnect(context.Background()) })
		r.log.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
		return repository.NewMongoSnapshotRepository(client.Collection(repository.MongoCollectionName), cfg.Store.Key), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openPublisher returns nil when link events are disabled.
func (r *resources) openPublisher(cfg *config.Config) (service.EventPublisher, error) {
	switch cfg.Events.Publisher {
	case config.PublisherNone, "":
		return nil, nil

	case config.PublisherNATS:
		_, js, err := r.nats(cfg.NATS, cfg.App.Name)
		if err != nil {
			return nil, err
		}
		if err := infraNATS.EnsureLinkStream(js); err != nil {
			return nil, err
		}
		return service.NewNATSEventPublisher(js), nil

	case config.PublisherKafka:
		writer := infraKafka.NewWriter(cfg.Kafka)
		r.onClose(func() {
			if err := writer.Close(); err != nil {
				r.log.Warn("failed to close kafka writer", zap.Error(err))
			}
		})
		return service.NewKafkaEventPublisher(writer), nil

	default:
		return nil, fmt.Errorf("unknown event publisher %q", cfg.Events.Publisher)
	}
}
