package cli

import (
	"context"
	"fmt"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/config"
	"github.com/MrEthical07/goAccount/internal/db"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dialTimeout = 5 * time.Second

// runtime holds the backing stores and the engine built on them.
type runtime struct {
	db     *gorm.DB
	redis  redis.UniversalClient
	engine *goAccount.Engine
	audit  *audit.FileSink
}

func openRuntime(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*runtime, error) {
	conn, err := db.Open(cfg.Database.DSN, log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{db: conn}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			rt.close()
			return nil, err
		}
	}

	rt.redis = cfg.Redis.Client()
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rt.redis.Ping(pingCtx).Err(); err != nil {
		rt.close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	builder := goAccount.New().
		WithConfig(cfg.Engine).
		WithRedis(rt.redis).
		WithDatabase(conn).
		WithMailer(mail.NewLogMailer(log)).
		WithLogger(log)
	if cfg.AuditLog.Path != "" {
		rt.audit = audit.NewFileSink(cfg.AuditLog)
		builder = builder.WithAuditSink(rt.audit)
	}

	rt.engine, err = builder.Build()
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) pingDatabase(ctx context.Context) error {
	sqlDB, err := rt.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (rt *runtime) pingRedis(ctx context.Context) error {
	return rt.redis.Ping(ctx).Err()
}

func (rt *runtime) close() {
	if rt.engine != nil {
		rt.engine.Close()
	}
	if rt.audit != nil {
		_ = rt.audit.Close()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
