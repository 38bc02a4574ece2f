package cmd

import (
	"fmt"

	"github.com/jmehdipour/officer-portal/internal/db"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func openMySQL() (*sqlx.DB, error) {
	mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.PoolOptsFrom(cfg.MySQL))
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	return mysqlDB, nil
}

// openClickHouse returns nil when ClickHouse is unreachable; analytics
// endpoints then answer 503 and the dashboard reports zero latency.
func openClickHouse() *sqlx.DB {
	chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
	if err != nil {
		logger.Log.Warn("clickhouse unavailable, analytics disabled", zap.Error(err))
		return nil
	}
	return chDB
}

// openRedis returns nil when Redis is unreachable; rate limiting and login
// throttling are then off.
func openRedis() *redis.Client {
	rdb, err := db.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		return nil
	}
	return rdb
}
