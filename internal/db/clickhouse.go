package db

import (
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

// NewClickHouseConnection opens the analytics store holding query_events.
// DSN e.g. clickhouse://default:@localhost:9000/portal?dial_timeout=5s&compress=true
func NewClickHouseConnection(dsn string, opts PoolOpts) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty ClickHouse DSN")
	}
	return open("clickhouse", dsn, opts, 3*time.Second)
}
