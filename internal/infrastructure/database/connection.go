package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/recomarket/recomarket-backend/internal/infrastructure/config"
)

// Connection wraps the pgx connection pool and its database/sql view. The
// repositories run on the *sql.DB handle; the pool is kept for health checks
// and pool statistics.
type Connection struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	logger *zap.Logger
}

// Connect creates a connection pool and verifies it with a ping
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("database connected",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return &Connection{pool: pool, db: db, logger: logger}, nil
}

// DB returns the database/sql handle the repositories use
func (c *Connection) DB() *sql.DB {
	return c.db
}

// HealthCheck verifies the pool can reach the database
func (c *Connection) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Stats reports current pool utilization
func (c *Connection) Stats() map[string]interface{} {
	s := c.pool.Stat()
	return map[string]interface{}{
		"total_conns":    s.TotalConns(),
		"idle_conns":     s.IdleConns(),
		"acquired_conns": s.AcquiredConns(),
	}
}

// Close releases both handles
func (c *Connection) Close() {
	if err := c.db.Close(); err != nil {
		c.logger.Warn("failed to close sql handle", zap.Error(err))
	}
	c.pool.Close()
}
