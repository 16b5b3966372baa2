// Package database 封装 PostgreSQL 连接管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/yueban/yueban/internal/config"
	"github.com/yueban/yueban/pkg/logger"
)

// DB 数据库连接封装
type DB struct {
	*sql.DB
}

// Connect 建立数据库连接并验证可用性
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接验证失败: %w", err)
	}

	logger.Get().Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Msg("数据库连接成功")

	return &DB{DB: db}, nil
}

// HealthCheck 检查数据库可用性
func (d *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.PingContext(ctx)
}

// Close 关闭连接池
func (d *DB) Close() error {
	logger.Get().Info().Msg("关闭数据库连接")
	return d.DB.Close()
}
