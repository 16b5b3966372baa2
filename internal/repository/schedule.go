package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yueban/yueban/internal/database"
	"github.com/yueban/yueban/pkg/model"
)

// PostgresScheduleRepository 基于 PostgreSQL 的排班仓储
type PostgresScheduleRepository struct {
	db *database.DB
}

// NewScheduleRepository 创建排班仓储
func NewScheduleRepository(db *database.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

// Save 保存一份月度排班，排班网格以 JSON 形式落库
func (r *PostgresScheduleRepository) Save(ctx context.Context, a *model.Assignment, solver string, objective float64) (string, error) {
	grid, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("序列化排班失败: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, year, month, grid, solver, objective, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, a.Year, a.Month, grid, solver, objective, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("保存排班失败: %w", err)
	}
	return id, nil
}

// Latest 返回指定月份最新保存的排班，不存在时返回 nil
func (r *PostgresScheduleRepository) Latest(ctx context.Context, year, month int) (*model.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT grid
		FROM schedules
		WHERE year = $1 AND month = $2
		ORDER BY created_at DESC
		LIMIT 1`, year, month)

	var grid []byte
	if err := row.Scan(&grid); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("查询排班失败: %w", err)
	}

	var a model.Assignment
	if err := json.Unmarshal(grid, &a); err != nil {
		return nil, fmt.Errorf("反序列化排班失败: %w", err)
	}
	return &a, nil
}
