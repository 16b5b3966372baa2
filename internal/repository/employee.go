package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yueban/yueban/internal/database"
	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
)

// PostgresEmployeeRepository 基于 PostgreSQL 的员工仓储
type PostgresEmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db *database.DB) *PostgresEmployeeRepository {
	return &PostgresEmployeeRepository{db: db}
}

// ListActive 返回全部在职员工，排休与配额覆盖一并加载
func (r *PostgresEmployeeRepository) ListActive(ctx context.Context) ([]*model.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, tier, active, quota_override
		FROM employees
		WHERE active = true
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("查询员工列表失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历员工列表失败: %w", err)
	}

	for _, emp := range employees {
		if err := r.loadOffShifts(ctx, emp); err != nil {
			return nil, err
		}
	}
	return employees, nil
}

// Get 按 ID 查询员工
func (r *PostgresEmployeeRepository) Get(ctx context.Context, id string) (*model.Employee, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, tier, active, quota_override
		FROM employees
		WHERE id = $1`, id)

	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("员工 %s 不存在", id))
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadOffShifts(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

// loadOffShifts 加载员工的固定排休
func (r *PostgresEmployeeRepository) loadOffShifts(ctx context.Context, emp *model.Employee) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, kind
		FROM employee_off_shifts
		WHERE employee_id = $1
		ORDER BY day, kind`, emp.ID)
	if err != nil {
		return fmt.Errorf("查询员工 %s 排休失败: %w", emp.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var day int
		var kind string
		if err := rows.Scan(&day, &kind); err != nil {
			return fmt.Errorf("解析排休记录失败: %w", err)
		}
		emp.OffShifts = append(emp.OffShifts, model.ShiftSlot{Day: day, Kind: model.SlotKind(kind)})
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmployee(row rowScanner) (*model.Employee, error) {
	var emp model.Employee
	var tier string
	var override sql.NullInt64
	if err := row.Scan(&emp.ID, &emp.Name, &tier, &emp.Active, &override); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("解析员工记录失败: %w", err)
	}
	emp.Tier = model.ExperienceTier(tier)
	if override.Valid {
		v := int(override.Int64)
		emp.QuotaOverride = &v
	}
	return &emp, nil
}
