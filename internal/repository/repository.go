// Package repository 提供员工与排班数据的持久化访问
package repository

import (
	"context"

	"github.com/yueban/yueban/pkg/model"
)

// EmployeeRepository 员工数据访问接口
type EmployeeRepository interface {
	// ListActive 返回全部在职员工（含排休与配额覆盖）
	ListActive(ctx context.Context) ([]*model.Employee, error)
	// Get 按 ID 查询员工
	Get(ctx context.Context, id string) (*model.Employee, error)
}

// ScheduleRepository 排班结果数据访问接口
type ScheduleRepository interface {
	// Save 保存一份月度排班，返回记录 ID
	Save(ctx context.Context, a *model.Assignment, solver string, objective float64) (string, error)
	// Latest 返回指定月份最新的排班
	Latest(ctx context.Context, year, month int) (*model.Assignment, error)
}
