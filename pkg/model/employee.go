// Package model 定义月度排班引擎的核心数据模型
package model

import "sort"

// ExperienceTier 经验级别
type ExperienceTier string

const (
	TierHigh ExperienceTier = "high" // 高年资
	TierLow  ExperienceTier = "low"  // 低年资
)

// Employee 员工的月度快照，引擎只读
type Employee struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name,omitempty" db:"name"`
	Tier          ExperienceTier `json:"tier" db:"tier"`
	Active        bool           `json:"active" db:"active"`
	OffShifts     []ShiftSlot    `json:"off_shifts,omitempty" db:"off_shifts"`
	QuotaOverride *int           `json:"quota_override,omitempty" db:"quota_override"`
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Active
}

// HasOffShift 检查班位是否在员工的固定排休集合中
func (e *Employee) HasOffShift(s ShiftSlot) bool {
	for _, off := range e.OffShifts {
		if off == s {
			return true
		}
	}
	return false
}

// IsHighTier 检查员工是否为高年资
func (e *Employee) IsHighTier() bool {
	return e.Tier == TierHigh
}

// ActiveEmployees 过滤出在职员工并按 ID 升序排序（确定性顺序）
func ActiveEmployees(employees []*Employee) []*Employee {
	active := make([]*Employee, 0, len(employees))
	for _, e := range employees {
		if e.IsActive() {
			active = append(active, e)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].ID < active[j].ID
	})
	return active
}
