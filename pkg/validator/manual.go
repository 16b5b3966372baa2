// Package validator 提供排班与手工分配的校验
package validator

import (
	"fmt"

	"github.com/yueban/yueban/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictInactive     ConflictType = "inactive"      // 员工不在职
	ConflictOffShift     ConflictType = "off_shift"     // 固定排休
	ConflictSameDay      ConflictType = "same_day"      // 同日双班
	ConflictPostNight    ConflictType = "post_night"    // 昨夜夜班后出勤
	ConflictNextDay      ConflictType = "next_day"      // 夜班次日已有班
	ConflictSlotOccupied ConflictType = "slot_occupied" // 班位已被占用
	ConflictOutOfMonth   ConflictType = "out_of_month"  // 班位不在本月
	ConflictUnknown      ConflictType = "unknown"       // 员工不存在
)

// Conflict 单个冲突
type Conflict struct {
	Type       ConflictType    `json:"type"`
	EmployeeID string          `json:"employee_id"`
	Slot       model.ShiftSlot `json:"slot"`
	Message    string          `json:"message"`
}

// ValidateManual 校验手工分配是否违反业务规则，返回全部冲突
//
// 供展示层在用户把员工拖入班位前做即时校验；
// 空冲突列表表示该分配可以安全钉入
func ValidateManual(m *model.Month, employees []*model.Employee, a *model.Assignment, empID string, slot model.ShiftSlot) []Conflict {
	var conflicts []Conflict

	add := func(t ConflictType, format string, args ...interface{}) {
		conflicts = append(conflicts, Conflict{
			Type:       t,
			EmployeeID: empID,
			Slot:       slot,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	if !m.Contains(slot) {
		add(ConflictOutOfMonth, "班位 %s 不在 %s 月内", slot, m.Key())
		return conflicts
	}

	var emp *model.Employee
	for _, e := range employees {
		if e.ID == empID {
			emp = e
			break
		}
	}
	if emp == nil {
		add(ConflictUnknown, "员工 %s 不存在", empID)
		return conflicts
	}
	if !emp.IsActive() {
		add(ConflictInactive, "员工 %s 不在职", empID)
	}
	if emp.HasOffShift(slot) {
		add(ConflictOffShift, "员工 %s 在 %s 固定排休", empID, slot)
	}
	if len(conflicts) > 0 {
		return conflicts // 基础不可用时无需再查关系约束
	}

	if a == nil {
		return nil
	}

	if occupant := a.EmployeeAt(slot); occupant != model.Unassigned && occupant != empID {
		add(ConflictSlotOccupied, "班位 %s 已分配给 %s", slot, occupant)
	}

	// 同日双班
	for _, kind := range model.SlotKinds() {
		if kind == slot.Kind {
			continue
		}
		if a.EmployeeAt(model.ShiftSlot{Day: slot.Day, Kind: kind}) == empID {
			add(ConflictSameDay, "员工 %s 同日已有 %s 班", empID, kind)
		}
	}

	// 向后检查：昨夜夜班后整天休息
	if slot.Day > 1 {
		prevNight := model.ShiftSlot{Day: slot.Day - 1, Kind: model.SlotNight}
		if a.EmployeeAt(prevNight) == empID {
			add(ConflictPostNight, "员工 %s 前一日（第 %d 天）为夜班，次日须整天休息", empID, slot.Day-1)
		}
	}

	// 向前检查：钉入夜班要求次日整天空闲
	if slot.Kind == model.SlotNight && slot.Day < m.Days() {
		if a.WorksOn(empID, slot.Day+1) {
			add(ConflictNextDay, "员工 %s 次日（第 %d 天）已有班，无法安排夜班", empID, slot.Day+1)
		}
	}

	return conflicts
}

// ValidateAssignment 校验整份排班的硬约束，返回全部冲突
func ValidateAssignment(m *model.Month, employees []*model.Employee, a *model.Assignment) []Conflict {
	var conflicts []Conflict

	byID := make(map[string]*model.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	for _, slot := range a.AllSlots() {
		empID := a.EmployeeAt(slot)
		if empID == model.Unassigned {
			continue
		}

		emp := byID[empID]
		if emp == nil || !emp.IsActive() {
			conflicts = append(conflicts, Conflict{
				Type: ConflictInactive, EmployeeID: empID, Slot: slot,
				Message: fmt.Sprintf("班位 %s 分配给不在职员工 %s", slot, empID),
			})
			continue
		}
		if emp.HasOffShift(slot) {
			conflicts = append(conflicts, Conflict{
				Type: ConflictOffShift, EmployeeID: empID, Slot: slot,
				Message: fmt.Sprintf("员工 %s 在固定排休的 %s 被排班", empID, slot),
			})
		}
		if slot.Kind == model.SlotNight && slot.Day < m.Days() && a.WorksOn(empID, slot.Day+1) {
			conflicts = append(conflicts, Conflict{
				Type: ConflictPostNight, EmployeeID: empID, Slot: slot,
				Message: fmt.Sprintf("员工 %s 第 %d 天夜班后次日仍有班", empID, slot.Day),
			})
		}
		if slot.Kind == model.SlotDay {
			night := model.ShiftSlot{Day: slot.Day, Kind: model.SlotNight}
			if a.EmployeeAt(night) == empID {
				conflicts = append(conflicts, Conflict{
					Type: ConflictSameDay, EmployeeID: empID, Slot: slot,
					Message: fmt.Sprintf("员工 %s 第 %d 天同日双班", empID, slot.Day),
				})
			}
		}
	}

	return conflicts
}
