// Package problem 将月历、员工快照、配额与手工指定编译为约束问题
package problem

import (
	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/quota"
)

// Build 从月历与员工快照构建约束问题
//
// 硬约束编码：
//   - 班位互斥与同日双班由变量结构保证（求解器逐班位决策）
//   - 固定排休、强制排除编码为不可用集合
//   - 强制分配编码为班位到员工的映射
//   - 夜班后休息为关系约束，由求解器在搜索中传播
func Build(m *model.Month, employees []*model.Employee, opts Options) (*Problem, error) {
	active := model.ActiveEmployees(employees)
	if len(active) == 0 {
		return nil, errors.EmptyEmployeeSet(m.Key())
	}

	quotas, err := quota.ResolveAll(m.Days(), active)
	if err != nil {
		return nil, err
	}

	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}

	p := &Problem{
		Month:               m,
		Employees:           active,
		Quotas:              quotas,
		Slots:               m.Slots(),
		Weights:             opts.Weights,
		RequireFullCoverage: opts.RequireFullCoverage,
		byID:                make(map[string]*model.Employee, len(active)),
		forced:              make(map[model.ShiftSlot]string),
		ineligible:          make(map[string]map[model.ShiftSlot]bool),
	}
	for _, e := range active {
		p.byID[e.ID] = e
	}

	// 固定排休编码为不可用
	for _, e := range active {
		for _, off := range e.OffShifts {
			if m.Contains(off) {
				p.markIneligible(e.ID, off)
			}
		}
	}

	// 手工指定：先排除后强制，便于冲突检测
	for _, pin := range opts.Pins {
		if !pin.Forbid {
			continue
		}
		if p.byID[pin.EmployeeID] == nil || !m.Contains(pin.Slot) {
			continue
		}
		p.markIneligible(pin.EmployeeID, pin.Slot)
	}

	for _, pin := range opts.Pins {
		if pin.Forbid {
			continue
		}
		if err := p.force(pin.EmployeeID, pin.Slot); err != nil {
			return nil, err
		}
	}

	// 先前排班冻结：已填班位成为强制分配，仅对空缺求解
	// 全月配额不变——冻结班位照常计入员工班次数，等价于按剩余期间调整配额
	if opts.Prior != nil {
		for _, slot := range p.Slots {
			emp := opts.Prior.EmployeeAt(slot)
			if emp == model.Unassigned {
				continue
			}
			if p.byID[emp] == nil {
				continue // 员工已不在职，班位重新开放
			}
			if !p.EligibleAt(emp, slot) {
				continue // 排休或强制排除已生效，班位重新开放
			}
			if existing := p.forced[slot]; existing != "" {
				continue // 显式指定优先于冻结
			}
			if err := p.force(emp, slot); err != nil {
				return nil, err
			}
		}
	}

	return p, nil
}

// markIneligible 将（员工，班位）标记为不可分配
func (p *Problem) markIneligible(empID string, slot model.ShiftSlot) {
	blocked, ok := p.ineligible[empID]
	if !ok {
		blocked = make(map[model.ShiftSlot]bool)
		p.ineligible[empID] = blocked
	}
	blocked[slot] = true
}

// force 将班位强制分配给员工，检测与排休及其他指定的直接矛盾
func (p *Problem) force(empID string, slot model.ShiftSlot) error {
	emp := p.byID[empID]
	if emp == nil {
		return errors.ConflictingOverride(empID, slot.String(), "员工不在职或不存在")
	}
	if !p.Month.Contains(slot) {
		return errors.ConflictingOverride(empID, slot.String(), "班位不在本月")
	}
	if emp.HasOffShift(slot) {
		return errors.ConflictingOverride(empID, slot.String(), "与固定排休矛盾")
	}
	if blocked, ok := p.ineligible[empID]; ok && blocked[slot] {
		return errors.ConflictingOverride(empID, slot.String(), "与强制排除矛盾")
	}
	if existing, ok := p.forced[slot]; ok && existing != empID {
		return errors.ConflictingOverride(empID, slot.String(), "班位已强制分配给 "+existing)
	}
	p.forced[slot] = empID
	return nil
}
