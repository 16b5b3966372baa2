// Package repair 提供紧急补班：员工缺勤后的局部重排
package repair

import (
	"context"
	"fmt"
	"sort"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler/problem"
	"github.com/yueban/yueban/pkg/scheduler/solver"
)

// Result 补班结果
type Result struct {
	Assignment  *model.Assignment   `json:"assignment"`
	Diagnostics []solver.Diagnostic `json:"diagnostics,omitempty"`
	Reassigned  int                 `json:"reassigned"`
	Unfilled    int                 `json:"unfilled"`
}

// Repair 对受影响天做局部重排
//
// 对每个受影响天中由缺勤员工持有的班位寻找替班人；替班人按
// 高年资优先、配额偏差升序、ID 升序排序。受影响天之外的班位
// 不做任何改动。无人可替的班位置空并记入诊断。
// 输入排班不被修改，返回新副本，调用方可对新旧做差异比较。
func Repair(ctx context.Context, p *problem.Problem, prior *model.Assignment, absentID string, affectedDays []int) (*Result, error) {
	if prior == nil {
		return nil, errors.New(errors.CodeInvalidInput, "缺少先前排班")
	}
	if absentID == "" {
		return nil, errors.New(errors.CodeInvalidInput, "缺少缺勤员工 ID")
	}

	days := normalizeDays(affectedDays, p.Month.Days())
	next := prior.Clone()

	// 先全部腾空，再按确定性顺序寻找替班，
	// 避免先补的班位挡住后面班位的替班人
	var vacated []model.ShiftSlot
	for _, day := range days {
		for _, kind := range model.SlotKinds() {
			slot := model.ShiftSlot{Day: day, Kind: kind}
			if prior.EmployeeAt(slot) == absentID {
				next.Unassign(slot)
				vacated = append(vacated, slot)
			}
		}
	}

	result := &Result{Assignment: next}
	counts := next.Counts()

	for _, slot := range vacated {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeTimeout, "补班被取消")
		}

		sub := pickSubstitute(p, next, counts, absentID, slot)
		if sub == model.Unassigned {
			result.Unfilled++
			result.Diagnostics = append(result.Diagnostics, solver.Diagnostic{
				Slot:   slot,
				Reason: fmt.Sprintf("员工 %s 缺勤且无可用替班人，班位空缺", absentID),
			})
			continue
		}

		next.Assign(slot, sub)
		counts[sub]++
		result.Reassigned++
	}

	return result, nil
}

// pickSubstitute 为班位挑选替班人
// 候选须当天无班且不违反夜班后休息规则（双向检查）
func pickSubstitute(p *problem.Problem, a *model.Assignment, counts map[string]int, absentID string, slot model.ShiftSlot) string {
	var cands []*model.Employee
	for _, emp := range p.Employees {
		if emp.ID == absentID {
			continue
		}
		if !eligibleSubstitute(p, a, emp.ID, slot) {
			continue
		}
		cands = append(cands, emp)
	}
	if len(cands) == 0 {
		return model.Unassigned
	}

	sort.SliceStable(cands, func(i, j int) bool {
		ti, tj := cands[i].IsHighTier(), cands[j].IsHighTier()
		if ti != tj {
			return ti // 高年资优先
		}
		di := counts[cands[i].ID] - p.Quotas[cands[i].ID]
		dj := counts[cands[j].ID] - p.Quotas[cands[j].ID]
		if di != dj {
			return di < dj
		}
		return cands[i].ID < cands[j].ID
	})

	return cands[0].ID
}

// eligibleSubstitute 检查替班可行性
func eligibleSubstitute(p *problem.Problem, a *model.Assignment, empID string, slot model.ShiftSlot) bool {
	if !p.EligibleAt(empID, slot) {
		return false
	}
	if a.WorksOn(empID, slot.Day) {
		return false
	}
	if slot.Day > 1 && a.EmployeeAt(model.ShiftSlot{Day: slot.Day - 1, Kind: model.SlotNight}) == empID {
		return false
	}
	if slot.Kind == model.SlotNight && slot.Day < p.Month.Days() && a.WorksOn(empID, slot.Day+1) {
		return false
	}
	return true
}

// normalizeDays 去重、过滤月外天并升序排序
func normalizeDays(days []int, monthLen int) []int {
	seen := make(map[int]bool, len(days))
	var out []int
	for _, d := range days {
		if d < 1 || d > monthLen || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
