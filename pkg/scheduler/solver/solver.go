// Package solver 提供月度排班求解器：精确分支定界求解与回溯回退求解
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler/problem"
)

// Status 求解状态
type Status string

const (
	StatusOptimal    Status = "optimal"    // 已证明最优
	StatusFeasible   Status = "feasible"   // 可行但未证明最优
	StatusInfeasible Status = "infeasible" // 硬约束无解
	StatusTimedOut   Status = "timed_out"  // 预算耗尽且无可行解
)

// Diagnostic 诊断条目：未满足的软目标或空班位
type Diagnostic struct {
	Slot       model.ShiftSlot `json:"slot,omitempty"`
	EmployeeID string          `json:"employee_id,omitempty"`
	Reason     string          `json:"reason"`
}

// Result 求解结果
type Result struct {
	Status      Status            `json:"status"`
	Assignment  *model.Assignment `json:"assignment,omitempty"`
	Objective   float64           `json:"objective"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Duration    time.Duration     `json:"duration"`
	Nodes       int               `json:"nodes"`
	Solver      string            `json:"solver"`
	Message     string            `json:"message,omitempty"`
}

// Options 求解选项
type Options struct {
	// TimeBudget 墙钟时间预算，0 表示不限时
	TimeBudget time.Duration `json:"time_budget,omitempty"`

	// MaxNodes 搜索节点上限，0 表示不限；用于确定性截断
	MaxNodes int `json:"max_nodes,omitempty"`

	// WarmStart 先前排班提示：候选顺序优先尝试上次的分配
	WarmStart *model.Assignment `json:"-"`
}

// DefaultOptions 返回默认求解选项
func DefaultOptions() Options {
	return Options{TimeBudget: 30 * time.Second}
}

// Solver 求解器接口：两种求解策略共享同一约束问题表示
type Solver interface {
	// Solve 求解约束问题
	Solve(ctx context.Context, p *problem.Problem, opts Options) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// canAssign 检查在当前排班下能否将员工分配到班位
// 覆盖互斥、同日双班与夜班后休息的双向检查
func canAssign(p *problem.Problem, a *model.Assignment, empID string, slot model.ShiftSlot) bool {
	if !p.EligibleAt(empID, slot) {
		return false
	}
	if a.WorksOn(empID, slot.Day) {
		return false
	}
	// 昨夜上了夜班则今日整天休息
	if slot.Day > 1 && a.EmployeeAt(model.ShiftSlot{Day: slot.Day - 1, Kind: model.SlotNight}) == empID {
		return false
	}
	// 今夜上夜班则次日必须整天空闲
	if slot.Kind == model.SlotNight && slot.Day < p.Month.Days() && a.WorksOn(empID, slot.Day+1) {
		return false
	}
	return true
}

// buildDiagnostics 收集空班位与配额偏差诊断
func buildDiagnostics(p *problem.Problem, a *model.Assignment) []Diagnostic {
	var diags []Diagnostic
	for _, slot := range a.UnfilledSlots() {
		diags = append(diags, Diagnostic{
			Slot:   slot,
			Reason: "无可用员工，班位空缺",
		})
	}
	counts := a.Counts()
	for _, e := range p.Employees {
		dev := counts[e.ID] - p.Quotas[e.ID]
		if dev != 0 {
			diags = append(diags, Diagnostic{
				EmployeeID: e.ID,
				Reason:     fmt.Sprintf("配额偏差 %+d（实际 %d，配额 %d）", dev, counts[e.ID], p.Quotas[e.ID]),
			})
		}
	}
	return diags
}

// infeasibleHint 推导硬约束无解的可能原因
func infeasibleHint(p *problem.Problem) string {
	if !p.RequireFullCoverage {
		return "强制分配与休息/互斥规则不可同时满足"
	}
	perDay := len(model.SlotKinds())
	if len(p.Employees) <= perDay {
		return fmt.Sprintf("休息规则排除后，可用员工（%d 人）不足以覆盖每日 %d 个班位（夜班次日须整天休息）",
			len(p.Employees), perDay)
	}
	return "班位覆盖要求与休息/排休/指定规则不可同时满足"
}
