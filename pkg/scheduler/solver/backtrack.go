// Package solver 提供月度排班求解器
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/logger"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler/problem"
)

// BacktrackSolver 回溯求解器：精确求解器不可用时的回退策略
//
// 按确定性班位顺序做深度优先分配，配合约束传播与启发式候选排序。
// 只承诺可行，不承诺最优。
type BacktrackSolver struct {
	log *logger.SchedulerLogger
}

// NewBacktrackSolver 创建回溯求解器
func NewBacktrackSolver() *BacktrackSolver {
	return &BacktrackSolver{log: logger.NewSchedulerLogger()}
}

// Name 返回求解器名称
func (s *BacktrackSolver) Name() string {
	return "BacktrackSolver"
}

// backtrackSearch 单次求解的搜索状态
type backtrackSearch struct {
	ctx         context.Context
	p           *problem.Problem
	opts        Options
	deadline    time.Time
	hasDeadline bool

	a      *model.Assignment
	counts map[string]int

	// restBlocked 夜班后休息的传播表：分配夜班时立即把员工
	// 标记为次日整天不可用，在分支早期剪枝而非事后发现违反
	restBlocked map[string]map[int]bool

	nodes   int
	stopped bool
}

// Solve 求解约束问题，返回首个可行解
func (s *BacktrackSolver) Solve(ctx context.Context, p *problem.Problem, opts Options) (*Result, error) {
	start := time.Now()

	search := &backtrackSearch{
		ctx:         ctx,
		p:           p,
		opts:        opts,
		a:           model.NewAssignment(p.Month),
		counts:      make(map[string]int),
		restBlocked: make(map[string]map[int]bool),
	}
	if opts.TimeBudget > 0 {
		search.deadline = start.Add(opts.TimeBudget)
		search.hasDeadline = true
	}
	if d, ok := ctx.Deadline(); ok && (!search.hasDeadline || d.Before(search.deadline)) {
		search.deadline = d
		search.hasDeadline = true
	}

	found := search.dfs(0)

	result := &Result{
		Duration: time.Since(start),
		Nodes:    search.nodes,
		Solver:   s.Name(),
	}

	if found {
		result.Status = StatusFeasible
		result.Assignment = search.a.Clone()
		result.Objective = p.Evaluate(result.Assignment)
		result.Diagnostics = buildDiagnostics(p, result.Assignment)
		s.log.SolveComplete(s.Name(), string(result.Status), result.Duration, result.Objective)
		return result, nil
	}

	if search.stopped {
		result.Status = StatusTimedOut
		result.Message = "预算耗尽且未找到可行解"
		s.log.SolveComplete(s.Name(), string(result.Status), result.Duration, 0)
		return result, nil
	}

	result.Status = StatusInfeasible
	reason := "所有分支的候选员工均已穷尽"
	result.Message = reason
	s.log.SolveComplete(s.Name(), string(result.Status), result.Duration, 0)
	return result, errors.NoFeasibleSchedule(reason)
}

// dfs 深度优先分配，返回是否找到完整可行解
func (b *backtrackSearch) dfs(idx int) bool {
	// 每层递归做协作式取消检查，保证调用方期限能中止长搜索
	if b.stopped || b.cancelled() {
		return false
	}
	b.nodes++
	if b.opts.MaxNodes > 0 && b.nodes > b.opts.MaxNodes {
		b.stopped = true
		return false
	}

	if idx == len(b.p.Slots) {
		return true
	}

	slot := b.p.Slots[idx]

	if forced := b.p.ForcedAt(slot); forced != model.Unassigned {
		if !b.usable(forced, slot) {
			return false
		}
		b.assign(slot, forced)
		if b.dfs(idx + 1) {
			return true
		}
		b.unassign(slot, forced)
		return false
	}

	for _, emp := range b.candidates(slot) {
		b.assign(slot, emp)
		if b.dfs(idx + 1) {
			return true
		}
		b.unassign(slot, emp)
		if b.stopped {
			return false
		}
	}

	// 软覆盖模式下班位允许空缺
	if !b.p.RequireFullCoverage {
		return b.dfs(idx + 1)
	}
	return false
}

// cancelled 协作式取消检查
func (b *backtrackSearch) cancelled() bool {
	if b.ctx.Err() != nil {
		b.stopped = true
		return true
	}
	if b.hasDeadline && b.nodes&63 == 0 && time.Now().After(b.deadline) {
		b.stopped = true
		return true
	}
	return false
}

// usable 检查员工对班位是否可用（含传播表）
func (b *backtrackSearch) usable(empID string, slot model.ShiftSlot) bool {
	if blocked, ok := b.restBlocked[empID]; ok && blocked[slot.Day] {
		return false
	}
	return canAssign(b.p, b.a, empID, slot)
}

// candidates 生成班位候选并按启发式排序：
// 配额偏差升序（欠班多者优先）、高年资在前、ID 升序
// 该排序即无优化器时驱动配额公平的启发式
func (b *backtrackSearch) candidates(slot model.ShiftSlot) []string {
	cands := make([]string, 0, len(b.p.Employees))
	for _, emp := range b.p.Employees {
		if b.usable(emp.ID, slot) {
			cands = append(cands, emp.ID)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		di := b.counts[cands[i]] - b.p.Quotas[cands[i]]
		dj := b.counts[cands[j]] - b.p.Quotas[cands[j]]
		if di != dj {
			return di < dj
		}
		ti := b.p.Employee(cands[i]).IsHighTier()
		tj := b.p.Employee(cands[j]).IsHighTier()
		if ti != tj {
			return ti
		}
		return cands[i] < cands[j]
	})
	return cands
}

// assign 执行分配并传播夜班后休息
func (b *backtrackSearch) assign(slot model.ShiftSlot, empID string) {
	b.a.Assign(slot, empID)
	b.counts[empID]++
	if slot.Kind == model.SlotNight && slot.Day < b.p.Month.Days() {
		blocked, ok := b.restBlocked[empID]
		if !ok {
			blocked = make(map[int]bool)
			b.restBlocked[empID] = blocked
		}
		blocked[slot.Day+1] = true
	}
}

// unassign 撤销分配并回收传播标记
func (b *backtrackSearch) unassign(slot model.ShiftSlot, empID string) {
	b.a.Unassign(slot)
	b.counts[empID]--
	if slot.Kind == model.SlotNight && slot.Day < b.p.Month.Days() {
		delete(b.restBlocked[empID], slot.Day+1)
	}
}
