// Package solver 提供月度排班求解器
package solver

import (
	"context"
	"time"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/logger"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler/problem"
)

// ExactSolver 精确求解器：对布尔决策变量做分支定界
//
// 按确定性变量顺序（天、班次、员工 ID）逐班位分支，可采纳下界剪枝。
// 搜索穷尽时给出最优证明或无解证明；预算耗尽时返回当前最好可行解。
// 给定相同的问题编码，结果完全确定。
type ExactSolver struct {
	log *logger.SchedulerLogger
}

// NewExactSolver 创建精确求解器
func NewExactSolver() *ExactSolver {
	return &ExactSolver{log: logger.NewSchedulerLogger()}
}

// Name 返回求解器名称
func (s *ExactSolver) Name() string {
	return "ExactSolver"
}

// exactSearch 单次求解的搜索状态，不跨求解共享
type exactSearch struct {
	ctx         context.Context
	p           *problem.Problem
	opts        Options
	deadline    time.Time
	hasDeadline bool

	a      *model.Assignment
	counts map[string]int

	best    *model.Assignment
	bestObj float64
	nodes   int
	stopped bool
}

// Solve 求解约束问题
func (s *ExactSolver) Solve(ctx context.Context, p *problem.Problem, opts Options) (*Result, error) {
	start := time.Now()

	search := &exactSearch{
		ctx:    ctx,
		p:      p,
		opts:   opts,
		a:      model.NewAssignment(p.Month),
		counts: make(map[string]int),
	}
	if opts.TimeBudget > 0 {
		search.deadline = start.Add(opts.TimeBudget)
		search.hasDeadline = true
	}
	if d, ok := ctx.Deadline(); ok && (!search.hasDeadline || d.Before(search.deadline)) {
		search.deadline = d
		search.hasDeadline = true
	}

	search.dfs(0)

	result := &Result{
		Duration: time.Since(start),
		Nodes:    search.nodes,
		Solver:   s.Name(),
	}

	switch {
	case search.best != nil && !search.stopped:
		result.Status = StatusOptimal
	case search.best != nil:
		result.Status = StatusFeasible
		result.Message = "预算耗尽，返回当前最好可行解"
	case search.stopped:
		result.Status = StatusTimedOut
		result.Message = "预算耗尽且未找到可行解"
	default:
		result.Status = StatusInfeasible
	}

	if search.best != nil {
		result.Assignment = search.best
		result.Objective = search.bestObj
		result.Diagnostics = buildDiagnostics(p, search.best)
	}

	s.log.SolveComplete(s.Name(), string(result.Status), result.Duration, result.Objective)

	if result.Status == StatusInfeasible {
		hint := infeasibleHint(p)
		result.Message = hint
		return result, errors.Infeasible(hint)
	}
	return result, nil
}

// dfs 深度优先分支：idx 为当前班位在变量顺序中的位置
func (e *exactSearch) dfs(idx int) {
	if e.stopped {
		return
	}
	e.nodes++
	if e.opts.MaxNodes > 0 && e.nodes > e.opts.MaxNodes {
		e.stopped = true
		return
	}
	// 墙钟检查按节点分摊，取消检查同理
	if e.nodes&255 == 0 {
		if e.ctx.Err() != nil || (e.hasDeadline && time.Now().After(e.deadline)) {
			e.stopped = true
			return
		}
	}

	if idx == len(e.p.Slots) {
		obj := e.p.Evaluate(e.a)
		if e.best == nil || obj < e.bestObj {
			e.best = e.a.Clone()
			e.bestObj = obj
		}
		return
	}

	// 可采纳下界剪枝；严格小于才更新现任解，保证同目标值时取先找到者
	if e.best != nil && e.lowerBound(idx) >= e.bestObj {
		return
	}

	slot := e.p.Slots[idx]

	if forced := e.p.ForcedAt(slot); forced != model.Unassigned {
		if !canAssign(e.p, e.a, forced, slot) {
			return // 强制分配在此分支下不可行
		}
		e.assign(slot, forced)
		e.dfs(idx + 1)
		e.unassign(slot, forced)
		return
	}

	for _, emp := range e.candidates(slot) {
		e.assign(slot, emp)
		e.dfs(idx + 1)
		e.unassign(slot, emp)
		if e.stopped {
			return
		}
	}

	// 软覆盖模式下允许空班位，放在候选之后保证覆盖优先
	if !e.p.RequireFullCoverage {
		e.dfs(idx + 1)
	}
}

// candidates 生成班位的候选员工，按 ID 升序；暖启动时上次分配优先
func (e *exactSearch) candidates(slot model.ShiftSlot) []string {
	cands := make([]string, 0, len(e.p.Employees))
	for _, emp := range e.p.Employees {
		if canAssign(e.p, e.a, emp.ID, slot) {
			cands = append(cands, emp.ID)
		}
	}
	if e.opts.WarmStart != nil {
		if prev := e.opts.WarmStart.EmployeeAt(slot); prev != model.Unassigned {
			for i, id := range cands {
				if id == prev && i > 0 {
					copy(cands[1:i+1], cands[:i])
					cands[0] = prev
					break
				}
			}
		}
	}
	return cands
}

// assign 执行分配
func (e *exactSearch) assign(slot model.ShiftSlot, empID string) {
	e.a.Assign(slot, empID)
	e.counts[empID]++
}

// unassign 撤销分配
func (e *exactSearch) unassign(slot model.ShiftSlot, empID string) {
	e.a.Unassign(slot)
	e.counts[empID]--
}

// lowerBound 计算当前部分分配可达目标值的可采纳下界
//
// 已超配额部分不可撤销；欠配额部分最多被剩余班位各弥补一个；
// 已空班位惩罚不可撤销；公平性取 0。
func (e *exactSearch) lowerBound(idx int) float64 {
	remaining := len(e.p.Slots) - idx

	over, under := 0, 0
	for _, emp := range e.p.Employees {
		dev := e.counts[emp.ID] - e.p.Quotas[emp.ID]
		if dev > 0 {
			over += dev
		} else {
			under -= dev
		}
	}
	quotaLB := over
	if under > remaining {
		quotaLB += under - remaining
	}

	unfilled := idx - e.a.FilledCount()

	return e.p.Weights.Quota*float64(quotaLB) + e.p.Weights.Coverage*float64(unfilled)
}
