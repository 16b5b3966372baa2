// Package scheduler 组合约束构建与求解策略，对外提供月度排班引擎
package scheduler

import (
	"context"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/logger"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler/problem"
	"github.com/yueban/yueban/pkg/scheduler/repair"
	"github.com/yueban/yueban/pkg/scheduler/solver"
)

// Engine 月度排班引擎
//
// 两种求解策略共享同一约束问题表示：精确求解器优先，
// 不可用或被禁用时退回回溯求解器。每次生成都从不可变快照
// 新建约束问题，求解之间无共享可变状态。
type Engine struct {
	exact    solver.Solver
	fallback solver.Solver
	log      *logger.SchedulerLogger
}

// New 创建排班引擎
func New() *Engine {
	return NewWithSolvers(solver.NewExactSolver(), solver.NewBacktrackSolver())
}

// NewWithSolvers 用指定求解器创建排班引擎，任一项可为 nil
func NewWithSolvers(exact, fallback solver.Solver) *Engine {
	return &Engine{
		exact:    exact,
		fallback: fallback,
		log:      logger.NewSchedulerLogger(),
	}
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Problem problem.Options `json:"problem"`
	Solver  solver.Options  `json:"solver"`

	// DisableExact 禁用精确求解器，直接使用回溯回退
	DisableExact bool `json:"disable_exact,omitempty"`
}

// DefaultGenerateOptions 返回默认生成选项
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Problem: problem.DefaultOptions(),
		Solver:  solver.DefaultOptions(),
	}
}

// Generate 生成某月排班
//
// 输入快照只读；成功时返回新排班，调用方拥有结果。
// 带着可行解的超时为软失败（状态 Feasible，调用方可接受或加大预算
// 重试）；两种求解器都耗尽预算且无任何可行解时返回超时错误。
func (e *Engine) Generate(ctx context.Context, m *model.Month, employees []*model.Employee, opts GenerateOptions) (*solver.Result, error) {
	p, err := problem.Build(m, employees, opts.Problem)
	if err != nil {
		return nil, err
	}

	e.log.StartGenerate(m.Key(), len(p.Employees), len(p.Slots))

	if opts.DisableExact || e.exact == nil {
		if e.fallback == nil {
			return nil, errors.SolverUnavailable("BacktrackSolver")
		}
		e.log.FallbackEngaged("精确求解器被禁用")
		result, err := e.fallback.Solve(ctx, p, opts.Solver)
		return wrapEmptyTimeout(result, err, opts.Solver)
	}

	return e.fallbackOnFailure(ctx, p, opts.Solver)
}

// fallbackOnFailure 先用精确求解器，失败后以同一问题重试回溯回退。
// 精确超时但带着可行解返回不算失败，直接交回调用方。
func (e *Engine) fallbackOnFailure(ctx context.Context, p *problem.Problem, opts solver.Options) (*solver.Result, error) {
	result, err := e.exact.Solve(ctx, p, opts)
	if e.fallback == nil {
		return wrapEmptyTimeout(result, err, opts)
	}
	switch {
	case err != nil:
		e.log.FallbackEngaged("精确求解失败: " + err.Error())
	case result.Status == solver.StatusTimedOut && result.Assignment == nil:
		e.log.FallbackEngaged("精确求解超时且无可行解")
	default:
		return result, err
	}
	result, err = e.fallback.Solve(ctx, p, opts)
	return wrapEmptyTimeout(result, err, opts)
}

// wrapEmptyTimeout 把"预算耗尽且一个可行解都没有"升级为超时错误。
// 带着可行解的超时仍是软失败：调用方可接受结果或加大预算重试。
func wrapEmptyTimeout(result *solver.Result, err error, opts solver.Options) (*solver.Result, error) {
	if err == nil && result != nil &&
		result.Status == solver.StatusTimedOut && result.Assignment == nil {
		return result, errors.TimedOut(opts.TimeBudget)
	}
	return result, err
}

// Repair 紧急补班：员工临时缺勤后对受影响天做局部重排
//
// 不改动受影响天之外的任何班位；按值语义返回新排班，
// 无人可替的班位置空并记入诊断，而非整体失败。
func (e *Engine) Repair(ctx context.Context, m *model.Month, employees []*model.Employee, prior *model.Assignment, absentID string, affectedDays []int) (*repair.Result, error) {
	p, err := problem.Build(m, employees, problem.DefaultOptions())
	if err != nil {
		return nil, err
	}

	res, err := repair.Repair(ctx, p, prior, absentID, affectedDays)
	if err != nil {
		return nil, err
	}

	e.log.RepairComplete(absentID, res.Reassigned, res.Unfilled)
	return res, nil
}
