package solver

import (
	"context"
	"testing"
	"time"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler/problem"
)

func fourEmployees() []*model.Employee {
	return []*model.Employee{
		{ID: "e01", Tier: model.TierHigh, Active: true},
		{ID: "e02", Tier: model.TierHigh, Active: true},
		{ID: "e03", Tier: model.TierLow, Active: true},
		{ID: "e04", Tier: model.TierLow, Active: true},
	}
}

// rotationPrior 构造循环轮班：第 d 天白班 emp[(d+1)%4]，夜班 emp[(d-1)%4]
// 该模式满足同日双班与夜班后休息规则
func rotationPrior(m *model.Month, ids []string, lastDay int) *model.Assignment {
	a := model.NewAssignment(m)
	for d := 1; d <= lastDay; d++ {
		a.Assign(model.ShiftSlot{Day: d, Kind: model.SlotDay}, ids[(d+1)%len(ids)])
		a.Assign(model.ShiftSlot{Day: d, Kind: model.SlotNight}, ids[(d-1)%len(ids)])
	}
	return a
}

func TestExact_OptimalOnMostlyFrozenMonth(t *testing.T) {
	m := month28(t)
	ids := []string{"e01", "e02", "e03", "e04"}

	// 冻结前 26 天，仅对最后两天的 4 个班位求解
	opts := problem.DefaultOptions()
	opts.Prior = rotationPrior(m, ids, 26)
	p, err := problem.Build(m, fourEmployees(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := NewExactSolver().Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if result.Status != StatusOptimal {
		t.Fatalf("Status = %s, want optimal", result.Status)
	}
	if result.Assignment.FilledCount() != 56 {
		t.Errorf("FilledCount = %d, want 56", result.Assignment.FilledCount())
	}
	// 冻结班位保持不变
	for d := 1; d <= 26; d++ {
		daySlot := model.ShiftSlot{Day: d, Kind: model.SlotDay}
		if got, want := result.Assignment.EmployeeAt(daySlot), ids[(d+1)%4]; got != want {
			t.Errorf("Frozen slot %s = %q, want %q", daySlot, got, want)
		}
	}
	checkHardRules(t, m, result.Assignment)
}

func TestExact_InfeasibleProof(t *testing.T) {
	m := month28(t)
	emps := []*model.Employee{
		{ID: "e01", Tier: model.TierHigh, Active: true},
		{ID: "e02", Tier: model.TierLow, Active: true},
	}
	p, err := problem.Build(m, emps, problem.DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := NewExactSolver().Solve(context.Background(), p, DefaultOptions())
	if !errors.Is(err, errors.CodeInfeasible) {
		t.Errorf("Solve error = %v, want INFEASIBLE", err)
	}
	if result.Status != StatusInfeasible {
		t.Errorf("Status = %s, want infeasible", result.Status)
	}
	if result.Message == "" {
		t.Error("Infeasible result should carry a hint message")
	}
}

func TestExact_SingleEmployeeInfeasible(t *testing.T) {
	m := month28(t)
	emps := []*model.Employee{
		{ID: "solo", Tier: model.TierHigh, Active: true},
	}
	p, err := problem.Build(m, emps, problem.DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err = NewExactSolver().Solve(context.Background(), p, DefaultOptions())
	if !errors.Is(err, errors.CodeInfeasible) {
		t.Errorf("Solve error = %v, want INFEASIBLE", err)
	}
}

func TestExact_BudgetExhaustedReturnsIncumbent(t *testing.T) {
	m := month28(t)
	p, err := problem.Build(m, sixEmployees(), problem.DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// 预算立即耗尽：首次下潜已找到可行解，预算检查在其后才触发
	opts := DefaultOptions()
	opts.TimeBudget = time.Nanosecond
	result, err := NewExactSolver().Solve(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("Budget-exhausted solve should not return an error, got %v", err)
	}
	if result.Status != StatusFeasible {
		t.Fatalf("Status = %s, want feasible with incumbent", result.Status)
	}
	if result.Assignment == nil || result.Assignment.FilledCount() != 56 {
		t.Error("Expected a complete incumbent assignment")
	}
	checkHardRules(t, m, result.Assignment)
}

func TestExact_Deterministic(t *testing.T) {
	m := month28(t)
	ids := []string{"e01", "e02", "e03", "e04"}

	solve := func() string {
		opts := problem.DefaultOptions()
		opts.Prior = rotationPrior(m, ids, 26)
		p, err := problem.Build(m, fourEmployees(), opts)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		result, err := NewExactSolver().Solve(context.Background(), p, DefaultOptions())
		if err != nil {
			t.Fatalf("Solve returned error: %v", err)
		}
		return result.Assignment.Canonical()
	}

	first := solve()
	if second := solve(); second != first {
		t.Error("Exact solver produced different schedules for identical input")
	}
}

func TestExact_ForbidPinRespected(t *testing.T) {
	m := month28(t)
	ids := []string{"e01", "e02", "e03", "e04"}
	forbidden := model.ShiftSlot{Day: 27, Kind: model.SlotDay}

	opts := problem.DefaultOptions()
	opts.Prior = rotationPrior(m, ids, 26)
	opts.Pins = []problem.Pin{{EmployeeID: "e03", Slot: forbidden, Forbid: true}}
	p, err := problem.Build(m, fourEmployees(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := NewExactSolver().Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if result.Assignment.EmployeeAt(forbidden) == "e03" {
		t.Error("Forbid pin was violated")
	}
	checkHardRules(t, m, result.Assignment)
}
