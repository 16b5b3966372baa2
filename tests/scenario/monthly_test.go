// Package scenario 提供场景测试
package scenario

import (
	"context"
	"testing"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/scheduler"
	"github.com/yueban/yueban/pkg/scheduler/problem"
)

func tenEmployees() []*model.Employee {
	return []*model.Employee{
		{ID: "h01", Tier: model.TierHigh, Active: true},
		{ID: "h02", Tier: model.TierHigh, Active: true},
		{ID: "h03", Tier: model.TierHigh, Active: true},
		{ID: "h04", Tier: model.TierHigh, Active: true},
		{ID: "h05", Tier: model.TierHigh, Active: true},
		{ID: "l01", Tier: model.TierLow, Active: true},
		{ID: "l02", Tier: model.TierLow, Active: true},
		{ID: "l03", Tier: model.TierLow, Active: true},
		{ID: "l04", Tier: model.TierLow, Active: true},
		{ID: "l05", Tier: model.TierLow, Active: true},
	}
}

func february(t *testing.T) *model.Month {
	t.Helper()
	m, err := model.NewMonth(2026, 2)
	if err != nil {
		t.Fatalf("创建月份失败: %v", err)
	}
	return m
}

func fallbackOptions() scheduler.GenerateOptions {
	opts := scheduler.DefaultGenerateOptions()
	opts.DisableExact = true
	return opts
}

// TestMonthlyGeneration28Days 测试28天月份10人团队的完整排班
func TestMonthlyGeneration28Days(t *testing.T) {
	m := february(t)
	emps := tenEmployees()

	result, err := scheduler.New().Generate(context.Background(), m, emps, fallbackOptions())
	if err != nil {
		t.Fatalf("28天月份10人团队不应不可行: %v", err)
	}
	a := result.Assignment

	if got := a.FilledCount(); got != 56 {
		t.Errorf("覆盖班位数错误: 期望56, 实际%d", got)
	}

	counts := a.Counts()
	var highTotal, lowTotal int
	highMin, highMax := 999, 0
	for _, e := range emps {
		n := counts[e.ID]
		if e.Tier == model.TierHigh {
			highTotal += n
			if n < highMin {
				highMin = n
			}
			if n > highMax {
				highMax = n
			}
		} else {
			lowTotal += n
		}
	}
	t.Logf("高经验层合计=%d, 低经验层合计=%d, 高层区间=[%d,%d]",
		highTotal, lowTotal, highMin, highMax)

	// 配额表给高经验层更高的目标值，候选排序应体现这一倾斜
	if highTotal <= lowTotal {
		t.Errorf("高经验层班次合计应多于低经验层: %d <= %d", highTotal, lowTotal)
	}
	// 同层内公平：班次数最多与最少的差距应该很小
	if highMax-highMin > 3 {
		t.Errorf("高经验层内部班次差距过大: [%d,%d]", highMin, highMax)
	}
}

// TestNightShiftRestRule 测试夜班次日强制休息
func TestNightShiftRestRule(t *testing.T) {
	m := february(t)

	result, err := scheduler.New().Generate(context.Background(), m, tenEmployees(), fallbackOptions())
	if err != nil {
		t.Fatalf("排班生成失败: %v", err)
	}
	a := result.Assignment

	occ := a.EmployeeAt(model.ShiftSlot{Day: 10, Kind: model.SlotNight})
	if occ == model.Unassigned {
		t.Fatal("第10天夜班应有人值守")
	}
	if a.WorksOn(occ, 11) {
		t.Errorf("员工%s第10天值夜班后第11天不应有任何班次", occ)
	}

	// 整月硬规则审计
	for d := 1; d < m.Days(); d++ {
		night := a.EmployeeAt(model.ShiftSlot{Day: d, Kind: model.SlotNight})
		if night != model.Unassigned && a.WorksOn(night, d+1) {
			t.Errorf("员工%s第%d天夜班后第%d天仍有班次", night, d, d+1)
		}
		day := a.EmployeeAt(model.ShiftSlot{Day: d, Kind: model.SlotDay})
		if day != model.Unassigned && day == night {
			t.Errorf("员工%s第%d天被安排了两个班次", day, d)
		}
	}
}

// TestOffShiftAndPinHonored 测试排休与手工钉入
func TestOffShiftAndPinHonored(t *testing.T) {
	m := february(t)
	emps := tenEmployees()
	off := []model.ShiftSlot{
		{Day: 10, Kind: model.SlotDay},
		{Day: 10, Kind: model.SlotNight},
	}
	emps[0].OffShifts = off

	opts := fallbackOptions()
	pinSlot := model.ShiftSlot{Day: 3, Kind: model.SlotNight}
	opts.Problem.Pins = []problem.Pin{{EmployeeID: "l05", Slot: pinSlot}}

	result, err := scheduler.New().Generate(context.Background(), m, emps, opts)
	if err != nil {
		t.Fatalf("排班生成失败: %v", err)
	}
	a := result.Assignment

	for _, s := range off {
		if a.EmployeeAt(s) == "h01" {
			t.Errorf("员工h01的排休班位%s被占用", s)
		}
	}
	if got := a.EmployeeAt(pinSlot); got != "l05" {
		t.Errorf("钉入班位%s应由l05值守, 实际%s", pinSlot, got)
	}
}

// TestPinConflictsWithOffShift 测试钉入与排休冲突在建模期报错
func TestPinConflictsWithOffShift(t *testing.T) {
	m := february(t)
	emps := tenEmployees()
	slot := model.ShiftSlot{Day: 3, Kind: model.SlotNight}
	emps[9].OffShifts = []model.ShiftSlot{slot}

	opts := fallbackOptions()
	opts.Problem.Pins = []problem.Pin{{EmployeeID: "l05", Slot: slot}}

	_, err := scheduler.New().Generate(context.Background(), m, emps, opts)
	if !errors.Is(err, errors.CodeConflictingOverride) {
		t.Errorf("钉入冲突应在建模期报CONFLICTING_OVERRIDE, 实际: %v", err)
	}
}

// TestUnderstaffedMonthInfeasible 测试人手不足时两种求解器都判不可行
func TestUnderstaffedMonthInfeasible(t *testing.T) {
	m := february(t)
	solo := []*model.Employee{{ID: "h01", Tier: model.TierHigh, Active: true}}

	_, err := scheduler.New().Generate(context.Background(), m, solo, scheduler.DefaultGenerateOptions())
	if !errors.Is(err, errors.CodeNoFeasibleSchedule) {
		t.Errorf("单人整月排班应报NO_FEASIBLE_SCHEDULE, 实际: %v", err)
	}
}

// TestGenerationDeterminism 测试相同输入产生逐字节相同的排班
func TestGenerationDeterminism(t *testing.T) {
	m := february(t)

	first, err := scheduler.New().Generate(context.Background(), m, tenEmployees(), fallbackOptions())
	if err != nil {
		t.Fatalf("第一次生成失败: %v", err)
	}
	second, err := scheduler.New().Generate(context.Background(), m, tenEmployees(), fallbackOptions())
	if err != nil {
		t.Fatalf("第二次生成失败: %v", err)
	}
	if first.Assignment.Canonical() != second.Assignment.Canonical() {
		t.Error("相同输入的两次生成结果不一致")
	}
}

// TestEmergencyRepairScenario 测试缺勤后的应急补班全流程
func TestEmergencyRepairScenario(t *testing.T) {
	m := february(t)
	emps := tenEmployees()
	engine := scheduler.New()

	gen, err := engine.Generate(context.Background(), m, emps, fallbackOptions())
	if err != nil {
		t.Fatalf("排班生成失败: %v", err)
	}

	absent := gen.Assignment.EmployeeAt(model.ShiftSlot{Day: 14, Kind: model.SlotDay})
	if absent == model.Unassigned {
		t.Fatal("第14天白班应有人值守")
	}

	rep, err := engine.Repair(context.Background(), m, emps, gen.Assignment, absent, []int{14})
	if err != nil {
		t.Fatalf("应急补班失败: %v", err)
	}
	if rep.Assignment.WorksOn(absent, 14) {
		t.Errorf("缺勤员工%s第14天仍有班次", absent)
	}

	// 受影响天之外的班位不得改动
	for _, s := range rep.Assignment.Diff(gen.Assignment) {
		if s.Day != 14 {
			t.Errorf("补班改动了受影响天之外的班位: %s", s)
		}
	}
}
