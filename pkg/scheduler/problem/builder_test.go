package problem

import (
	"testing"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
)

func month(t *testing.T) *model.Month {
	t.Helper()
	m, err := model.NewMonth(2026, 2)
	if err != nil {
		t.Fatalf("NewMonth failed: %v", err)
	}
	return m
}

func roster() []*model.Employee {
	return []*model.Employee{
		{ID: "e01", Tier: model.TierHigh, Active: true},
		{ID: "e02", Tier: model.TierHigh, Active: true},
		{ID: "e03", Tier: model.TierLow, Active: true},
		{ID: "e04", Tier: model.TierLow, Active: true},
	}
}

func TestBuild_EmptyEmployeeSet(t *testing.T) {
	inactive := []*model.Employee{
		{ID: "e01", Tier: model.TierHigh, Active: false},
	}
	_, err := Build(month(t), inactive, DefaultOptions())
	if !errors.Is(err, errors.CodeEmptyEmployeeSet) {
		t.Errorf("Build error = %v, want EMPTY_EMPLOYEE_SET", err)
	}
}

func TestBuild_DefaultWeights(t *testing.T) {
	opts := DefaultOptions()
	opts.Weights = Weights{} // 零值权重回落到默认
	p, err := Build(month(t), roster(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.Weights != DefaultWeights() {
		t.Errorf("Weights = %+v, want defaults", p.Weights)
	}
}

func TestBuild_OffShiftIneligible(t *testing.T) {
	emps := roster()
	off := model.ShiftSlot{Day: 5, Kind: model.SlotNight}
	emps[0].OffShifts = []model.ShiftSlot{off}

	p, err := Build(month(t), emps, DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.EligibleAt("e01", off) {
		t.Error("Expected off-shift slot to be ineligible")
	}
	if !p.EligibleAt("e01", model.ShiftSlot{Day: 5, Kind: model.SlotDay}) {
		t.Error("Expected other slot on same day to stay eligible")
	}
}

func TestBuild_ForcePin(t *testing.T) {
	slot := model.ShiftSlot{Day: 3, Kind: model.SlotDay}
	opts := DefaultOptions()
	opts.Pins = []Pin{{EmployeeID: "e02", Slot: slot}}

	p, err := Build(month(t), roster(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.ForcedAt(slot) != "e02" {
		t.Errorf("ForcedAt = %q, want e02", p.ForcedAt(slot))
	}
}

func TestBuild_PinConflictsWithOffShift(t *testing.T) {
	slot := model.ShiftSlot{Day: 7, Kind: model.SlotDay}
	emps := roster()
	emps[1].OffShifts = []model.ShiftSlot{slot}

	opts := DefaultOptions()
	opts.Pins = []Pin{{EmployeeID: "e02", Slot: slot}}

	_, err := Build(month(t), emps, opts)
	if !errors.Is(err, errors.CodeConflictingOverride) {
		t.Errorf("Build error = %v, want CONFLICTING_OVERRIDE", err)
	}
}

func TestBuild_PinConflictsWithForbid(t *testing.T) {
	slot := model.ShiftSlot{Day: 7, Kind: model.SlotNight}
	opts := DefaultOptions()
	opts.Pins = []Pin{
		{EmployeeID: "e03", Slot: slot, Forbid: true},
		{EmployeeID: "e03", Slot: slot},
	}

	_, err := Build(month(t), roster(), opts)
	if !errors.Is(err, errors.CodeConflictingOverride) {
		t.Errorf("Build error = %v, want CONFLICTING_OVERRIDE", err)
	}
}

func TestBuild_DuplicateForceOnSlot(t *testing.T) {
	slot := model.ShiftSlot{Day: 10, Kind: model.SlotDay}
	opts := DefaultOptions()
	opts.Pins = []Pin{
		{EmployeeID: "e01", Slot: slot},
		{EmployeeID: "e02", Slot: slot},
	}

	_, err := Build(month(t), roster(), opts)
	if !errors.Is(err, errors.CodeConflictingOverride) {
		t.Errorf("Build error = %v, want CONFLICTING_OVERRIDE", err)
	}
}

func TestBuild_PinForInactiveEmployee(t *testing.T) {
	opts := DefaultOptions()
	opts.Pins = []Pin{{EmployeeID: "ghost", Slot: model.ShiftSlot{Day: 1, Kind: model.SlotDay}}}

	_, err := Build(month(t), roster(), opts)
	if !errors.Is(err, errors.CodeConflictingOverride) {
		t.Errorf("Build error = %v, want CONFLICTING_OVERRIDE", err)
	}
}

func TestBuild_PriorFreeze(t *testing.T) {
	m := month(t)
	prior := model.NewAssignment(m)
	frozen := model.ShiftSlot{Day: 2, Kind: model.SlotNight}
	prior.Assign(frozen, "e03")
	prior.Assign(model.ShiftSlot{Day: 4, Kind: model.SlotDay}, "gone") // 已离职员工

	opts := DefaultOptions()
	opts.Prior = prior

	p, err := Build(m, roster(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.ForcedAt(frozen) != "e03" {
		t.Errorf("Frozen slot not forced: got %q", p.ForcedAt(frozen))
	}
	// 离职员工的班位重新开放
	if p.ForcedAt(model.ShiftSlot{Day: 4, Kind: model.SlotDay}) != model.Unassigned {
		t.Error("Slot held by departed employee should be reopened")
	}
}

func TestBuild_PinOverridesPriorFreeze(t *testing.T) {
	m := month(t)
	slot := model.ShiftSlot{Day: 6, Kind: model.SlotDay}
	prior := model.NewAssignment(m)
	prior.Assign(slot, "e01")

	opts := DefaultOptions()
	opts.Prior = prior
	opts.Pins = []Pin{{EmployeeID: "e04", Slot: slot}}

	p, err := Build(m, roster(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.ForcedAt(slot) != "e04" {
		t.Errorf("Explicit pin should win over prior freeze, got %q", p.ForcedAt(slot))
	}
}

func TestProblem_Evaluate(t *testing.T) {
	m := month(t)
	override2 := 2
	override0 := 0
	emps := []*model.Employee{
		{ID: "e01", Tier: model.TierHigh, Active: true, QuotaOverride: &override2},
		{ID: "e02", Tier: model.TierHigh, Active: true, QuotaOverride: &override0},
	}
	opts := DefaultOptions()
	opts.RequireFullCoverage = false
	p, err := Build(m, emps, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	a := model.NewAssignment(m)
	a.Assign(model.ShiftSlot{Day: 1, Kind: model.SlotDay}, "e01")

	// e01 偏差 -1，e02 偏差 0：配额惩罚 1，方差 0.25，空班位 55
	want := p.Weights.Quota*1 + p.Weights.Fairness*0.25 + p.Weights.Coverage*55
	if got := p.Evaluate(a); got != want {
		t.Errorf("Evaluate = %v, want %v", got, want)
	}
}
