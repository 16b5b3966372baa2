package validator

import (
	"testing"

	"github.com/yueban/yueban/pkg/model"
)

func month28(t *testing.T) *model.Month {
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
		{ID: "e02", Tier: model.TierLow, Active: true},
		{ID: "e03", Tier: model.TierLow, Active: false},
	}
}

func hasConflict(conflicts []Conflict, typ ConflictType) bool {
	for _, c := range conflicts {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func TestValidateManual_CleanAssignment(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)

	conflicts := ValidateManual(m, roster(), a, "e01", model.ShiftSlot{Day: 5, Kind: model.SlotDay})
	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %v", conflicts)
	}
}

func TestValidateManual_UnknownEmployee(t *testing.T) {
	m := month28(t)
	conflicts := ValidateManual(m, roster(), nil, "ghost", model.ShiftSlot{Day: 1, Kind: model.SlotDay})
	if !hasConflict(conflicts, ConflictUnknown) {
		t.Errorf("Expected unknown-employee conflict, got %v", conflicts)
	}
}

func TestValidateManual_InactiveEmployee(t *testing.T) {
	m := month28(t)
	conflicts := ValidateManual(m, roster(), nil, "e03", model.ShiftSlot{Day: 1, Kind: model.SlotDay})
	if !hasConflict(conflicts, ConflictInactive) {
		t.Errorf("Expected inactive conflict, got %v", conflicts)
	}
}

func TestValidateManual_OutOfMonth(t *testing.T) {
	m := month28(t)
	conflicts := ValidateManual(m, roster(), nil, "e01", model.ShiftSlot{Day: 29, Kind: model.SlotDay})
	if !hasConflict(conflicts, ConflictOutOfMonth) {
		t.Errorf("Expected out-of-month conflict, got %v", conflicts)
	}
}

func TestValidateManual_OffShift(t *testing.T) {
	m := month28(t)
	emps := roster()
	off := model.ShiftSlot{Day: 8, Kind: model.SlotNight}
	emps[0].OffShifts = []model.ShiftSlot{off}

	conflicts := ValidateManual(m, emps, nil, "e01", off)
	if !hasConflict(conflicts, ConflictOffShift) {
		t.Errorf("Expected off-shift conflict, got %v", conflicts)
	}
}

func TestValidateManual_SameDay(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)
	a.Assign(model.ShiftSlot{Day: 5, Kind: model.SlotDay}, "e01")

	conflicts := ValidateManual(m, roster(), a, "e01", model.ShiftSlot{Day: 5, Kind: model.SlotNight})
	if !hasConflict(conflicts, ConflictSameDay) {
		t.Errorf("Expected same-day conflict, got %v", conflicts)
	}
}

func TestValidateManual_PostNight(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)
	a.Assign(model.ShiftSlot{Day: 4, Kind: model.SlotNight}, "e01")

	conflicts := ValidateManual(m, roster(), a, "e01", model.ShiftSlot{Day: 5, Kind: model.SlotDay})
	if !hasConflict(conflicts, ConflictPostNight) {
		t.Errorf("Expected post-night conflict, got %v", conflicts)
	}
}

func TestValidateManual_NightBeforeBusyDay(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)
	a.Assign(model.ShiftSlot{Day: 6, Kind: model.SlotDay}, "e01")

	// 钉入第 5 天夜班要求第 6 天整天空闲
	conflicts := ValidateManual(m, roster(), a, "e01", model.ShiftSlot{Day: 5, Kind: model.SlotNight})
	if !hasConflict(conflicts, ConflictNextDay) {
		t.Errorf("Expected next-day conflict, got %v", conflicts)
	}
}

func TestValidateManual_SlotOccupied(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)
	slot := model.ShiftSlot{Day: 3, Kind: model.SlotDay}
	a.Assign(slot, "e02")

	conflicts := ValidateManual(m, roster(), a, "e01", slot)
	if !hasConflict(conflicts, ConflictSlotOccupied) {
		t.Errorf("Expected slot-occupied conflict, got %v", conflicts)
	}

	// 已被自己占用则不算冲突
	conflicts = ValidateManual(m, roster(), a, "e02", slot)
	if hasConflict(conflicts, ConflictSlotOccupied) {
		t.Error("Re-pinning the same employee should not conflict")
	}
}

func TestValidateAssignment_DetectsViolations(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)
	a.Assign(model.ShiftSlot{Day: 2, Kind: model.SlotNight}, "e01")
	a.Assign(model.ShiftSlot{Day: 3, Kind: model.SlotDay}, "e01") // 夜班后出勤
	a.Assign(model.ShiftSlot{Day: 10, Kind: model.SlotDay}, "e03") // 不在职

	conflicts := ValidateAssignment(m, roster(), a)
	if !hasConflict(conflicts, ConflictPostNight) {
		t.Errorf("Expected post-night violation, got %v", conflicts)
	}
	if !hasConflict(conflicts, ConflictInactive) {
		t.Errorf("Expected inactive violation, got %v", conflicts)
	}
}

func TestValidateAssignment_CleanSchedule(t *testing.T) {
	m := month28(t)
	a := model.NewAssignment(m)
	a.Assign(model.ShiftSlot{Day: 1, Kind: model.SlotDay}, "e01")
	a.Assign(model.ShiftSlot{Day: 1, Kind: model.SlotNight}, "e02")
	a.Assign(model.ShiftSlot{Day: 2, Kind: model.SlotDay}, "e01")

	if conflicts := ValidateAssignment(m, roster(), a); len(conflicts) != 0 {
		t.Errorf("Expected clean schedule, got %v", conflicts)
	}
}
