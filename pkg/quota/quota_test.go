package quota

import (
	"testing"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
)

func TestResolve_BaseTable(t *testing.T) {
	cases := []struct {
		days int
		tier model.ExperienceTier
		want int
	}{
		{28, model.TierHigh, 22},
		{28, model.TierLow, 18},
		{29, model.TierHigh, 22},
		{29, model.TierLow, 21},
		{30, model.TierHigh, 23},
		{30, model.TierLow, 21},
		{31, model.TierHigh, 24},
		{31, model.TierLow, 21},
	}
	for _, c := range cases {
		got, err := Resolve(c.days, c.tier, nil)
		if err != nil {
			t.Fatalf("Resolve(%d, %s) returned error: %v", c.days, c.tier, err)
		}
		if got != c.want {
			t.Errorf("Resolve(%d, %s) = %d, want %d", c.days, c.tier, got, c.want)
		}
	}
}

func TestResolve_OverrideWins(t *testing.T) {
	override := 15
	got, err := Resolve(31, model.TierHigh, &override)
	if err != nil {
		t.Fatalf("Resolve with override returned error: %v", err)
	}
	if got != 15 {
		t.Errorf("Resolve with override = %d, want 15", got)
	}

	// 覆盖值 0 也有效（本月不排班）
	zero := 0
	got, err = Resolve(31, model.TierLow, &zero)
	if err != nil {
		t.Fatalf("Resolve with zero override returned error: %v", err)
	}
	if got != 0 {
		t.Errorf("Resolve with zero override = %d, want 0", got)
	}
}

func TestResolve_NegativeOverrideIgnored(t *testing.T) {
	neg := -1
	got, err := Resolve(28, model.TierHigh, &neg)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != 22 {
		t.Errorf("Negative override should fall back to base table, got %d", got)
	}
}

func TestResolve_UnsupportedMonthLength(t *testing.T) {
	for _, days := range []int{27, 32, 0} {
		_, err := Resolve(days, model.TierHigh, nil)
		if !errors.Is(err, errors.CodeUnsupportedMonthLength) {
			t.Errorf("Resolve(%d) error = %v, want UNSUPPORTED_MONTH_LENGTH", days, err)
		}
	}
}

func TestResolve_OverrideBypassesTable(t *testing.T) {
	// 覆盖值优先级高于基础表，即使月长度不在表中
	override := 10
	got, err := Resolve(27, model.TierLow, &override)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != 10 {
		t.Errorf("Resolve(27, override=10) = %d, want 10", got)
	}
}

func TestResolveAll(t *testing.T) {
	override := 5
	employees := []*model.Employee{
		{ID: "e01", Tier: model.TierHigh, Active: true},
		{ID: "e02", Tier: model.TierLow, Active: true},
		{ID: "e03", Tier: model.TierLow, Active: true, QuotaOverride: &override},
	}

	quotas, err := ResolveAll(30, employees)
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if quotas["e01"] != 23 || quotas["e02"] != 21 || quotas["e03"] != 5 {
		t.Errorf("ResolveAll = %v, want e01:23 e02:21 e03:5", quotas)
	}
}
