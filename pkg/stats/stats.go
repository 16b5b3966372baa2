// Package stats 统计排班结果并给出公平性评估
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/yueban/yueban/pkg/model"
)

// EmployeeStat 单员工统计
type EmployeeStat struct {
	EmployeeID string               `json:"employee_id"`
	Name       string               `json:"name"`
	Tier       model.ExperienceTier `json:"tier"`
	DayShifts  int                  `json:"day_shifts"`
	NightShift int                  `json:"night_shifts"`
	Total      int                  `json:"total"`
	Quota      int                  `json:"quota"`
	Deviation  int                  `json:"deviation"` // Total - Quota，可为负
}

// Summary 整月统计
type Summary struct {
	MonthKey      string         `json:"month_key"`
	TotalSlots    int            `json:"total_slots"`
	FilledSlots   int            `json:"filled_slots"`
	UnfilledSlots int            `json:"unfilled_slots"`
	Employees     []EmployeeStat `json:"employees"`
	FairnessScore float64        `json:"fairness_score"` // 0-100，越高越均衡
	Suggestions   []string       `json:"suggestions"`
}

// Compute 根据排班结果与配额计算整月统计
func Compute(m *model.Month, employees []*model.Employee, quotas map[string]int, a *model.Assignment) *Summary {
	s := &Summary{
		MonthKey:    m.Key(),
		TotalSlots:  m.Days() * len(model.SlotKinds()),
		FilledSlots: a.FilledCount(),
	}
	s.UnfilledSlots = s.TotalSlots - s.FilledSlots

	for _, e := range employees {
		if !e.IsActive() {
			continue
		}
		st := EmployeeStat{EmployeeID: e.ID, Name: e.Name, Tier: e.Tier, Quota: quotas[e.ID]}
		for _, slot := range a.SlotsFor(e.ID) {
			if slot.Kind == model.SlotNight {
				st.NightShift++
			} else {
				st.DayShifts++
			}
		}
		st.Total = st.DayShifts + st.NightShift
		st.Deviation = st.Total - st.Quota
		s.Employees = append(s.Employees, st)
	}
	sort.Slice(s.Employees, func(i, j int) bool { return s.Employees[i].EmployeeID < s.Employees[j].EmployeeID })

	s.FairnessScore = fairness(s.Employees)
	s.Suggestions = suggest(s)
	return s
}

// fairness 把组内班次数方差映射为 0-100 的得分
func fairness(stats []EmployeeStat) float64 {
	byTier := make(map[model.ExperienceTier][]float64)
	for _, st := range stats {
		byTier[st.Tier] = append(byTier[st.Tier], float64(st.Total))
	}

	var total float64
	var groups int
	for _, counts := range byTier {
		if len(counts) < 2 {
			continue
		}
		total += variance(counts)
		groups++
	}
	if groups == 0 {
		return 100
	}

	// 方差 0 得满分，方差越大得分按指数衰减
	avg := total / float64(groups)
	score := 100 * math.Exp(-avg/4)
	return math.Round(score*10) / 10
}

func variance(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return v / float64(len(xs))
}

// suggest 生成可读的调整建议
func suggest(s *Summary) []string {
	var out []string
	if s.UnfilledSlots > 0 {
		out = append(out, fmt.Sprintf("本月存在 %d 个未排班位，建议补充可用人手或放宽排休", s.UnfilledSlots))
	}

	var over, under []string
	for _, st := range s.Employees {
		switch {
		case st.Deviation >= 3:
			over = append(over, st.EmployeeID)
		case st.Deviation <= -3:
			under = append(under, st.EmployeeID)
		}
	}
	if len(over) > 0 {
		out = append(out, fmt.Sprintf("员工 %v 班次明显超出配额，建议下月减少排班", over))
	}
	if len(under) > 0 {
		out = append(out, fmt.Sprintf("员工 %v 班次明显低于配额，建议下月优先排班", under))
	}
	if s.FairnessScore < 60 {
		out = append(out, "组内班次分布不均，建议启用更高的公平性权重重新生成")
	}
	return out
}
