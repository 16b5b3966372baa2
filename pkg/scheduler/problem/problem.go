// Package problem 将月历、员工快照、配额与手工指定编译为约束问题
//
// 约束问题是每次求解前新建的只读视图：以（员工，班位）为键的布尔决策
// 变量、硬约束集合与加权软目标。求解期间仅由单个求解器持有，不跨求解共享。
package problem

import (
	"math"

	"github.com/yueban/yueban/pkg/model"
)

// Weights 软目标权重，数值越大优先级越高
type Weights struct {
	Quota    float64 `json:"quota"`    // 配额偏差（主要目标）
	Fairness float64 `json:"fairness"` // 同级别偏差方差（次要目标）
	Coverage float64 `json:"coverage"` // 空班位惩罚（再次要目标）
}

// DefaultWeights 返回默认权重
func DefaultWeights() Weights {
	return Weights{Quota: 100, Fairness: 10, Coverage: 1}
}

// Pin 手工指定：强制分配或强制排除某（员工，班位）
type Pin struct {
	EmployeeID string          `json:"employee_id"`
	Slot       model.ShiftSlot `json:"slot"`
	Forbid     bool            `json:"forbid,omitempty"`
}

// Options 构建选项
type Options struct {
	Weights Weights `json:"weights"`

	// RequireFullCoverage 为真时每个班位必须有人（硬约束），
	// 为假时空班位仅计入软目标惩罚
	RequireFullCoverage bool `json:"require_full_coverage"`

	// Pins 手工指定集合
	Pins []Pin `json:"pins,omitempty"`

	// Prior 先前排班：已填班位被冻结为强制分配，仅对空缺求解
	// （月中续排场景；在职状态变化的员工班位不冻结）
	Prior *model.Assignment `json:"prior,omitempty"`
}

// DefaultOptions 返回默认构建选项
func DefaultOptions() Options {
	return Options{
		Weights:             DefaultWeights(),
		RequireFullCoverage: true,
	}
}

// Problem 约束问题实例
type Problem struct {
	Month     *model.Month
	Employees []*model.Employee // 在职员工，ID 升序
	Quotas    map[string]int
	Slots     []model.ShiftSlot // 确定性变量顺序：天升序、白班在前
	Weights   Weights

	RequireFullCoverage bool

	byID       map[string]*model.Employee
	forced     map[model.ShiftSlot]string
	ineligible map[string]map[model.ShiftSlot]bool
}

// VariableCount 返回布尔决策变量数量
func (p *Problem) VariableCount() int {
	return len(p.Employees) * len(p.Slots)
}

// Employee 按 ID 获取员工
func (p *Problem) Employee(id string) *model.Employee {
	return p.byID[id]
}

// Quota 返回员工配额
func (p *Problem) Quota(id string) int {
	return p.Quotas[id]
}

// ForcedAt 返回班位上的强制分配员工，无则返回 model.Unassigned
func (p *Problem) ForcedAt(slot model.ShiftSlot) string {
	return p.forced[slot]
}

// EligibleAt 检查员工是否可被分配到班位
// 覆盖固定排休与强制排除；休息规则等关系约束由求解器在搜索中处理
func (p *Problem) EligibleAt(empID string, slot model.ShiftSlot) bool {
	if blocked, ok := p.ineligible[empID]; ok && blocked[slot] {
		return false
	}
	return true
}

// Evaluate 计算排班的目标惩罚值（越小越优）
func (p *Problem) Evaluate(a *model.Assignment) float64 {
	counts := a.Counts()

	quotaPenalty := 0.0
	devsByTier := make(map[model.ExperienceTier][]float64)
	for _, e := range p.Employees {
		dev := float64(counts[e.ID] - p.Quotas[e.ID])
		quotaPenalty += math.Abs(dev)
		devsByTier[e.Tier] = append(devsByTier[e.Tier], dev)
	}

	fairnessPenalty := 0.0
	for _, devs := range devsByTier {
		fairnessPenalty += variance(devs)
	}

	unfilled := float64(len(p.Slots) - a.FilledCount())

	return p.Weights.Quota*quotaPenalty +
		p.Weights.Fairness*fairnessPenalty +
		p.Weights.Coverage*unfilled
}

// variance 计算总体方差
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return sum / float64(len(values))
}
