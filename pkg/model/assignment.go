// Package model 定义月度排班引擎的核心数据模型
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Unassigned 空班位的员工标识
const Unassigned = ""

// Assignment 月度排班结果：班位到员工 ID 的映射
// 值语义：求解与补班都返回新副本，调用方可对新旧副本做差异比较
type Assignment struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Days  int    `json:"days"`
	slots map[ShiftSlot]string
}

// NewAssignment 创建某月的空排班
func NewAssignment(m *Month) *Assignment {
	return &Assignment{
		Year:  m.Year,
		Month: int(m.Month),
		Days:  m.Days(),
		slots: make(map[ShiftSlot]string),
	}
}

// Clone 深拷贝排班
func (a *Assignment) Clone() *Assignment {
	clone := &Assignment{
		Year:  a.Year,
		Month: a.Month,
		Days:  a.Days,
		slots: make(map[ShiftSlot]string, len(a.slots)),
	}
	for slot, emp := range a.slots {
		clone.slots[slot] = emp
	}
	return clone
}

// Assign 将班位分配给员工
func (a *Assignment) Assign(slot ShiftSlot, empID string) {
	if empID == Unassigned {
		delete(a.slots, slot)
		return
	}
	a.slots[slot] = empID
}

// Unassign 清空班位
func (a *Assignment) Unassign(slot ShiftSlot) {
	delete(a.slots, slot)
}

// EmployeeAt 返回班位上的员工，空班位返回 Unassigned
func (a *Assignment) EmployeeAt(slot ShiftSlot) string {
	return a.slots[slot]
}

// Filled 检查班位是否已分配
func (a *Assignment) Filled(slot ShiftSlot) bool {
	_, ok := a.slots[slot]
	return ok
}

// FilledCount 返回已分配班位总数
func (a *Assignment) FilledCount() int {
	return len(a.slots)
}

// CountFor 返回员工的已分配班位数
func (a *Assignment) CountFor(empID string) int {
	count := 0
	for _, emp := range a.slots {
		if emp == empID {
			count++
		}
	}
	return count
}

// Counts 返回每个员工的已分配班位数
func (a *Assignment) Counts() map[string]int {
	counts := make(map[string]int)
	for _, emp := range a.slots {
		counts[emp]++
	}
	return counts
}

// SlotsFor 返回员工的全部班位（确定性顺序）
func (a *Assignment) SlotsFor(empID string) []ShiftSlot {
	var slots []ShiftSlot
	for slot, emp := range a.slots {
		if emp == empID {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
	return slots
}

// WorksOn 检查员工某天是否有班
func (a *Assignment) WorksOn(empID string, day int) bool {
	for _, kind := range SlotKinds() {
		if a.slots[ShiftSlot{Day: day, Kind: kind}] == empID {
			return true
		}
	}
	return false
}

// AllSlots 返回该月全部班位（含空班位）的确定性顺序
func (a *Assignment) AllSlots() []ShiftSlot {
	slots := make([]ShiftSlot, 0, a.Days*len(SlotKinds()))
	for day := 1; day <= a.Days; day++ {
		for _, kind := range SlotKinds() {
			slots = append(slots, ShiftSlot{Day: day, Kind: kind})
		}
	}
	return slots
}

// UnfilledSlots 返回空班位列表（确定性顺序）
func (a *Assignment) UnfilledSlots() []ShiftSlot {
	var unfilled []ShiftSlot
	for _, slot := range a.AllSlots() {
		if !a.Filled(slot) {
			unfilled = append(unfilled, slot)
		}
	}
	return unfilled
}

// Equal 检查两个排班是否完全一致
func (a *Assignment) Equal(other *Assignment) bool {
	if other == nil || a.Year != other.Year || a.Month != other.Month ||
		a.Days != other.Days || len(a.slots) != len(other.slots) {
		return false
	}
	for slot, emp := range a.slots {
		if other.slots[slot] != emp {
			return false
		}
	}
	return true
}

// Diff 返回两个排班之间分配不同的班位（确定性顺序）
func (a *Assignment) Diff(other *Assignment) []ShiftSlot {
	var changed []ShiftSlot
	for _, slot := range a.AllSlots() {
		if a.slots[slot] != other.slots[slot] {
			changed = append(changed, slot)
		}
	}
	return changed
}

// Canonical 返回排班的规范字符串，相同排班字节级一致
func (a *Assignment) Canonical() string {
	var b strings.Builder
	for _, slot := range a.AllSlots() {
		b.WriteString(slot.String())
		b.WriteByte('=')
		b.WriteString(a.slots[slot])
		b.WriteByte(';')
	}
	return b.String()
}

// Grid 返回 "dNN/kind" 到员工 ID 的展开网格（仅含已分配班位）
func (a *Assignment) Grid() map[string]string {
	grid := make(map[string]string, len(a.slots))
	for slot, emp := range a.slots {
		grid[slot.String()] = emp
	}
	return grid
}

// assignmentJSON 排班的序列化形式
type assignmentJSON struct {
	Year  int               `json:"year"`
	Month int               `json:"month"`
	Days  int               `json:"days"`
	Grid  map[string]string `json:"grid"`
}

// MarshalJSON 实现 json.Marshaler
func (a *Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(assignmentJSON{
		Year:  a.Year,
		Month: a.Month,
		Days:  a.Days,
		Grid:  a.Grid(),
	})
}

// UnmarshalJSON 实现 json.Unmarshaler
func (a *Assignment) UnmarshalJSON(data []byte) error {
	var raw assignmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Year = raw.Year
	a.Month = raw.Month
	a.Days = raw.Days
	a.slots = make(map[ShiftSlot]string, len(raw.Grid))
	for key, emp := range raw.Grid {
		slot, err := ParseSlot(key)
		if err != nil {
			return err
		}
		a.slots[slot] = emp
	}
	return nil
}

// ParseSlot 解析 "dNN/kind" 形式的班位键
func ParseSlot(key string) (ShiftSlot, error) {
	var day int
	var kind string
	if _, err := fmt.Sscanf(key, "d%02d/%s", &day, &kind); err != nil {
		return ShiftSlot{}, fmt.Errorf("无效班位键 %q: %w", key, err)
	}
	k := SlotKind(kind)
	if k != SlotDay && k != SlotNight {
		return ShiftSlot{}, fmt.Errorf("无效班次类型 %q", kind)
	}
	return ShiftSlot{Day: day, Kind: k}, nil
}
