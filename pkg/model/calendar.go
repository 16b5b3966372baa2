// Package model 定义月度排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/yueban/yueban/pkg/errors"
)

// SlotKind 班次类型
type SlotKind string

const (
	SlotDay   SlotKind = "day"   // 白班
	SlotNight SlotKind = "night" // 夜班
)

// SlotKinds 返回一天内班次的固定顺序
func SlotKinds() []SlotKind {
	return []SlotKind{SlotDay, SlotNight}
}

// ShiftSlot 班位：某一天的某个班次，排班的原子单位
type ShiftSlot struct {
	Day  int      `json:"day"` // 月内序号，1 起
	Kind SlotKind `json:"kind"`
}

// String 返回班位的规范表示，如 "d03/night"
func (s ShiftSlot) String() string {
	return fmt.Sprintf("d%02d/%s", s.Day, s.Kind)
}

// Less 按（天、班次顺序）比较班位，用于确定性排序
func (s ShiftSlot) Less(other ShiftSlot) bool {
	if s.Day != other.Day {
		return s.Day < other.Day
	}
	return slotRank(s.Kind) < slotRank(other.Kind)
}

func slotRank(k SlotKind) int {
	if k == SlotDay {
		return 0
	}
	return 1
}

// 支持的年份范围
const (
	minYear = 2000
	maxYear = 2100
)

// Month 排班月历：固定长度的有序天序列，构造后不可变
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	days  int
}

// NewMonth 根据（年、月）构造月历
func NewMonth(year, month int) (*Month, error) {
	if month < 1 || month > 12 || year < minYear || year > maxYear {
		return nil, errors.InvalidMonth(year, month)
	}
	return &Month{
		Year:  year,
		Month: time.Month(month),
		days:  daysIn(year, time.Month(month)),
	}, nil
}

// daysIn 计算某月的天数
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Days 返回月长度（28-31）
func (m *Month) Days() int {
	return m.days
}

// Key 返回 "YYYY-MM" 形式的月份键
func (m *Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Slots 返回全月班位的确定性顺序：天升序，天内白班在前
func (m *Month) Slots() []ShiftSlot {
	slots := make([]ShiftSlot, 0, m.days*len(SlotKinds()))
	for day := 1; day <= m.days; day++ {
		for _, kind := range SlotKinds() {
			slots = append(slots, ShiftSlot{Day: day, Kind: kind})
		}
	}
	return slots
}

// Contains 检查班位是否属于该月
func (m *Month) Contains(s ShiftSlot) bool {
	if s.Day < 1 || s.Day > m.days {
		return false
	}
	return s.Kind == SlotDay || s.Kind == SlotNight
}

// Date 返回某天对应的日期
func (m *Month) Date(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}
