// Package quota 提供按月长度与经验级别的班次配额解析
package quota

import (
	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/model"
)

// tierQuota 单个月长度下各级别的基础配额
type tierQuota struct {
	high int
	low  int
}

// baseQuotas 基础配额表，进程启动时初始化，之后只读
var baseQuotas = map[int]tierQuota{
	28: {high: 22, low: 18},
	29: {high: 22, low: 21},
	30: {high: 23, low: 21},
	31: {high: 24, low: 21},
}

// Resolve 解析员工配额：非负的自定义覆盖值无条件优先于基础表
func Resolve(monthLength int, tier model.ExperienceTier, override *int) (int, error) {
	if override != nil && *override >= 0 {
		return *override, nil
	}
	base, ok := baseQuotas[monthLength]
	if !ok {
		return 0, errors.UnsupportedMonthLength(monthLength)
	}
	if tier == model.TierHigh {
		return base.high, nil
	}
	return base.low, nil
}

// ResolveAll 解析一组员工的配额，键为员工 ID
func ResolveAll(monthLength int, employees []*model.Employee) (map[string]int, error) {
	quotas := make(map[string]int, len(employees))
	for _, e := range employees {
		q, err := Resolve(monthLength, e.Tier, e.QuotaOverride)
		if err != nil {
			return nil, err
		}
		quotas[e.ID] = q
	}
	return quotas, nil
}
