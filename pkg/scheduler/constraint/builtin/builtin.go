// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"sort"

	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// 约束覆盖配置的键
const (
	KeyDisable              = "disable"
	KeyFairnessWeight       = "fairness_weight"
	KeyOvertimeWeight       = "overtime_weight"
	KeyPreferenceWeight     = "preference_weight"
	KeyStandardHoursPerWeek = "standard_hours_per_week"
)

// 默认软约束权重
const (
	DefaultFairnessWeight       = 60
	DefaultOvertimeWeight       = 70
	DefaultPreferenceWeight     = 50
	DefaultStandardHoursPerWeek = 40
)

// RegisterDefaultConstraints 注册默认约束到管理器
// 五个硬约束始终注册；软约束可通过 disable 关闭或调整权重
func RegisterDefaultConstraints(manager *constraint.Manager, config map[string]interface{}) {
	disabled := make(map[constraint.Type]bool)
	for _, t := range getConfigStrings(config, KeyDisable) {
		disabled[constraint.Type(t)] = true
	}

	// 注册硬约束
	manager.Register(NewQualificationConstraint())
	manager.Register(NewAvailabilityConstraint())
	manager.Register(NewNoDoubleBookingConstraint())
	manager.Register(NewRestPeriodConstraint())
	manager.Register(NewMaxHoursPerWeekConstraint())

	// 注册软约束
	if !disabled[constraint.TypeWorkloadBalance] {
		manager.Register(NewWorkloadBalanceConstraint(getConfigInt(config, KeyFairnessWeight, DefaultFairnessWeight)))
	}
	if !disabled[constraint.TypeMinimizeOvertime] {
		manager.Register(NewMinimizeOvertimeConstraint(
			getConfigInt(config, KeyOvertimeWeight, DefaultOvertimeWeight),
			getConfigInt(config, KeyStandardHoursPerWeek, DefaultStandardHoursPerWeek),
		))
	}
	if !disabled[constraint.TypeEmployeePreference] {
		manager.Register(NewEmployeePreferenceConstraint(getConfigInt(config, KeyPreferenceWeight, DefaultPreferenceWeight)))
	}
}

// NewDefaultManager 创建注册了默认约束的管理器
func NewDefaultManager(config map[string]interface{}) *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m, config)
	return m
}

// ValidateOverrides 校验约束覆盖配置，返回按键排序的问题列表
func ValidateOverrides(config map[string]interface{}) map[string]string {
	problems := make(map[string]string)
	soft := map[constraint.Type]bool{
		constraint.TypeWorkloadBalance:    true,
		constraint.TypeMinimizeOvertime:   true,
		constraint.TypeEmployeePreference: true,
	}

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := config[key]
		switch key {
		case KeyDisable:
			list, ok := toStrings(val)
			if !ok {
				problems[key] = "必须是约束类型列表"
				continue
			}
			for _, t := range list {
				if !soft[constraint.Type(t)] {
					problems[key] = fmt.Sprintf("只能关闭软约束，%q 不可关闭", t)
				}
			}
		case KeyFairnessWeight, KeyOvertimeWeight, KeyPreferenceWeight:
			if n, ok := toInt(val); !ok || n < 0 {
				problems[key] = "必须是非负整数"
			}
		case KeyStandardHoursPerWeek:
			if n, ok := toInt(val); !ok || n <= 0 || n > 168 {
				problems[key] = "必须是 1-168 之间的整数"
			}
		default:
			problems[key] = "未知的约束配置项"
		}
	}
	return problems
}

// ValidateCustom 校验自定义约束，键为 custom[i]
// 自定义约束不能为空，类型不能与内置约束或其他自定义约束重复，否则注册时会替换掉对方
func ValidateCustom(custom []constraint.Constraint) map[string]string {
	problems := make(map[string]string)
	reserved := make(map[constraint.Type]bool)
	for _, c := range NewDefaultManager(nil).GetAll() {
		reserved[c.Type()] = true
	}

	seen := make(map[constraint.Type]int)
	for i, c := range custom {
		field := fmt.Sprintf("custom[%d]", i)
		if c == nil {
			problems[field] = "不能为空"
			continue
		}
		t := c.Type()
		switch {
		case reserved[t]:
			problems[field] = fmt.Sprintf("类型 %q 与内置约束重复", t)
		case seen[t] > 0:
			problems[field] = fmt.Sprintf("类型 %q 与 custom[%d] 重复", t, seen[t]-1)
		default:
			seen[t] = i + 1
		}
	}
	return problems
}

// getConfigInt 从配置中获取整数
func getConfigInt(config map[string]interface{}, key string, defaultVal int) int {
	if config == nil {
		return defaultVal
	}
	if n, ok := toInt(config[key]); ok {
		return n
	}
	return defaultVal
}

// getConfigStrings 从配置中获取字符串列表
func getConfigStrings(config map[string]interface{}, key string) []string {
	if config == nil {
		return nil
	}
	list, _ := toStrings(config[key])
	return list
}

func toInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// toStrings 兼容 []string 与 YAML/JSON 解码得到的 []interface{}
func toStrings(val interface{}) ([]string, bool) {
	switch v := val.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
