// Package constraints 内置约束目录
package constraints

import (
	"strconv"

	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint/builtin"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Source      string `json:"source"` // override 覆盖配置, employee 员工字段, shift 班次字段
	Type        string `json:"type"`   // int, bool, array, object
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        constraint.Type     `json:"name"`
	DisplayName string              `json:"display_name"`
	Category    constraint.Category `json:"category"`
	Group       string              `json:"group"`
	Description string              `json:"description"`
	Disableable bool                `json:"disableable"`
	Params      []ConstraintParam   `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// GetLibrary 获取内置约束目录，顺序与默认注册顺序一致
func GetLibrary() []ConstraintDefinition {
	return []ConstraintDefinition{
		{
			Name:        constraint.TypeQualification,
			DisplayName: "资质匹配",
			Category:    constraint.CategoryHard,
			Group:       "人岗匹配",
			Description: "员工必须具备班次要求的全部资质。",
			Params: []ConstraintParam{
				{Name: "required_qualifications", Source: "shift", Type: "array", Description: "班次要求的资质"},
				{Name: "qualifications", Source: "employee", Type: "array", Description: "员工持有的资质"},
			},
		},
		{
			Name:        constraint.TypeAvailability,
			DisplayName: "可用时间",
			Category:    constraint.CategoryHard,
			Group:       "人岗匹配",
			Description: "员工必须在职，班次必须完整落在其某个单日可用时段内，跨夜班次不能由相邻两天的时段拼接覆盖。",
			Params: []ConstraintParam{
				{Name: "availability", Source: "employee", Type: "array", Description: "按星期几声明的可用时段，00:00-00:00 表示全天"},
			},
		},
		{
			Name:        constraint.TypeNoDoubleBooking,
			DisplayName: "禁止重复排班",
			Category:    constraint.CategoryHard,
			Group:       "时间冲突",
			Description: "同一员工的班次时间不能重叠，首尾相接不算重叠。",
			Params: []ConstraintParam{
				{Name: "allow_concurrent", Source: "shift", Type: "bool", Description: "允许与其他班次同时进行", Default: "false"},
			},
		},
		{
			Name:        constraint.TypeRestPeriod,
			DisplayName: "班次间最小休息",
			Category:    constraint.CategoryHard,
			Group:       "休息保障",
			Description: "同一员工相邻两个班次之间的间隔不少于最小休息时长。",
			Params: []ConstraintParam{
				{Name: "min_rest_hours", Source: "employee", Type: "int", Description: "最小休息时间(小时)", Default: "0", Min: "0", Max: "72"},
			},
		},
		{
			Name:        constraint.TypeMaxHoursPerWeek,
			DisplayName: "每周最大工时",
			Category:    constraint.CategoryHard,
			Group:       "工时限制",
			Description: "员工每个 ISO 周的累计工时不超过上限，上限为 0 表示不排班。",
			Params: []ConstraintParam{
				{Name: "max_hours_per_week", Source: "employee", Type: "int", Description: "最大工时(小时)", Min: "0", Max: "168"},
			},
		},
		{
			Name:        constraint.TypeWorkloadBalance,
			DisplayName: "工时均衡",
			Category:    constraint.CategorySoft,
			Group:       "公平性",
			Description: "缩小可排班员工之间工时的最大差距。",
			Disableable: true,
			Params: []ConstraintParam{
				weightParam(builtin.KeyFairnessWeight, builtin.DefaultFairnessWeight),
			},
		},
		{
			Name:        constraint.TypeMinimizeOvertime,
			DisplayName: "减少加班",
			Category:    constraint.CategorySoft,
			Group:       "工时限制",
			Description: "员工每周超出标准工时的部分按分钟计入惩罚。",
			Disableable: true,
			Params: []ConstraintParam{
				weightParam(builtin.KeyOvertimeWeight, builtin.DefaultOvertimeWeight),
				{
					Name:        builtin.KeyStandardHoursPerWeek,
					Source:      "override",
					Type:        "int",
					Description: "每周标准工时(小时)",
					Default:     strconv.Itoa(builtin.DefaultStandardHoursPerWeek),
					Min:         "1",
					Max:         "168",
				},
			},
		},
		{
			Name:        constraint.TypeEmployeePreference,
			DisplayName: "员工偏好",
			Category:    constraint.CategorySoft,
			Group:       "员工满意度",
			Description: "优先安排员工偏好的班次标签和日期，避开员工回避的。",
			Disableable: true,
			Params: []ConstraintParam{
				weightParam(builtin.KeyPreferenceWeight, builtin.DefaultPreferenceWeight),
				{Name: "preferences", Source: "employee", Type: "object", Description: "偏好与回避的标签、星期几"},
			},
		},
	}
}

// Lookup 按类型查找约束定义
func Lookup(t constraint.Type) (ConstraintDefinition, bool) {
	for _, def := range GetLibrary() {
		if def.Name == t {
			return def, true
		}
	}
	return ConstraintDefinition{}, false
}

func weightParam(key string, def int) ConstraintParam {
	return ConstraintParam{
		Name:        key,
		Source:      "override",
		Type:        "int",
		Description: "优化权重",
		Default:     strconv.Itoa(def),
		Min:         "0",
	}
}
