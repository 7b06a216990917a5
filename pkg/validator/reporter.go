// Package validator 提供排班验证功能
package validator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftcore/pkg/errors"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint/builtin"
)

// Reporter 冲突报告器
// 与排班生成使用同一套约束，分类结果一致
type Reporter struct {
	config map[string]interface{}
	custom []constraint.Constraint
}

// NewReporter 创建冲突报告器
// config 为内置约束覆盖配置，custom 为额外的自定义约束
func NewReporter(config map[string]interface{}, custom ...constraint.Constraint) *Reporter {
	return &Reporter{config: config, custom: custom}
}

// Report 检查任意分配集，返回硬约束冲突
// 只检查班次日期落在 dateRange 内的分配，已拒绝的分配被忽略
func (r *Reporter) Report(assignments []*model.Assignment, employees []*model.Employee, shifts []*model.Shift, dateRange model.DateRange) ([]model.Conflict, error) {
	ve := &apperrors.ValidationErrors{}
	for k, msg := range builtin.ValidateOverrides(r.config) {
		ve.Add("constraints."+k, msg)
	}
	for k, msg := range builtin.ValidateCustom(r.custom) {
		ve.Add(k, msg)
	}

	known := make(map[uuid.UUID]*model.Shift, len(shifts))
	var inRange []*model.Shift
	for _, s := range shifts {
		if s == nil {
			continue
		}
		known[s.ID] = s
		if dateRange.Contains(s.Date) {
			inRange = append(inRange, s)
		}
	}

	var scoped []*model.Assignment
	for i, a := range assignments {
		if a == nil {
			ve.Add(fmt.Sprintf("assignments[%d]", i), "不能为空")
			continue
		}
		s, ok := known[a.ShiftID]
		if !ok {
			ve.Add(fmt.Sprintf("assignments[%d].shift_id", i), fmt.Sprintf("引用了不存在的班次 %s", a.ShiftID))
			continue
		}
		if dateRange.Contains(s.Date) {
			scoped = append(scoped, a)
		}
	}

	err := model.ValidateProblem(model.Problem{
		Employees:   employees,
		Shifts:      inRange,
		Assignments: scoped,
		DateRange:   dateRange,
	})
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			return nil, err
		}
		for k, v := range appErr.Fields {
			ve.Add(k, fmt.Sprint(v))
		}
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}

	manager := builtin.NewDefaultManager(r.config)
	for _, c := range r.custom {
		manager.Register(c)
	}
	return constraint.Evaluate(scoped, employees, inRange, manager), nil
}

// CategoryCount 某类冲突的数量
type CategoryCount struct {
	Category model.ConflictCategory `json:"category"`
	Count    int                    `json:"count"`
}

// Summarize 按类别统计冲突，按类别名排序
func Summarize(conflicts []model.Conflict) []CategoryCount {
	counts := make(map[model.ConflictCategory]int)
	for _, c := range conflicts {
		counts[c.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
