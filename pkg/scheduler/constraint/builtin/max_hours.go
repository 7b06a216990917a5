// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// MaxHoursPerWeekConstraint 每周最大工时约束
// 按 ISO 周（周一开始）汇总员工已排工时，班次归属其开始日期所在周
type MaxHoursPerWeekConstraint struct {
	*BaseConstraint
}

// NewMaxHoursPerWeekConstraint 创建每周最大工时约束
func NewMaxHoursPerWeekConstraint() *MaxHoursPerWeekConstraint {
	return &MaxHoursPerWeekConstraint{
		BaseConstraint: NewBaseConstraint(
			"每周最大工时",
			constraint.TypeMaxHoursPerWeek,
			constraint.CategoryHard,
			hardWeight,
		).withConflict(model.ConflictMaxHoursExceeded),
	}
}

// Evaluate 评估整个排班，每个超时的 (员工, 周) 上报一次
func (c *MaxHoursPerWeekConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, empID := range ctx.EmployeeIDs() {
		emp := ctx.GetEmployee(empID)
		if emp == nil {
			continue
		}

		type weekLoad struct {
			minutes int
			first   *model.Shift
			ids     []uuid.UUID
		}
		weeks := make(map[string]*weekLoad)
		for _, a := range ctx.GetEmployeeAssignments(empID) {
			s := ctx.GetShift(a.ShiftID)
			if s == nil {
				continue
			}
			key := s.WeekKey()
			w, ok := weeks[key]
			if !ok {
				w = &weekLoad{first: s}
				weeks[key] = w
			}
			w.minutes += s.DurationMinutes()
			w.ids = append(w.ids, a.ID)
		}

		keys := make([]string, 0, len(weeks))
		for k := range weeks {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			w := weeks[key]
			if w.minutes <= c.WeeklyCapMinutes(emp) {
				continue
			}
			hours := float64(w.minutes) / 60
			penalty := c.Weight() * ((w.minutes - c.WeeklyCapMinutes(emp) + 59) / 60)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(emp.ID, w.first,
				fmt.Sprintf("员工 %s 在 %s 工作 %.1f 小时，超过每周上限 %d 小时", emp.Name, key, hours, emp.MaxHoursPerWeek),
				penalty, w.ids...))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配：加入该分配后所在周是否超时
func (c *MaxHoursPerWeekConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}
	total := shift.DurationMinutes()
	key := shift.WeekKey()
	for _, o := range others(ctx, a) {
		if s := ctx.GetShift(o.ShiftID); s != nil && s.WeekKey() == key {
			total += s.DurationMinutes()
		}
	}
	if over := total - c.WeeklyCapMinutes(emp); over > 0 {
		return false, c.Weight() * ((over + 59) / 60)
	}
	return true, 0
}

// AllowsPair 实现 constraint.PairFilter：单个班次就超出上限的组合不可能合法
func (c *MaxHoursPerWeekConstraint) AllowsPair(e *model.Employee, s *model.Shift) bool {
	return s.DurationMinutes() <= c.WeeklyCapMinutes(e)
}

// WeeklyCapMinutes 实现 constraint.WeeklyCap
func (c *MaxHoursPerWeekConstraint) WeeklyCapMinutes(e *model.Employee) int {
	return e.MaxMinutesPerWeek()
}
