// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// EmployeePreferenceConstraint 员工偏好约束（软约束）
// 命中避免项按权重计罚，命中偏好项按半个权重奖励
type EmployeePreferenceConstraint struct {
	*BaseConstraint
}

// NewEmployeePreferenceConstraint 创建员工偏好约束
func NewEmployeePreferenceConstraint(weight int) *EmployeePreferenceConstraint {
	return &EmployeePreferenceConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工偏好",
			constraint.TypeEmployeePreference,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班，只对命中避免项的分配给出详情
func (c *EmployeePreferenceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	ctx.HeldAssignments(func(a *model.Assignment, emp *model.Employee, shift *model.Shift) {
		avoided, _ := emp.PreferenceFor(shift)
		totalPenalty += c.PairCost(emp, shift)
		if avoided == 0 {
			return
		}
		violations = append(violations, c.CreateViolation(emp.ID, shift,
			fmt.Sprintf("员工 %s 希望避免班次 %s (%s %s)", emp.Name, shift.Name, shift.Date, shift.Weekday()),
			c.Weight()*avoided, a.ID))
	})

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *EmployeePreferenceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}
	return true, c.PairCost(emp, shift)
}

// PairCost 实现 constraint.PairScorer
func (c *EmployeePreferenceConstraint) PairCost(e *model.Employee, s *model.Shift) int {
	avoided, preferred := e.PreferenceFor(s)
	return c.Weight()*avoided - c.Weight()*preferred/2
}
