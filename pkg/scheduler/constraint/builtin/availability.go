// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// AvailabilityConstraint 可用时段约束
// 班次必须完整落在员工某个每周可用时段内；离职员工、未声明时段的员工一律不可用
type AvailabilityConstraint struct {
	*BaseConstraint
}

// NewAvailabilityConstraint 创建可用时段约束
func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint(
			"可用时段",
			constraint.TypeAvailability,
			constraint.CategoryHard,
			hardWeight,
		).withConflict(model.ConflictAvailabilityViolation),
	}
}

// Evaluate 评估整个排班
func (c *AvailabilityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	ctx.HeldAssignments(func(a *model.Assignment, emp *model.Employee, shift *model.Shift) {
		if emp.IsAvailableFor(shift) {
			return
		}
		totalPenalty += c.Weight()
		violations = append(violations, c.CreateViolation(emp.ID, shift, unavailableReason(emp, shift), c.Weight(), a.ID))
	})

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *AvailabilityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}
	if !emp.IsAvailableFor(shift) {
		return false, c.Weight()
	}
	return true, 0
}

// AllowsPair 实现 constraint.PairFilter
func (c *AvailabilityConstraint) AllowsPair(e *model.Employee, s *model.Shift) bool {
	return e.IsAvailableFor(s)
}

func unavailableReason(emp *model.Employee, shift *model.Shift) string {
	switch {
	case !emp.IsActive():
		return fmt.Sprintf("员工 %s 已停用，不可排班", emp.Name)
	case len(emp.Availability) == 0:
		return fmt.Sprintf("员工 %s 未声明任何可用时段", emp.Name)
	default:
		return fmt.Sprintf("班次 %s (%s %s-%s) 不在员工 %s 的可用时段内",
			shift.Name, shift.Date, shift.StartTime, shift.EndTime, emp.Name)
	}
}
