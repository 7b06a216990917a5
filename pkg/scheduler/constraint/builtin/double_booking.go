// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// NoDoubleBookingConstraint 禁止重复排班约束
// 同一员工的两个分配时间窗口不得重叠，除非两个班次都允许并行
type NoDoubleBookingConstraint struct {
	*BaseConstraint
}

// NewNoDoubleBookingConstraint 创建禁止重复排班约束
func NewNoDoubleBookingConstraint() *NoDoubleBookingConstraint {
	return &NoDoubleBookingConstraint{
		BaseConstraint: NewBaseConstraint(
			"禁止重复排班",
			constraint.TypeNoDoubleBooking,
			constraint.CategoryHard,
			hardWeight,
		).withConflict(model.ConflictDoubleBooking),
	}
}

// Evaluate 评估整个排班，每个重叠的分配对上报一次
func (c *NoDoubleBookingConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, empID := range ctx.EmployeeIDs() {
		emp := ctx.GetEmployee(empID)
		if emp == nil {
			continue
		}
		list := ctx.GetEmployeeAssignments(empID)
		for i := 0; i < len(list); i++ {
			si := ctx.GetShift(list[i].ShiftID)
			if si == nil {
				continue
			}
			for j := i + 1; j < len(list); j++ {
				sj := ctx.GetShift(list[j].ShiftID)
				if sj == nil || !c.Excludes(emp, si, sj) {
					continue
				}
				totalPenalty += c.Weight()
				violations = append(violations, c.CreateViolation(emp.ID, si,
					fmt.Sprintf("员工 %s 的班次 %s (%s %s-%s) 与 %s (%s %s-%s) 时间重叠",
						emp.Name, si.Name, si.Date, si.StartTime, si.EndTime,
						sj.Name, sj.Date, sj.StartTime, sj.EndTime),
					c.Weight(), list[i].ID, list[j].ID))
			}
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *NoDoubleBookingConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}
	for _, o := range others(ctx, a) {
		if other := ctx.GetShift(o.ShiftID); other != nil && c.Excludes(emp, shift, other) {
			return false, c.Weight()
		}
	}
	return true, 0
}

// Excludes 实现 constraint.PairExclusion
// 同一班次重复分配给同一员工总是视为重复排班
func (c *NoDoubleBookingConstraint) Excludes(_ *model.Employee, a, b *model.Shift) bool {
	if a.ID == b.ID {
		return true
	}
	if a.CanOverlap(b) {
		return false
	}
	return a.Window().Overlaps(b.Window())
}
