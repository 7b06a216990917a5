// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"time"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// RestPeriodConstraint 班次间最小休息约束
// 前一班次结束到下一班次开始的间隔不得少于员工的 MinRestHours
type RestPeriodConstraint struct {
	*BaseConstraint
}

// NewRestPeriodConstraint 创建班次间最小休息约束
func NewRestPeriodConstraint() *RestPeriodConstraint {
	return &RestPeriodConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次间最小休息",
			constraint.TypeRestPeriod,
			constraint.CategoryHard,
			hardWeight,
		).withConflict(model.ConflictRestPeriodViolation),
	}
}

// Evaluate 评估整个排班
func (c *RestPeriodConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, empID := range ctx.EmployeeIDs() {
		emp := ctx.GetEmployee(empID)
		if emp == nil || emp.MinRestHours == 0 {
			continue
		}
		// 已按开始时间排序
		list := ctx.GetEmployeeAssignments(empID)
		for i := 0; i < len(list); i++ {
			first := ctx.GetShift(list[i].ShiftID)
			if first == nil {
				continue
			}
			for j := i + 1; j < len(list); j++ {
				next := ctx.GetShift(list[j].ShiftID)
				if next == nil {
					continue
				}
				rest, ok := restBetween(first, next)
				if !ok || rest >= emp.MinRest() {
					continue
				}
				penalty := c.Weight() * (emp.MinRestHours - int(rest.Hours()))
				totalPenalty += penalty
				violations = append(violations, c.CreateViolation(emp.ID, next,
					fmt.Sprintf("员工 %s 在班次 %s 与 %s 之间仅休息 %.1f 小时，少于要求的 %d 小时",
						emp.Name, first.Name, next.Name, rest.Hours(), emp.MinRestHours),
					penalty, list[i].ID, list[j].ID))
			}
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *RestPeriodConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
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
func (c *RestPeriodConstraint) Excludes(e *model.Employee, a, b *model.Shift) bool {
	if e.MinRestHours == 0 {
		return false
	}
	rest, ok := restBetween(a, b)
	return ok && rest < e.MinRest()
}

// restBetween 返回两个不重叠班次之间的休息时长，与顺序无关
// 重叠的班次归重复排班约束处理，返回 false
func restBetween(a, b *model.Shift) (time.Duration, bool) {
	wa, wb := a.Window(), b.Window()
	if wa.Overlaps(wb) {
		return 0, false
	}
	if wb.Start.Before(wa.Start) {
		wa, wb = wb, wa
	}
	return wa.Gap(wb), true
}
