// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"math"
	"sort"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// WorkloadBalanceConstraint 工时公平性约束（软约束）
// 惩罚参与排班员工之间总工时的极差
type WorkloadBalanceConstraint struct {
	*BaseConstraint
}

// NewWorkloadBalanceConstraint 创建工时公平性约束
func NewWorkloadBalanceConstraint(weight int) *WorkloadBalanceConstraint {
	return &WorkloadBalanceConstraint{
		BaseConstraint: NewBaseConstraint(
			"工时公平性",
			constraint.TypeWorkloadBalance,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
// 只比较在职且每周上限大于 0 的员工
func (c *WorkloadBalanceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var pool []*model.Employee
	for _, e := range ctx.Employees {
		if e.IsActive() && e.MaxHoursPerWeek > 0 {
			pool = append(pool, e)
		}
	}
	if len(pool) < 2 {
		return true, 0, nil
	}

	minutes := make(map[*model.Employee]int, len(pool))
	for _, e := range pool {
		for _, a := range ctx.GetEmployeeAssignments(e.ID) {
			if s := ctx.GetShift(a.ShiftID); s != nil {
				minutes[e] += s.DurationMinutes()
			}
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return minutes[pool[i]] > minutes[pool[j]] })

	most, least := pool[0], pool[len(pool)-1]
	spread := float64(minutes[most]-minutes[least]) / 60
	if spread == 0 {
		return true, 0, nil
	}
	penalty := int(math.Round(spread * float64(c.Weight())))
	detail := c.CreateViolation(most.ID, nil,
		fmt.Sprintf("员工工时极差 %.1f 小时 (最多 %s %.1f 小时，最少 %s %.1f 小时)",
			spread, most.Name, float64(minutes[most])/60, least.Name, float64(minutes[least])/60),
		penalty)
	return false, penalty, []constraint.ViolationDetail{detail}
}

// EvaluateAssignment 公平性只能整体评估
func (c *WorkloadBalanceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	return true, 0
}

// BalanceWeight 实现 constraint.HoursBalancer
func (c *WorkloadBalanceConstraint) BalanceWeight() int {
	return c.Weight()
}

// MinimizeOvertimeConstraint 最小化加班约束（软约束）
// 每 ISO 周超出员工合同工时（未设置时用标准周工时）的部分计罚
type MinimizeOvertimeConstraint struct {
	*BaseConstraint
	standardHoursPerWeek int
}

// NewMinimizeOvertimeConstraint 创建最小化加班约束
func NewMinimizeOvertimeConstraint(weight int, standardHours int) *MinimizeOvertimeConstraint {
	return &MinimizeOvertimeConstraint{
		BaseConstraint: NewBaseConstraint(
			"最小化加班",
			constraint.TypeMinimizeOvertime,
			constraint.CategorySoft,
			weight,
		),
		standardHoursPerWeek: standardHours,
	}
}

// Evaluate 评估整个排班
func (c *MinimizeOvertimeConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, empID := range ctx.EmployeeIDs() {
		emp := ctx.GetEmployee(empID)
		if emp == nil {
			continue
		}
		byWeek := ctx.MinutesByWeek(empID)
		weeks := make([]string, 0, len(byWeek))
		for w := range byWeek {
			weeks = append(weeks, w)
		}
		sort.Strings(weeks)

		for _, week := range weeks {
			over := byWeek[week] - c.BaselineMinutes(emp)
			if over <= 0 {
				continue
			}
			hours := float64(over) / 60
			penalty := int(math.Round(hours * float64(c.Weight())))
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(emp.ID, nil,
				fmt.Sprintf("员工 %s 在 %s 加班 %.1f 小时", emp.Name, week, hours), penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配带来的加班
func (c *MinimizeOvertimeConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}
	total := shift.DurationMinutes()
	for _, o := range others(ctx, a) {
		if s := ctx.GetShift(o.ShiftID); s != nil && s.WeekKey() == shift.WeekKey() {
			total += s.DurationMinutes()
		}
	}
	if over := total - c.BaselineMinutes(emp); over > 0 {
		return true, int(math.Round(float64(over) / 60 * float64(c.Weight())))
	}
	return true, 0
}

// OvertimeWeight 实现 constraint.OvertimeLimiter
func (c *MinimizeOvertimeConstraint) OvertimeWeight() int {
	return c.Weight()
}

// BaselineMinutes 实现 constraint.OvertimeLimiter
func (c *MinimizeOvertimeConstraint) BaselineMinutes(e *model.Employee) int {
	return e.BaselineHours(c.standardHoursPerWeek) * 60
}
