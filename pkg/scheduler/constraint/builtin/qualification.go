// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"strings"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// QualificationConstraint 资质匹配约束
// 班次要求的资质必须是员工资质的子集
type QualificationConstraint struct {
	*BaseConstraint
}

// NewQualificationConstraint 创建资质匹配约束
func NewQualificationConstraint() *QualificationConstraint {
	return &QualificationConstraint{
		BaseConstraint: NewBaseConstraint(
			"资质匹配",
			constraint.TypeQualification,
			constraint.CategoryHard,
			hardWeight,
		).withConflict(model.ConflictQualificationMismatch),
	}
}

// Evaluate 评估整个排班
func (c *QualificationConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	ctx.HeldAssignments(func(a *model.Assignment, emp *model.Employee, shift *model.Shift) {
		missing := emp.MissingQualifications(shift.RequiredQualifications)
		if len(missing) == 0 {
			return
		}
		totalPenalty += c.Weight()
		violations = append(violations, c.CreateViolation(emp.ID, shift,
			fmt.Sprintf("员工 %s 缺少班次 %s 要求的资质: %s", emp.Name, shift.Name, strings.Join(missing, ", ")),
			c.Weight(), a.ID))
	})

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *QualificationConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}
	if !c.AllowsPair(emp, shift) {
		return false, c.Weight()
	}
	return true, 0
}

// AllowsPair 实现 constraint.PairFilter
func (c *QualificationConstraint) AllowsPair(e *model.Employee, s *model.Shift) bool {
	return e.Qualifies(s)
}
