// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// PairRule 自定义组合规则，返回 true 表示满足
type PairRule func(e *model.Employee, s *model.Shift) bool

// PredicateConstraint 调用方自定义的 (员工, 班次) 规则
// 硬约束时作为组合过滤器，软约束时不满足的分配按权重计罚
type PredicateConstraint struct {
	*BaseConstraint
	rule PairRule
}

// NewHardPredicate 创建自定义硬约束
// conflict 为违反时上报的冲突类别，为空时按可用时段冲突上报
func NewHardPredicate(name string, typ constraint.Type, conflict model.ConflictCategory, rule PairRule) *PredicateConstraint {
	if conflict == "" {
		conflict = model.ConflictAvailabilityViolation
	}
	return &PredicateConstraint{
		BaseConstraint: NewBaseConstraint(name, typ, constraint.CategoryHard, hardWeight).withConflict(conflict),
		rule:           rule,
	}
}

// NewSoftPredicate 创建自定义软约束
func NewSoftPredicate(name string, typ constraint.Type, weight int, rule PairRule) *PredicateConstraint {
	return &PredicateConstraint{
		BaseConstraint: NewBaseConstraint(name, typ, constraint.CategorySoft, weight),
		rule:           rule,
	}
}

// Evaluate 评估整个排班
func (c *PredicateConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	ctx.HeldAssignments(func(a *model.Assignment, emp *model.Employee, shift *model.Shift) {
		if c.rule(emp, shift) {
			return
		}
		totalPenalty += c.Weight()
		violations = append(violations, c.CreateViolation(emp.ID, shift,
			fmt.Sprintf("员工 %s 的分配 %s (%s) 不满足规则 %s", emp.Name, shift.Name, shift.Date, c.Name()),
			c.Weight(), a.ID))
	})

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *PredicateConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp, shift := ctx.GetEmployee(a.EmployeeID), ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil || c.rule(emp, shift) {
		return true, 0
	}
	return c.Category() == constraint.CategorySoft, c.Weight()
}

// AllowsPair 实现 constraint.PairFilter，仅硬约束时生效
func (c *PredicateConstraint) AllowsPair(e *model.Employee, s *model.Shift) bool {
	return c.Category() != constraint.CategoryHard || c.rule(e, s)
}

// PairCost 实现 constraint.PairScorer，仅软约束时生效
func (c *PredicateConstraint) PairCost(e *model.Employee, s *model.Shift) int {
	if c.Category() != constraint.CategorySoft || c.rule(e, s) {
		return 0
	}
	return c.Weight()
}
