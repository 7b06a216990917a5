// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// hardWeight 硬约束权重
const hardWeight = 100

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
	conflict model.ConflictCategory
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() int { return c.weight }

// ConflictCategory 返回违反时上报的冲突类别
func (c *BaseConstraint) ConflictCategory() model.ConflictCategory { return c.conflict }

// withConflict 设置冲突类别
func (c *BaseConstraint) withConflict(cat model.ConflictCategory) *BaseConstraint {
	c.conflict = cat
	return c
}

// CreateViolation 创建违反详情
func (c *BaseConstraint) CreateViolation(empID uuid.UUID, s *model.Shift, message string, penalty int, assignmentIDs ...uuid.UUID) constraint.ViolationDetail {
	severity := model.SeverityWarning
	if c.category == constraint.CategoryHard {
		severity = model.SeverityError
	}
	d := constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		Conflict:       c.conflict,
		EmployeeID:     empID,
		AssignmentIDs:  assignmentIDs,
		Message:        message,
		Severity:       severity,
		Penalty:        penalty,
	}
	if s != nil {
		d.ShiftID = s.ID
		d.Date = s.Date
	}
	return d
}

// Evaluate 默认评估实现（子类需覆盖）
func (c *BaseConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	return true, 0, nil
}

// EvaluateAssignment 默认分配评估实现（子类需覆盖）
func (c *BaseConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	return true, 0
}

// others 返回员工除 a 以外的已有分配
func others(ctx *constraint.Context, a *model.Assignment) []*model.Assignment {
	var out []*model.Assignment
	for _, o := range ctx.GetEmployeeAssignments(a.EmployeeID) {
		if o.ID != a.ID {
			out = append(out, o)
		}
	}
	return out
}
