// Package constraint 定义约束接口和管理器
package constraint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paiban/shiftcore/pkg/logger"
	"github.com/paiban/shiftcore/pkg/model"
)

// Manager 约束管理器
// 每次排班调用创建一个，求解期间只读
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SchedulerLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSchedulerLogger(),
	}
}

// Register 注册约束，同类型约束会被替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，权重高的在前
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// Has 检查是否注册了某类型约束
func (m *Manager) Has(t Type) bool {
	return m.GetConstraint(t) != nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Evaluate 评估所有约束
func (m *Manager) Evaluate(ctx *Context) *Result {
	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range m.GetAll() {
		valid, penalty, details := c.Evaluate(ctx)
		if valid {
			continue
		}
		result.TotalPenalty += penalty
		for _, d := range details {
			if c.Category() == CategoryHard {
				result.IsValid = false
				result.HardViolations = append(result.HardViolations, d)
				m.logger.ConstraintViolation(c.Name(), d.Message)
			} else {
				result.SoftViolations = append(result.SoftViolations, d)
			}
		}
	}
	return result
}

// EvaluateAssignment 评估单个分配
func (m *Manager) EvaluateAssignment(ctx *Context, assignment *model.Assignment) (bool, int, []ViolationDetail) {
	var violations []ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, c := range m.GetAll() {
		valid, penalty := c.EvaluateAssignment(ctx, assignment)
		if valid {
			continue
		}
		totalPenalty += penalty
		severity := model.SeverityWarning
		if c.Category() == CategoryHard {
			isValid = false
			severity = model.SeverityError
		}
		detail := ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			EmployeeID:     assignment.EmployeeID,
			ShiftID:        assignment.ShiftID,
			Message:        fmt.Sprintf("违反约束: %s", c.Name()),
			Severity:       severity,
			Penalty:        penalty,
		}
		if s := ctx.GetShift(assignment.ShiftID); s != nil {
			detail.Date = s.Date
		}
		violations = append(violations, detail)
	}

	return isValid, totalPenalty, violations
}

// CanAssign 检查是否可以进行某个分配
func (m *Manager) CanAssign(ctx *Context, assignment *model.Assignment) (bool, string) {
	for _, c := range m.GetByCategory(CategoryHard) {
		if valid, _ := c.EvaluateAssignment(ctx, assignment); !valid {
			return false, fmt.Sprintf("违反硬约束: %s", c.Name())
		}
	}
	return true, ""
}

// PairFilters 返回所有硬性组合过滤器
func (m *Manager) PairFilters() []PairFilter {
	var out []PairFilter
	for _, c := range m.GetByCategory(CategoryHard) {
		if f, ok := c.(PairFilter); ok {
			out = append(out, f)
		}
	}
	return out
}

// PairExclusions 返回所有同员工班次互斥规则
func (m *Manager) PairExclusions() []PairExclusion {
	var out []PairExclusion
	for _, c := range m.GetByCategory(CategoryHard) {
		if x, ok := c.(PairExclusion); ok {
			out = append(out, x)
		}
	}
	return out
}

// WeeklyCaps 返回所有周工时上限规则
func (m *Manager) WeeklyCaps() []WeeklyCap {
	var out []WeeklyCap
	for _, c := range m.GetByCategory(CategoryHard) {
		if w, ok := c.(WeeklyCap); ok {
			out = append(out, w)
		}
	}
	return out
}

// PairScorers 返回所有逐分配计分的软约束
func (m *Manager) PairScorers() []PairScorer {
	var out []PairScorer
	for _, c := range m.GetByCategory(CategorySoft) {
		if p, ok := c.(PairScorer); ok {
			out = append(out, p)
		}
	}
	return out
}

// Balancer 返回工时均衡约束，未注册时为 nil
func (m *Manager) Balancer() HoursBalancer {
	for _, c := range m.GetByCategory(CategorySoft) {
		if b, ok := c.(HoursBalancer); ok {
			return b
		}
	}
	return nil
}

// OvertimeLimiter 返回加班约束，未注册时为 nil
func (m *Manager) OvertimeLimiter() OvertimeLimiter {
	for _, c := range m.GetByCategory(CategorySoft) {
		if o, ok := c.(OvertimeLimiter); ok {
			return o
		}
	}
	return nil
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard, soft := 0, 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}
	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
	}
}

// Evaluate 对分配集运行全部约束并返回硬约束冲突
// 生成、优化与校验共用此入口
func Evaluate(assignments []*model.Assignment, employees []*model.Employee, shifts []*model.Shift, m *Manager) []model.Conflict {
	ctx := NewContext(employees, shifts, model.DateRange{})
	ctx.SetAssignments(assignments)
	return m.Evaluate(ctx).Conflicts()
}
