// Package constraint 定义约束接口和管理器
package constraint

import (
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeQualification   Type = "qualification_match"
	TypeAvailability    Type = "availability_match"
	TypeNoDoubleBooking Type = "no_double_booking"
	TypeRestPeriod      Type = "rest_period"
	TypeMaxHoursPerWeek Type = "max_hours_per_week"

	// 软约束类型
	TypeWorkloadBalance    Type = "workload_balance"
	TypeMinimizeOvertime   Type = "minimize_overtime"
	TypeEmployeePreference Type = "employee_preference"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重
	Weight() int

	// Evaluate 评估整个排班方案
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateAssignment 评估单个分配
	// 返回：是否满足、惩罚值
	EvaluateAssignment(ctx *Context, assignment *model.Assignment) (valid bool, penalty int)
}

// 以下接口供求解器把约束翻译为模型结构，约束按需实现

// PairFilter 判断 (员工, 班次) 组合是否可能合法
// 被拒绝的组合不会生成决策变量
type PairFilter interface {
	AllowsPair(e *model.Employee, s *model.Shift) bool
}

// PairExclusion 判断同一员工的两个班次能否同时分配
type PairExclusion interface {
	Excludes(e *model.Employee, a, b *model.Shift) bool
}

// WeeklyCap 返回员工每 ISO 周的工时上限（分钟）
type WeeklyCap interface {
	WeeklyCapMinutes(e *model.Employee) int
}

// PairScorer 返回单个分配的软约束代价，可为负（奖励）
type PairScorer interface {
	PairCost(e *model.Employee, s *model.Shift) int
}

// HoursBalancer 按员工工时极差计罚
type HoursBalancer interface {
	BalanceWeight() int
}

// OvertimeLimiter 按超出基准的周工时计罚
type OvertimeLimiter interface {
	OvertimeWeight() int
	BaselineMinutes(e *model.Employee) int
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type                   `json:"constraint_type"`
	ConstraintName string                 `json:"constraint_name"`
	Conflict       model.ConflictCategory `json:"conflict,omitempty"`
	EmployeeID     uuid.UUID              `json:"employee_id,omitempty"`
	ShiftID        uuid.UUID              `json:"shift_id,omitempty"`
	AssignmentIDs  []uuid.UUID            `json:"assignment_ids,omitempty"`
	Date           string                 `json:"date,omitempty"`
	Message        string                 `json:"message"`
	Severity       model.Severity         `json:"severity"`
	Penalty        int                    `json:"penalty"`
}

// ToConflict 转换为对外的冲突信息
func (d ViolationDetail) ToConflict() model.Conflict {
	return model.Conflict{
		Category:      d.Conflict,
		Severity:      d.Severity,
		EmployeeID:    d.EmployeeID,
		ShiftID:       d.ShiftID,
		AssignmentIDs: d.AssignmentIDs,
		Date:          d.Date,
		Message:       d.Message,
	}
}

// Context 排班上下文
// 只索引未拒绝的分配
type Context struct {
	DateRange   model.DateRange
	Employees   []*model.Employee
	Shifts      []*model.Shift
	Assignments []*model.Assignment

	employeeMap      map[uuid.UUID]*model.Employee
	shiftMap         map[uuid.UUID]*model.Shift
	assignmentsByEmp map[uuid.UUID][]*model.Assignment
}

// NewContext 创建新的排班上下文
func NewContext(employees []*model.Employee, shifts []*model.Shift, dateRange model.DateRange) *Context {
	c := &Context{DateRange: dateRange}
	c.SetEmployees(employees)
	c.SetShifts(shifts)
	c.SetAssignments(nil)
	return c
}

// SetEmployees 设置员工列表
func (c *Context) SetEmployees(employees []*model.Employee) {
	c.Employees = employees
	c.employeeMap = make(map[uuid.UUID]*model.Employee, len(employees))
	for _, e := range employees {
		c.employeeMap[e.ID] = e
	}
}

// SetShifts 设置班次列表
func (c *Context) SetShifts(shifts []*model.Shift) {
	c.Shifts = shifts
	c.shiftMap = make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, s := range shifts {
		c.shiftMap[s.ID] = s
	}
}

// SetAssignments 设置排班分配
func (c *Context) SetAssignments(assignments []*model.Assignment) {
	c.Assignments = assignments
	c.rebuildAssignmentIndexes()
}

// AddAssignment 添加排班分配
func (c *Context) AddAssignment(a *model.Assignment) {
	c.Assignments = append(c.Assignments, a)
	c.rebuildAssignmentIndexes()
}

// RemoveAssignment 移除排班分配
func (c *Context) RemoveAssignment(id uuid.UUID) {
	for i, a := range c.Assignments {
		if a.ID == id {
			c.Assignments = append(c.Assignments[:i:i], c.Assignments[i+1:]...)
			break
		}
	}
	c.rebuildAssignmentIndexes()
}

// rebuildAssignmentIndexes 重建分配索引，每个员工的分配按开始时间排序
func (c *Context) rebuildAssignmentIndexes() {
	c.assignmentsByEmp = make(map[uuid.UUID][]*model.Assignment)
	for _, a := range c.Assignments {
		if !a.IsHeld() {
			continue
		}
		c.assignmentsByEmp[a.EmployeeID] = append(c.assignmentsByEmp[a.EmployeeID], a)
	}
	for _, list := range c.assignmentsByEmp {
		c.sortByStart(list)
	}
}

func (c *Context) sortByStart(list []*model.Assignment) {
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := c.shiftMap[list[i].ShiftID], c.shiftMap[list[j].ShiftID]
		if si == nil || sj == nil {
			return si != nil
		}
		wi, wj := si.Window(), sj.Window()
		if !wi.Start.Equal(wj.Start) {
			return wi.Start.Before(wj.Start)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
}

// GetEmployee 获取员工
func (c *Context) GetEmployee(id uuid.UUID) *model.Employee {
	return c.employeeMap[id]
}

// GetShift 获取班次
func (c *Context) GetShift(id uuid.UUID) *model.Shift {
	return c.shiftMap[id]
}

// GetEmployeeAssignments 获取员工所有未拒绝的分配（按开始时间排序）
func (c *Context) GetEmployeeAssignments(empID uuid.UUID) []*model.Assignment {
	return c.assignmentsByEmp[empID]
}

// HeldAssignments 遍历所有员工与班次均已知、且未拒绝的分配
func (c *Context) HeldAssignments(fn func(a *model.Assignment, e *model.Employee, s *model.Shift)) {
	for _, a := range c.Assignments {
		if !a.IsHeld() {
			continue
		}
		e, s := c.employeeMap[a.EmployeeID], c.shiftMap[a.ShiftID]
		if e == nil || s == nil {
			continue
		}
		fn(a, e, s)
	}
}

// EmployeeIDs 返回有分配的员工（按 ID 排序，保证输出稳定）
func (c *Context) EmployeeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.assignmentsByEmp))
	for id := range c.assignmentsByEmp {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// MinutesByWeek 汇总员工每 ISO 周的已排工时（分钟）
func (c *Context) MinutesByWeek(empID uuid.UUID) map[string]int {
	out := make(map[string]int)
	for _, a := range c.assignmentsByEmp[empID] {
		if s := c.shiftMap[a.ShiftID]; s != nil {
			out[s.WeekKey()] += s.DurationMinutes()
		}
	}
	return out
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
}

// Conflicts 返回硬约束违反对应的冲突，按类别、日期、员工排序
func (r *Result) Conflicts() []model.Conflict {
	out := make([]model.Conflict, 0, len(r.HardViolations))
	for _, d := range r.HardViolations {
		out = append(out, d.ToConflict())
	}
	SortConflicts(out)
	return out
}

// SortConflicts 按类别、日期、员工、班次排序冲突
func SortConflicts(conflicts []model.Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID.String() < b.EmployeeID.String()
		}
		return a.ShiftID.String() < b.ShiftID.String()
	})
}
