// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// SolveStatus 求解状态
type SolveStatus string

const (
	SolveOptimal    SolveStatus = "optimal"    // 已证明最优
	SolveFeasible   SolveStatus = "feasible"   // 可行但未证明最优
	SolveInfeasible SolveStatus = "infeasible" // 不存在满足全部硬约束的方案
	SolveTimeout    SolveStatus = "timeout"    // 时间预算耗尽，返回当前最优解
)

// ConflictCategory 冲突类别
type ConflictCategory string

const (
	ConflictDoubleBooking         ConflictCategory = "double_booking"
	ConflictQualificationMismatch ConflictCategory = "qualification_mismatch"
	ConflictAvailabilityViolation ConflictCategory = "availability_violation"
	ConflictMaxHoursExceeded      ConflictCategory = "max_hours_exceeded"
	ConflictRestPeriodViolation   ConflictCategory = "rest_period_violation"
)

// Severity 冲突严重程度
type Severity string

const (
	SeverityError   Severity = "error"   // 违反硬约束
	SeverityWarning Severity = "warning" // 软约束不足
)

// Conflict 冲突信息
type Conflict struct {
	Category      ConflictCategory `json:"category"`
	Severity      Severity         `json:"severity"`
	EmployeeID    uuid.UUID        `json:"employee_id,omitempty"`
	ShiftID       uuid.UUID        `json:"shift_id,omitempty"` // 无分配涉及时（如无人可排的班次）
	Date          string           `json:"date,omitempty"`
	Message       string           `json:"message"`
	AssignmentIDs []uuid.UUID      `json:"assignment_ids,omitempty"`
}

// IsError 检查是否为硬约束冲突
func (c Conflict) IsError() bool {
	return c.Severity == SeverityError
}

// SolveResult 排班求解结果
type SolveResult struct {
	Status       SolveStatus   `json:"status"`
	Assignments  []*Assignment `json:"assignments"`
	Coverage     float64       `json:"coverage"` // 已填补人数 / 需求人数 (%)
	Conflicts    []Conflict    `json:"conflicts"`
	Objective    int64         `json:"objective"`
	Duration     time.Duration `json:"duration"`
	Stats        *SolveStats   `json:"stats,omitempty"`
	Improvements *Improvements `json:"improvements,omitempty"` // 仅优化时返回
}

// SolveStats 求解统计
type SolveStats struct {
	Engine     string        `json:"engine"`
	Variables  int           `json:"variables"`
	Workers    int           `json:"workers"`
	TimeLimit  time.Duration `json:"time_limit"`
	Nodes      int64         `json:"nodes"`
	Incumbents int           `json:"incumbents"`
}

// Improvements 优化前后对比
type Improvements struct {
	CoverageDelta float64 `json:"coverage_delta"` // 覆盖率变化（百分点，正值为改进）
	FairnessDelta float64 `json:"fairness_delta"` // 工时极差变化（小时，负值为改进）
	Changed       int     `json:"changed"`        // 被撤销或改派的原有分配数
	Added         int     `json:"added"`          // 新增分配数
	Removed       int     `json:"removed"`        // 被撤销且未改派的原有分配数
}

// HardConflicts 返回所有硬约束冲突
func (r *SolveResult) HardConflicts() []Conflict {
	var out []Conflict
	for _, c := range r.Conflicts {
		if c.IsError() {
			out = append(out, c)
		}
	}
	return out
}
