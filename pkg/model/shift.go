// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus 分配状态
type AssignmentStatus string

const (
	StatusProposed  AssignmentStatus = "proposed"
	StatusAssigned  AssignmentStatus = "assigned"
	StatusConfirmed AssignmentStatus = "confirmed"
	StatusDeclined  AssignmentStatus = "declined"
)

// Shift 班次（含日期与人数需求）
// 单次排班调用期间只读
type Shift struct {
	ID                     uuid.UUID `json:"id" yaml:"id" validate:"required"`
	Name                   string    `json:"name" yaml:"name"`
	DepartmentID           string    `json:"department_id,omitempty" yaml:"department_id"`
	Date                   string    `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"` // YYYY-MM-DD
	StartTime              string    `json:"start_time" yaml:"start_time" validate:"required,clock"`   // HH:MM
	EndTime                string    `json:"end_time" yaml:"end_time" validate:"required,clock"`       // HH:MM，不晚于开始时间表示跨日
	RequiredQualifications []string  `json:"required_qualifications,omitempty" yaml:"required_qualifications"`
	Headcount              int       `json:"headcount" yaml:"headcount" validate:"gte=1"`
	Tags                   []string  `json:"tags,omitempty" yaml:"tags"`                         // morning/night/weekend 等
	AllowConcurrent        bool      `json:"allow_concurrent,omitempty" yaml:"allow_concurrent"` // 允许与其他同类班次重叠
}

// Assignment 排班分配
type Assignment struct {
	ID         uuid.UUID        `json:"id" yaml:"id"`
	EmployeeID uuid.UUID        `json:"employee_id" yaml:"employee_id" validate:"required"`
	ShiftID    uuid.UUID        `json:"shift_id" yaml:"shift_id" validate:"required"`
	Status     AssignmentStatus `json:"status" yaml:"status" validate:"omitempty,oneof=proposed assigned confirmed declined"`
	Priority   int              `json:"priority,omitempty" yaml:"priority" validate:"gte=0"` // 冲突取舍时的优先级
}

// NewAssignment 创建状态为 assigned 的分配
func NewAssignment(employeeID, shiftID uuid.UUID) *Assignment {
	return &Assignment{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		ShiftID:    shiftID,
		Status:     StatusAssigned,
	}
}

// IsHeld 检查分配是否占用班次（已拒绝的不占用）
func (a *Assignment) IsHeld() bool {
	return a.Status != StatusDeclined
}

// Window 返回班次的实际起止时间（UTC）
// 格式错误时返回零长度区间，调用方应先通过 ValidateShift
func (s *Shift) Window() TimeRange {
	date, err := ParseDate(s.Date)
	if err != nil {
		return TimeRange{}
	}
	start, err1 := ParseClock(s.StartTime)
	end, err2 := ParseClock(s.EndTime)
	if err1 != nil || err2 != nil {
		return TimeRange{Start: date, End: date}
	}
	// 处理跨日班次
	if end <= start {
		end += minutesPerDay
	}
	return TimeRange{
		Start: date.Add(time.Duration(start) * time.Minute),
		End:   date.Add(time.Duration(end) * time.Minute),
	}
}

// DurationMinutes 返回班次时长（分钟）
func (s *Shift) DurationMinutes() int {
	return int(s.Window().Duration() / time.Minute)
}

// DurationHours 返回班次时长（小时）
func (s *Shift) DurationHours() float64 {
	return s.Window().Duration().Hours()
}

// Weekday 返回班次开始日是星期几
func (s *Shift) Weekday() time.Weekday {
	date, err := ParseDate(s.Date)
	if err != nil {
		return time.Sunday
	}
	return date.Weekday()
}

// WeekKey 返回班次所在 ISO 周
func (s *Shift) WeekKey() string {
	date, err := ParseDate(s.Date)
	if err != nil {
		return ""
	}
	return ISOWeekKey(date)
}

// HasTag 检查班次是否带有某标签
func (s *Shift) HasTag(tag string) bool {
	return containsString(s.Tags, tag)
}

// CanOverlap 检查两个班次是否明确允许重叠
func (s *Shift) CanOverlap(other *Shift) bool {
	return s.AllowConcurrent && other.AllowConcurrent
}

// weekMinutes 返回班次在一周内的起止分钟
func (s *Shift) weekMinutes() (int, int, bool) {
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return 0, 0, false
	}
	if _, err := ParseDate(s.Date); err != nil {
		return 0, 0, false
	}
	base := int(s.Weekday()) * minutesPerDay
	return base + start, base + start + s.DurationMinutes(), true
}
