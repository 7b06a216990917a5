// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Employee 员工
// 单次排班调用期间只读
type Employee struct {
	ID           uuid.UUID `json:"id" yaml:"id" validate:"required"`
	Name         string    `json:"name" yaml:"name"`
	DepartmentID string    `json:"department_id,omitempty" yaml:"department_id"`
	Active       bool      `json:"active" yaml:"active"`

	// 排班相关
	Qualifications       []string             `json:"qualifications,omitempty" yaml:"qualifications"`
	Availability         []AvailabilityWindow `json:"availability,omitempty" yaml:"availability" validate:"dive"`
	MaxHoursPerWeek      int                  `json:"max_hours_per_week" yaml:"max_hours_per_week" validate:"gte=0,lte=168"`
	MinRestHours         int                  `json:"min_rest_hours" yaml:"min_rest_hours" validate:"gte=0,lte=72"`
	ContractHoursPerWeek int                  `json:"contract_hours_per_week,omitempty" yaml:"contract_hours_per_week" validate:"gte=0,lte=168"` // 0 表示使用标准周工时

	// 工作偏好
	Preferences *EmployeePreferences `json:"preferences,omitempty" yaml:"preferences"`
}

// AvailabilityWindow 每周可用时段
// End 不晚于 Start 时表示跨越午夜
type AvailabilityWindow struct {
	Weekday time.Weekday `json:"weekday" yaml:"weekday" validate:"gte=0,lte=6"`
	Start   string       `json:"start" yaml:"start" validate:"required,clock"`
	End     string       `json:"end" yaml:"end" validate:"required,clock"`
}

// EmployeePreferences 员工偏好
type EmployeePreferences struct {
	PreferredTags []string       `json:"preferred_tags,omitempty" yaml:"preferred_tags"` // 偏好班次标签
	AvoidTags     []string       `json:"avoid_tags,omitempty" yaml:"avoid_tags"`         // 避免班次标签
	PreferredDays []time.Weekday `json:"preferred_days,omitempty" yaml:"preferred_days"` // 偏好工作日
	AvoidDays     []time.Weekday `json:"avoid_days,omitempty" yaml:"avoid_days"`         // 避免工作日
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Active
}

// HasQualification 检查员工是否具备某资质
func (e *Employee) HasQualification(tag string) bool {
	return containsString(e.Qualifications, tag)
}

// MissingQualifications 返回班次要求而员工不具备的资质
func (e *Employee) MissingQualifications(required []string) []string {
	var missing []string
	for _, tag := range required {
		if !e.HasQualification(tag) {
			missing = append(missing, tag)
		}
	}
	return missing
}

// Qualifies 检查员工资质是否覆盖班次要求
func (e *Employee) Qualifies(s *Shift) bool {
	return len(e.MissingQualifications(s.RequiredQualifications)) == 0
}

// IsAvailableFor 检查班次是否完整落在员工某个可用时段内
// 没有声明任何可用时段的员工视为全部不可用
func (e *Employee) IsAvailableFor(s *Shift) bool {
	if !e.Active || len(e.Availability) == 0 {
		return false
	}
	start, end, ok := s.weekMinutes()
	if !ok {
		return false
	}
	for _, w := range e.Availability {
		ws, we, ok := w.weekMinutes()
		if !ok {
			continue
		}
		// 周日跨夜的时段或班次可能绕回周初，平移一周再比较
		for _, shift := range []int{0, minutesPerWeek, -minutesPerWeek} {
			if ws+shift <= start && end <= we+shift {
				return true
			}
		}
	}
	return false
}

// MaxMinutesPerWeek 返回每周工时上限（分钟）
func (e *Employee) MaxMinutesPerWeek() int {
	return e.MaxHoursPerWeek * 60
}

// MinRest 返回班次间最小休息时长
func (e *Employee) MinRest() time.Duration {
	return time.Duration(e.MinRestHours) * time.Hour
}

// BaselineHours 返回加班计算基准周工时
func (e *Employee) BaselineHours(standard int) int {
	if e.ContractHoursPerWeek > 0 {
		return e.ContractHoursPerWeek
	}
	return standard
}

// PreferenceFor 返回班次命中的避免项与偏好项数量
func (e *Employee) PreferenceFor(s *Shift) (avoided, preferred int) {
	if e.Preferences == nil {
		return 0, 0
	}
	p := e.Preferences
	for _, tag := range s.Tags {
		if containsString(p.AvoidTags, tag) {
			avoided++
		}
		if containsString(p.PreferredTags, tag) {
			preferred++
		}
	}
	weekday := s.Weekday()
	for _, d := range p.AvoidDays {
		if d == weekday {
			avoided++
		}
	}
	for _, d := range p.PreferredDays {
		if d == weekday {
			preferred++
		}
	}
	return avoided, preferred
}

// weekMinutes 返回时段在一周内的起止分钟
func (w AvailabilityWindow) weekMinutes() (int, int, bool) {
	start, err := ParseClock(w.Start)
	if err != nil {
		return 0, 0, false
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return 0, 0, false
	}
	if end <= start {
		end += minutesPerDay
	}
	base := int(w.Weekday) * minutesPerDay
	return base + start, base + end, true
}
