// Package stats 提供排班统计分析功能
package stats

import (
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalShifts   int     `json:"total_shifts"`   // 总班次数
	StaffedShifts int     `json:"staffed_shifts"` // 满员班次数
	TotalSlots    int     `json:"total_slots"`    // 总需求人次
	FilledSlots   int     `json:"filled_slots"`   // 已填补人次
	Coverage      float64 `json:"coverage"`       // 人次覆盖率 (%)

	DailyCoverage   map[string]DayCoverage `json:"daily_coverage"`   // 每日覆盖情况
	UncoveredShifts []UncoveredShift       `json:"uncovered_shifts"` // 未满员班次
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalSlots   int     `json:"total_slots"`
	FilledSlots  int     `json:"filled_slots"`
	CoverageRate float64 `json:"coverage_rate"`
	TotalHours   float64 `json:"total_hours"`
}

// UncoveredShift 未满员班次
type UncoveredShift struct {
	ShiftID   uuid.UUID `json:"shift_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Required  int       `json:"required"`
	Assigned  int       `json:"assigned"`
}

// Shortage 缺口人数
func (u UncoveredShift) Shortage() int {
	return u.Required - u.Assigned
}

// AnalyzeCoverage 分析覆盖率
// 超出人数需求的分配不计入，已拒绝的分配不占用班次
func AnalyzeCoverage(shifts []*model.Shift, assignments []*model.Assignment) *CoverageMetrics {
	m := &CoverageMetrics{
		TotalShifts:   len(shifts),
		DailyCoverage: make(map[string]DayCoverage),
	}

	held := make(map[uuid.UUID]int)
	for _, a := range assignments {
		if a.IsHeld() {
			held[a.ShiftID]++
		}
	}

	daily := make(map[string]*DayCoverage)
	for _, s := range shifts {
		filled := held[s.ID]
		if filled > s.Headcount {
			filled = s.Headcount
		}
		m.TotalSlots += s.Headcount
		m.FilledSlots += filled
		if filled == s.Headcount {
			m.StaffedShifts++
		} else {
			m.UncoveredShifts = append(m.UncoveredShifts, UncoveredShift{
				ShiftID:   s.ID,
				Date:      s.Date,
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
				Required:  s.Headcount,
				Assigned:  filled,
			})
		}

		day, ok := daily[s.Date]
		if !ok {
			day = &DayCoverage{Date: s.Date}
			daily[s.Date] = day
		}
		day.TotalSlots += s.Headcount
		day.FilledSlots += filled
		day.TotalHours += float64(filled) * s.DurationHours()
	}

	m.Coverage = Percent(m.FilledSlots, m.TotalSlots)
	for date, day := range daily {
		day.CoverageRate = Percent(day.FilledSlots, day.TotalSlots)
		m.DailyCoverage[date] = *day
	}

	sort.Slice(m.UncoveredShifts, func(i, j int) bool {
		a, b := m.UncoveredShifts[i], m.UncoveredShifts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.StartTime < b.StartTime
	})
	return m
}

// Coverage 返回人次覆盖率 (%)
func Coverage(shifts []*model.Shift, assignments []*model.Assignment) float64 {
	return AnalyzeCoverage(shifts, assignments).Coverage
}

// Percent 计算百分比，分母为 0 时视为全部覆盖
func Percent(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(part) / float64(total) * 100
}
