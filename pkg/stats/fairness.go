// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	WorkloadGini        float64 `json:"workload_gini"`          // 工时基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadStdDev      float64 `json:"workload_std_dev"`       // 工时标准差
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 人均工时
	MaxHours            float64 `json:"max_hours"`
	MinHours            float64 `json:"min_hours"`
	HoursRange          float64 `json:"hours_range"` // 工时极差，即公平性偏差

	EmployeeStats []EmployeeStat `json:"employee_stats"`
}

// EmployeeStat 员工统计
type EmployeeStat struct {
	EmployeeID    uuid.UUID `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	TotalHours    float64   `json:"total_hours"`
	ShiftCount    int       `json:"shift_count"`
	NightShifts   int       `json:"night_shifts"`
	WeekendShifts int       `json:"weekend_shifts"`
	Deviation     float64   `json:"deviation"` // 与平均值的偏差百分比
}

// AnalyzeFairness 分析员工间工时分布
// employees 决定参与比较的人员，没有分配的员工按 0 工时计
func AnalyzeFairness(employees []*model.Employee, shifts []*model.Shift, assignments []*model.Assignment) *FairnessMetrics {
	if len(employees) == 0 {
		return &FairnessMetrics{}
	}

	shiftMap := make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, s := range shifts {
		shiftMap[s.ID] = s
	}

	statMap := make(map[uuid.UUID]*EmployeeStat, len(employees))
	order := make([]uuid.UUID, 0, len(employees))
	for _, e := range employees {
		if _, dup := statMap[e.ID]; dup {
			continue
		}
		statMap[e.ID] = &EmployeeStat{EmployeeID: e.ID, EmployeeName: e.Name}
		order = append(order, e.ID)
	}

	for _, a := range assignments {
		if !a.IsHeld() {
			continue
		}
		stat, ok := statMap[a.EmployeeID]
		s, found := shiftMap[a.ShiftID]
		if !ok || !found {
			continue
		}
		stat.TotalHours += s.DurationHours()
		stat.ShiftCount++
		if isNightShift(s) {
			stat.NightShifts++
		}
		if wd := s.Weekday(); wd == time.Saturday || wd == time.Sunday {
			stat.WeekendShifts++
		}
	}

	result := make([]EmployeeStat, 0, len(order))
	hours := make([]float64, 0, len(order))
	for _, id := range order {
		result = append(result, *statMap[id])
		hours = append(hours, statMap[id].TotalHours)
	}

	avg := mean(hours)
	for i := range result {
		if avg > 0 {
			result[i].Deviation = (result[i].TotalHours - avg) / avg * 100
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalHours > result[j].TotalHours
	})

	maxHours, minHours := valueRange(hours)
	return &FairnessMetrics{
		WorkloadGini:        gini(hours),
		WorkloadStdDev:      math.Sqrt(variance(hours, avg)),
		AvgHoursPerEmployee: avg,
		MaxHours:            maxHours,
		MinHours:            minHours,
		HoursRange:          maxHours - minHours,
		EmployeeStats:       result,
	}
}

// FairnessDeviation 返回工时极差（小时）
func FairnessDeviation(employees []*model.Employee, shifts []*model.Shift, assignments []*model.Assignment) float64 {
	return AnalyzeFairness(employees, shifts, assignments).HoursRange
}

// isNightShift 夜班：22 点后或 5 点前开始，或跨越午夜
func isNightShift(s *model.Shift) bool {
	w := s.Window()
	if w.Start.Hour() >= 22 || w.Start.Hour() < 5 {
		return true
	}
	midnight := w.Start.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return w.End.After(midnight)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max, min
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
