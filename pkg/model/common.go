// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02" // 日期格式
	ClockLayout = "15:04"      // 时刻格式

	minutesPerDay  = 24 * 60
	minutesPerWeek = 7 * minutesPerDay
)

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// Gap 返回 tr 结束到 next 开始之间的间隔，重叠时为负
func (tr TimeRange) Gap(next TimeRange) time.Duration {
	return next.Start.Sub(tr.End)
}

// DateRange 日期范围（闭区间）
type DateRange struct {
	StartDate string `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" yaml:"end_date" validate:"required,datetime=2006-01-02"`
}

// NewDateRange 创建日期范围
func NewDateRange(start, end string) DateRange {
	return DateRange{StartDate: start, EndDate: end}
}

// Bounds 解析起止日期
func (dr DateRange) Bounds() (time.Time, time.Time, error) {
	start, err := ParseDate(dr.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(dr.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("结束日期 %s 早于开始日期 %s", dr.EndDate, dr.StartDate)
	}
	return start, end, nil
}

// Contains 检查日期是否在范围内
// 日期均为 YYYY-MM-DD，字符串比较与时间比较等价
func (dr DateRange) Contains(date string) bool {
	return date >= dr.StartDate && date <= dr.EndDate
}

// Days 返回范围内的天数，范围无效时为 0
func (dr DateRange) Days() int {
	start, end, err := dr.Bounds()
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// ParseDate 解析 YYYY-MM-DD 日期（UTC）
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, time.UTC)
}

// ParseClock 解析 HH:MM 时刻，返回距零点的分钟数
// 允许 24:00 表示当天结束
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("无效的时刻格式 %q，应为 HH:MM", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("无效的小时 %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("无效的分钟 %q", clock)
	}
	if m < 0 || m > 59 || h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("时刻越界 %q", clock)
	}
	return h*60 + m, nil
}

// ISOWeekKey 返回日期所在 ISO 周的标识，如 2026-W03
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// containsString 检查切片是否包含字符串
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
