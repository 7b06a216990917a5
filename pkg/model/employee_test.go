package model

import (
	"testing"
	"time"
)

func TestEmployee_Qualifies(t *testing.T) {
	e := &Employee{Qualifications: []string{"nurse", "icu"}}

	tests := []struct {
		name     string
		required []string
		expected bool
	}{
		{"无要求", nil, true},
		{"单项满足", []string{"nurse"}, true},
		{"全部满足", []string{"nurse", "icu"}, true},
		{"缺少一项", []string{"nurse", "er"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Shift{RequiredQualifications: tt.required}
			if result := e.Qualifies(s); result != tt.expected {
				t.Errorf("Qualifies() = %v, expected %v", result, tt.expected)
			}
		})
	}

	if missing := e.MissingQualifications([]string{"er", "nurse", "pharmacy"}); len(missing) != 2 || missing[0] != "er" {
		t.Errorf("MissingQualifications() = %v, expected [er pharmacy]", missing)
	}
}

func TestEmployee_IsAvailableFor(t *testing.T) {
	e := &Employee{
		Active: true,
		Availability: []AvailabilityWindow{
			{Weekday: time.Monday, Start: "08:00", End: "18:00"},
			{Weekday: time.Sunday, Start: "22:00", End: "06:00"},
			{Weekday: time.Saturday, Start: "22:00", End: "06:00"},
		},
	}

	tests := []struct {
		name     string
		date     string
		start    string
		end      string
		expected bool
	}{
		{"完全落在时段内", "2026-01-12", "09:00", "17:00", true},
		{"早于时段开始", "2026-01-12", "07:00", "15:00", false},
		{"没有时段的日子", "2026-01-13", "09:00", "17:00", false},
		{"周日跨夜时段", "2026-01-18", "23:00", "05:00", true},
		{"周日跨夜时段覆盖周一凌晨", "2026-01-12", "01:00", "05:00", true},
		{"周六跨夜时段覆盖周日凌晨", "2026-01-18", "01:00", "05:00", true},
		{"跨夜班次超出时段", "2026-01-18", "21:00", "05:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Shift{Date: tt.date, StartTime: tt.start, EndTime: tt.end}
			if result := e.IsAvailableFor(s); result != tt.expected {
				t.Errorf("IsAvailableFor() = %v, expected %v", result, tt.expected)
			}
		})
	}

	t.Run("离职员工", func(t *testing.T) {
		inactive := *e
		inactive.Active = false
		if inactive.IsAvailableFor(&Shift{Date: "2026-01-12", StartTime: "09:00", EndTime: "17:00"}) {
			t.Error("离职员工应视为不可用")
		}
	})

	t.Run("没有声明时段", func(t *testing.T) {
		empty := &Employee{Active: true}
		if empty.IsAvailableFor(&Shift{Date: "2026-01-12", StartTime: "09:00", EndTime: "17:00"}) {
			t.Error("没有时段的员工应视为不可用")
		}
	})
}

func TestEmployee_BaselineHours(t *testing.T) {
	if got := (&Employee{}).BaselineHours(40); got != 40 {
		t.Errorf("BaselineHours() = %d, expected 40", got)
	}
	if got := (&Employee{ContractHoursPerWeek: 30}).BaselineHours(40); got != 30 {
		t.Errorf("BaselineHours() = %d, expected 30", got)
	}
}

func TestEmployee_PreferenceFor(t *testing.T) {
	e := &Employee{
		Preferences: &EmployeePreferences{
			PreferredTags: []string{"morning"},
			AvoidTags:     []string{"night"},
			AvoidDays:     []time.Weekday{time.Sunday},
			PreferredDays: []time.Weekday{time.Monday},
		},
	}

	tests := []struct {
		name          string
		date          string
		tags          []string
		wantAvoided   int
		wantPreferred int
	}{
		{"周一早班", "2026-01-12", []string{"morning"}, 0, 2},
		{"周日夜班", "2026-01-18", []string{"night"}, 2, 0},
		{"周二无标签", "2026-01-13", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avoided, preferred := e.PreferenceFor(&Shift{Date: tt.date, Tags: tt.tags})
			if avoided != tt.wantAvoided || preferred != tt.wantPreferred {
				t.Errorf("PreferenceFor() = (%d, %d), expected (%d, %d)", avoided, preferred, tt.wantAvoided, tt.wantPreferred)
			}
		})
	}

	if a, p := (&Employee{}).PreferenceFor(&Shift{Date: "2026-01-12"}); a != 0 || p != 0 {
		t.Error("没有偏好时应返回 0")
	}
}
