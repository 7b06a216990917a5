package builtin

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

func fullWeek() []model.AvailabilityWindow {
	windows := make([]model.AvailabilityWindow, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		windows = append(windows, model.AvailabilityWindow{Weekday: d, Start: "00:00", End: "00:00"})
	}
	return windows
}

func createEmployee(maxHours int, quals ...string) *model.Employee {
	return &model.Employee{
		ID:              uuid.New(),
		Name:            "测试员工",
		Active:          true,
		Qualifications:  quals,
		Availability:    fullWeek(),
		MaxHoursPerWeek: maxHours,
	}
}

func createShift(date, start, end string) *model.Shift {
	return &model.Shift{
		ID:        uuid.New(),
		Name:      date + " " + start,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Headcount: 1,
	}
}

// createTestContext 为单个员工构造上下文，每个班次一个分配
func createTestContext(emp *model.Employee, shifts ...*model.Shift) *constraint.Context {
	ctx := constraint.NewContext([]*model.Employee{emp}, shifts, model.DateRange{})
	assignments := make([]*model.Assignment, 0, len(shifts))
	for _, s := range shifts {
		assignments = append(assignments, model.NewAssignment(emp.ID, s.ID))
	}
	ctx.SetAssignments(assignments)
	return ctx
}

func TestMaxHoursPerWeekConstraint_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		maxHours    int
		shifts      []*model.Shift
		wantValid   bool
		wantPenalty int
		wantCount   int
	}{
		{
			name:      "无分配，应通过",
			maxHours:  40,
			wantValid: true,
		},
		{
			name:     "工时未超限，应通过",
			maxHours: 16,
			shifts: []*model.Shift{
				createShift("2026-01-12", "09:00", "17:00"),
				createShift("2026-01-13", "09:00", "17:00"),
			},
			wantValid: true,
		},
		{
			name:     "工时超限，应失败",
			maxHours: 16,
			shifts: []*model.Shift{
				createShift("2026-01-12", "09:00", "17:00"),
				createShift("2026-01-13", "09:00", "17:00"),
				createShift("2026-01-14", "09:00", "13:00"),
			},
			wantValid:   false,
			wantPenalty: 400, // 100 * 4
			wantCount:   1,
		},
		{
			name:     "不足一小时按一小时计",
			maxHours: 8,
			shifts: []*model.Shift{
				createShift("2026-01-12", "09:00", "17:30"),
			},
			wantValid:   false,
			wantPenalty: 100,
			wantCount:   1,
		},
		{
			name:     "跨 ISO 周分别统计",
			maxHours: 8,
			shifts: []*model.Shift{
				createShift("2026-01-18", "09:00", "17:00"),
				createShift("2026-01-19", "09:00", "17:00"),
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMaxHoursPerWeekConstraint()
			ctx := createTestContext(createEmployee(tt.maxHours), tt.shifts...)

			valid, penalty, details := c.Evaluate(ctx)

			if valid != tt.wantValid {
				t.Errorf("Evaluate() valid = %v, want %v", valid, tt.wantValid)
			}
			if penalty != tt.wantPenalty {
				t.Errorf("Evaluate() penalty = %v, want %v", penalty, tt.wantPenalty)
			}
			if len(details) != tt.wantCount {
				t.Errorf("Evaluate() details = %d, want %d", len(details), tt.wantCount)
			}
			for _, d := range details {
				if d.Conflict != model.ConflictMaxHoursExceeded || d.Severity != model.SeverityError {
					t.Errorf("detail = %s/%s", d.Conflict, d.Severity)
				}
				if len(d.AssignmentIDs) != len(tt.shifts) {
					t.Errorf("AssignmentIDs = %d, want %d", len(d.AssignmentIDs), len(tt.shifts))
				}
			}
		})
	}
}

func TestMaxHoursPerWeekConstraint_EvaluateAssignment(t *testing.T) {
	c := NewMaxHoursPerWeekConstraint()
	emp := createEmployee(16)
	mon := createShift("2026-01-12", "08:00", "16:00")
	tue := createShift("2026-01-13", "08:00", "16:00")
	wed := createShift("2026-01-14", "08:00", "12:00")
	nextMon := createShift("2026-01-19", "08:00", "16:00")

	// 已有两个 8 小时分配
	ctx := createTestContext(emp, mon, tue)
	ctx.SetShifts([]*model.Shift{mon, tue, wed, nextMon})
	ctx.SetEmployees([]*model.Employee{emp})

	if valid, _ := c.EvaluateAssignment(ctx, model.NewAssignment(emp.ID, wed.ID)); valid {
		t.Error("同周再加 4 小时应超限")
	}
	if valid, _ := c.EvaluateAssignment(ctx, model.NewAssignment(emp.ID, nextMon.ID)); !valid {
		t.Error("下一周的分配不应超限")
	}
}

func TestMaxHoursPerWeekConstraint_Capabilities(t *testing.T) {
	c := NewMaxHoursPerWeekConstraint()
	long := createShift("2026-01-12", "08:00", "20:00")

	tests := []struct {
		name      string
		maxHours  int
		wantCap   int
		wantAllow bool
	}{
		{"上限足够", 40, 2400, true},
		{"上限短于班次", 10, 600, false},
		{"上限为零", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emp := createEmployee(tt.maxHours)
			if got := c.WeeklyCapMinutes(emp); got != tt.wantCap {
				t.Errorf("WeeklyCapMinutes() = %d, want %d", got, tt.wantCap)
			}
			if got := c.AllowsPair(emp, long); got != tt.wantAllow {
				t.Errorf("AllowsPair() = %v, want %v", got, tt.wantAllow)
			}
		})
	}
}
