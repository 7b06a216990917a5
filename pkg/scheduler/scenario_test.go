package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftcore/internal/metrics"
	apperrors "github.com/paiban/shiftcore/pkg/errors"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftcore/pkg/scheduler/solver"
	"github.com/paiban/shiftcore/pkg/validator"
)

var week = model.NewDateRange("2026-01-12", "2026-01-18")

func fullWeek() []model.AvailabilityWindow {
	windows := make([]model.AvailabilityWindow, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		windows = append(windows, model.AvailabilityWindow{Weekday: d, Start: "00:00", End: "00:00"})
	}
	return windows
}

func newEmployee(name string, quals ...string) *model.Employee {
	return &model.Employee{
		ID:              uuid.New(),
		Name:            name,
		Active:          true,
		Qualifications:  quals,
		Availability:    fullWeek(),
		MaxHoursPerWeek: 40,
	}
}

func newShift(name, date, start, end string, quals ...string) *model.Shift {
	return &model.Shift{
		ID:                     uuid.New(),
		Name:                   name,
		Date:                   date,
		StartTime:              start,
		EndTime:                end,
		Headcount:              1,
		RequiredQualifications: quals,
	}
}

func newRequest(emps []*model.Employee, shifts []*model.Shift) Request {
	opts := DefaultOptions()
	opts.MaxTime = 2 * time.Second
	return Request{Employees: emps, Shifts: shifts, DateRange: week, Options: opts}
}

func TestGenerate_BasicFeasible(t *testing.T) {
	cook := newEmployee("厨师", "cook")
	server1 := newEmployee("服务员1", "server")
	server2 := newEmployee("服务员2", "server")
	kitchen := newShift("后厨", "2026-01-12", "08:00", "16:00", "cook")
	floor := newShift("前厅", "2026-01-12", "08:00", "16:00", "server")

	result, err := NewGenerator().Generate(context.Background(),
		newRequest([]*model.Employee{cook, server1, server2}, []*model.Shift{kitchen, floor}))
	require.NoError(t, err)

	assert.Equal(t, model.SolveOptimal, result.Status)
	require.Len(t, result.Assignments, 2)
	assert.Equal(t, 100.0, result.Coverage)
	assert.Empty(t, result.Conflicts)

	for _, a := range result.Assignments {
		assert.Equal(t, model.StatusAssigned, a.Status)
		assert.NotEqual(t, uuid.Nil, a.ID)
		if a.ShiftID == kitchen.ID {
			assert.Equal(t, cook.ID, a.EmployeeID)
		} else {
			assert.NotEqual(t, cook.ID, a.EmployeeID)
		}
	}
}

func TestGenerate_Infeasible(t *testing.T) {
	cook := newEmployee("厨师", "cook")
	a := newShift("早班", "2026-01-12", "08:00", "16:00", "cook")
	b := newShift("中班", "2026-01-12", "12:00", "20:00", "cook")

	result, err := NewGenerator().Generate(context.Background(),
		newRequest([]*model.Employee{cook}, []*model.Shift{a, b}))
	require.NoError(t, err)

	assert.Equal(t, model.SolveInfeasible, result.Status)
	assert.Empty(t, result.Assignments)
	assert.Empty(t, result.Conflicts)
}

func TestGenerate_InfeasibleFastLevel(t *testing.T) {
	cook := newEmployee("厨师", "cook")
	a := newShift("早班", "2026-01-12", "08:00", "16:00", "cook")
	b := newShift("中班", "2026-01-12", "12:00", "20:00", "cook")

	req := newRequest([]*model.Employee{cook}, []*model.Shift{a, b})
	req.Options.OptimizationLevel = LevelFast
	result, err := NewGenerator().Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.SolveInfeasible, result.Status)
	assert.Empty(t, result.Assignments)
	assert.Equal(t, "greedy", result.Stats.Engine)
}

func TestGenerate_PartialCoverage(t *testing.T) {
	cook := newEmployee("厨师", "cook")
	a := newShift("早班", "2026-01-12", "08:00", "16:00", "cook")
	b := newShift("中班", "2026-01-12", "12:00", "20:00", "cook")

	req := newRequest([]*model.Employee{cook}, []*model.Shift{a, b})
	req.Options.CoverageMode = solver.CoveragePartial
	result, err := NewGenerator().Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.SolveOptimal, result.Status)
	assert.Len(t, result.Assignments, 1)
	assert.Equal(t, 50.0, result.Coverage)
}

func TestGenerate_UnstaffableShift(t *testing.T) {
	t.Run("没有具备资质的员工", func(t *testing.T) {
		emp := newEmployee("员工1", "server")
		s := newShift("护理", "2026-01-12", "08:00", "16:00", "nurse")

		result, err := NewGenerator().Generate(context.Background(),
			newRequest([]*model.Employee{emp}, []*model.Shift{s}))
		require.NoError(t, err)

		assert.Equal(t, model.SolveOptimal, result.Status)
		assert.Empty(t, result.Assignments)
		require.Len(t, result.Conflicts, 1)
		c := result.Conflicts[0]
		assert.Equal(t, model.ConflictQualificationMismatch, c.Category)
		assert.Equal(t, model.SeverityWarning, c.Severity)
		assert.Equal(t, s.ID, c.ShiftID)
		assert.Empty(t, result.HardConflicts())
	})

	t.Run("周工时上限为零", func(t *testing.T) {
		emp := newEmployee("员工1")
		emp.MaxHoursPerWeek = 0
		s := newShift("白班", "2026-01-12", "08:00", "16:00")

		result, err := NewGenerator().Generate(context.Background(),
			newRequest([]*model.Employee{emp}, []*model.Shift{s}))
		require.NoError(t, err)

		assert.Empty(t, result.Assignments)
		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, model.ConflictAvailabilityViolation, result.Conflicts[0].Category)
	})

	t.Run("离职员工不参与排班", func(t *testing.T) {
		emp := newEmployee("员工1")
		emp.Active = false
		s := newShift("白班", "2026-01-12", "08:00", "16:00")

		result, err := NewGenerator().Generate(context.Background(),
			newRequest([]*model.Employee{emp}, []*model.Shift{s}))
		require.NoError(t, err)

		assert.Empty(t, result.Assignments)
		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, model.ConflictQualificationMismatch, result.Conflicts[0].Category)
	})
}

func TestGenerate_RespectsRestAndCaps(t *testing.T) {
	emp1 := newEmployee("员工1")
	emp1.MinRestHours = 12
	emp2 := newEmployee("员工2")
	emp2.MaxHoursPerWeek = 8
	late := newShift("晚班", "2026-01-12", "15:00", "23:00")
	early := newShift("早班", "2026-01-13", "05:00", "13:00")

	result, err := NewGenerator().Generate(context.Background(),
		newRequest([]*model.Employee{emp1, emp2}, []*model.Shift{late, early}))
	require.NoError(t, err)

	require.Equal(t, model.SolveOptimal, result.Status)
	require.Len(t, result.Assignments, 2)
	assert.NotEqual(t, result.Assignments[0].EmployeeID, result.Assignments[1].EmployeeID)
}

func TestGenerate_CustomConstraints(t *testing.T) {
	emp1 := newEmployee("员工1")
	emp2 := newEmployee("员工2")
	night := newShift("晚班", "2026-01-12", "18:00", "23:00")

	t.Run("硬性规则", func(t *testing.T) {
		req := newRequest([]*model.Employee{emp1, emp2}, []*model.Shift{night})
		req.Custom = []constraint.Constraint{
			builtin.NewHardPredicate("员工1 不上晚班", "no_late", "", func(e *model.Employee, s *model.Shift) bool {
				return e.ID != emp1.ID || s.ID != night.ID
			}),
		}
		result, err := NewGenerator().Generate(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
		assert.Equal(t, emp2.ID, result.Assignments[0].EmployeeID)
	})

	t.Run("软性规则", func(t *testing.T) {
		req := newRequest([]*model.Employee{emp1, emp2}, []*model.Shift{night})
		req.Custom = []constraint.Constraint{
			builtin.NewSoftPredicate("员工2 尽量不上晚班", "avoid_late", 10, func(e *model.Employee, s *model.Shift) bool {
				return e.ID != emp2.ID
			}),
		}
		result, err := NewGenerator().Generate(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
		assert.Equal(t, emp1.ID, result.Assignments[0].EmployeeID)
	})

	t.Run("类型与内置约束重复", func(t *testing.T) {
		cook := newEmployee("厨师", "cook")
		server := newEmployee("服务员", "server")
		kitchen := newShift("后厨", "2026-01-12", "08:00", "16:00", "cook")
		req := newRequest([]*model.Employee{cook, server}, []*model.Shift{kitchen})
		req.Custom = []constraint.Constraint{
			builtin.NewSoftPredicate("偏好服务员", constraint.TypeQualification, 10, func(e *model.Employee, s *model.Shift) bool {
				return e.ID == server.ID
			}),
		}
		_, err := NewGenerator().Generate(context.Background(), req)
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeValidationFail, appErr.Code)
		assert.Contains(t, appErr.Fields, "custom[0]")
	})

	t.Run("自定义约束类型重复", func(t *testing.T) {
		allow := func(e *model.Employee, s *model.Shift) bool { return true }
		req := newRequest([]*model.Employee{emp1, emp2}, []*model.Shift{night})
		req.Custom = []constraint.Constraint{
			builtin.NewHardPredicate("规则一", "late_rule", "", allow),
			builtin.NewSoftPredicate("规则二", "late_rule", 10, allow),
		}
		_, err := NewGenerator().Generate(context.Background(), req)
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Fields, "custom[1]")
		assert.NotContains(t, appErr.Fields, "custom[0]")
	})

	t.Run("无法建模的硬约束", func(t *testing.T) {
		req := newRequest([]*model.Employee{emp1, emp2}, []*model.Shift{night})
		req.Custom = []constraint.Constraint{
			builtin.NewBaseConstraint("全局规则", "global", constraint.CategoryHard, 100),
		}
		_, err := NewGenerator().Generate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidationFail))
	})
}

func TestGenerate_InvalidInput(t *testing.T) {
	emp := newEmployee("员工1")
	s := newShift("白班", "2026-01-12", "08:00", "16:00")

	tests := []struct {
		name   string
		mutate func(req *Request)
		field  string
	}{
		{"无效时刻", func(req *Request) { req.Shifts[0].EndTime = "25:00" }, "shifts[0].end_time"},
		{"日期超出范围", func(req *Request) { req.Shifts[0].Date = "2026-02-01" }, "shifts[0].date"},
		{"未知约束配置", func(req *Request) { req.Constraints = map[string]interface{}{"unknown": 1} }, "constraints.unknown"},
		{"关闭硬约束", func(req *Request) {
			req.Constraints = map[string]interface{}{"disable": []string{"rest_period"}}
		}, "constraints.disable"},
		{"未知覆盖模式", func(req *Request) { req.Options.CoverageMode = "best_effort" }, "options.coverage_mode"},
		{"优化级别越界", func(req *Request) { req.Options.OptimizationLevel = 9 }, "options.optimization_level"},
		{"局部搜索参数无效", func(req *Request) {
			ls := solver.DefaultLocalSearchConfig()
			ls.CoolingRate = 1.5
			req.Options.LocalSearch = &ls
		}, "options.local_search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, sh := *emp, *s
			req := newRequest([]*model.Employee{&e}, []*model.Shift{&sh})
			tt.mutate(&req)

			_, err := NewGenerator().Generate(context.Background(), req)
			require.Error(t, err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.CodeValidationFail, appErr.Code)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	var emps []*model.Employee
	for i := 0; i < 3; i++ {
		emps = append(emps, newEmployee(fmt.Sprintf("员工%d", i+1)))
	}
	shifts := []*model.Shift{
		newShift("早班", "2026-01-12", "08:00", "16:00"),
		newShift("早班", "2026-01-13", "08:00", "16:00"),
	}

	for _, level := range []int{LevelFast, LevelBalanced} {
		t.Run(fmt.Sprintf("优化级别%d", level), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			req := newRequest(emps, shifts)
			req.Options.OptimizationLevel = level
			result, err := NewGenerator().Generate(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, model.SolveTimeout, result.Status)
			// 贪心初始解总是可用
			assert.Len(t, result.Assignments, 2)
			assert.Empty(t, result.HardConflicts())
		})
	}
}

func TestGenerate_FastLevel(t *testing.T) {
	emps := []*model.Employee{newEmployee("员工1"), newEmployee("员工2")}
	shifts := []*model.Shift{
		newShift("早班", "2026-01-12", "08:00", "16:00"),
		newShift("晚班", "2026-01-12", "16:00", "23:00"),
	}
	req := newRequest(emps, shifts)
	req.Options.OptimizationLevel = LevelFast

	result, err := NewGenerator().Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SolveFeasible, result.Status)
	assert.Equal(t, "greedy", result.Stats.Engine)
	assert.Len(t, result.Assignments, 2)
}

func TestGenerate_DoesNotMutateInput(t *testing.T) {
	emps := []*model.Employee{newEmployee("员工1", "cook"), newEmployee("员工2")}
	emps[0].Preferences = &model.EmployeePreferences{AvoidDays: []time.Weekday{time.Monday}}
	shifts := []*model.Shift{newShift("白班", "2026-01-12", "08:00", "16:00")}
	req := newRequest(emps, shifts)

	before, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = NewGenerator().Generate(context.Background(), req)
	require.NoError(t, err)
	after, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestGenerate_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	emp := newEmployee("员工1")
	shifts := []*model.Shift{
		newShift("白班", "2026-01-12", "08:00", "16:00"),
		newShift("护理", "2026-01-13", "08:00", "16:00", "nurse"),
	}

	_, err := NewGenerator(WithRecorder(reg)).Generate(context.Background(),
		newRequest([]*model.Employee{emp}, shifts))
	require.NoError(t, err)

	assert.Equal(t, 1.0, reg.GetCounter("paiban_solves_total").Value("generate", "optimal"))
	assert.Equal(t, 1.0, reg.GetCounter("paiban_conflicts_total").Value("qualification_mismatch", "warning"))
	assert.Equal(t, 1.0, reg.GetGauge("paiban_assignments").Value("generate"))
}

// disruptionFixture 5 名员工各 2 个班次的现有排班
func disruptionFixture() ([]*model.Employee, []*model.Shift, []*model.Assignment) {
	var emps []*model.Employee
	for i := 0; i < 5; i++ {
		emps = append(emps, newEmployee(fmt.Sprintf("员工%d", i+1)))
	}
	var shifts []*model.Shift
	var existing []*model.Assignment
	dates := []string{"2026-01-12", "2026-01-13", "2026-01-14", "2026-01-15", "2026-01-16"}
	for i, date := range dates {
		morning := newShift("早班", date, "06:00", "14:00")
		evening := newShift("晚班", date, "14:00", "22:00")
		shifts = append(shifts, morning, evening)
		existing = append(existing,
			model.NewAssignment(emps[i].ID, morning.ID),
			model.NewAssignment(emps[(i+1)%5].ID, evening.ID))
	}
	return emps, shifts, existing
}

func TestOptimize_MinimizesDisruption(t *testing.T) {
	emps, shifts, existing := disruptionFixture()
	extra := newShift("周六班", "2026-01-17", "09:00", "17:00")
	shifts = append(shifts, extra)

	result, err := NewOptimizer().Optimize(context.Background(), existing, newRequest(emps, shifts))
	require.NoError(t, err)

	require.NotNil(t, result.Improvements)
	assert.Equal(t, 1, result.Improvements.Added)
	assert.Equal(t, 0, result.Improvements.Changed)
	assert.Equal(t, 0, result.Improvements.Removed)
	assert.Len(t, result.Assignments, 11)
	assert.Equal(t, 100.0, result.Coverage)

	ids := make(map[uuid.UUID]bool)
	for _, a := range result.Assignments {
		ids[a.ID] = true
	}
	for _, a := range existing {
		assert.True(t, ids[a.ID], "原有分配 %s 应被保留", a.ID)
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	cook := newEmployee("厨师", "cook")
	server1 := newEmployee("服务员1", "server")
	server2 := newEmployee("服务员2", "server")
	req := newRequest([]*model.Employee{cook, server1, server2}, []*model.Shift{
		newShift("后厨", "2026-01-12", "08:00", "16:00", "cook"),
		newShift("前厅", "2026-01-12", "08:00", "16:00", "server"),
	})

	generated, err := NewGenerator().Generate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, model.SolveOptimal, generated.Status)

	optimized, err := NewOptimizer().Optimize(context.Background(), generated.Assignments, req)
	require.NoError(t, err)
	assert.Equal(t, 0, optimized.Improvements.Changed)
	assert.Equal(t, 0, optimized.Improvements.Added)
	assert.Equal(t, generated.Coverage, optimized.Coverage)
}

func TestOptimize_CoverageNeverDecreases(t *testing.T) {
	emps := []*model.Employee{newEmployee("员工1"), newEmployee("员工2")}
	a := newShift("早班", "2026-01-12", "08:00", "16:00")
	b := newShift("早班", "2026-01-13", "08:00", "16:00")
	existing := []*model.Assignment{model.NewAssignment(emps[0].ID, a.ID)}

	result, err := NewOptimizer().Optimize(context.Background(), existing, newRequest(emps, []*model.Shift{a, b}))
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.Coverage)
	assert.InDelta(t, 50.0, result.Improvements.CoverageDelta, 1e-9)
	assert.Equal(t, 1, result.Improvements.Added)
	assert.Equal(t, 0, result.Improvements.Changed)
}

func TestOptimize_FairnessDeltaIgnoresIneligible(t *testing.T) {
	a, b := newEmployee("员工1"), newEmployee("员工2")
	inactive := newEmployee("离职员工")
	inactive.Active = false
	noHours := newEmployee("不排班员工")
	noHours.MaxHoursPerWeek = 0
	mon := newShift("早班", "2026-01-12", "08:00", "16:00")
	tue := newShift("早班", "2026-01-13", "08:00", "16:00")
	existing := []*model.Assignment{model.NewAssignment(a.ID, mon.ID)}

	result, err := NewOptimizer().Optimize(context.Background(), existing,
		newRequest([]*model.Employee{a, b, inactive, noHours}, []*model.Shift{mon, tue}))
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)

	// 员工1、员工2 各 8 小时，极差从 8 降到 0
	assert.InDelta(t, -8.0, result.Improvements.FairnessDelta, 1e-9)
}

func TestOptimize_ExistingAssignments(t *testing.T) {
	emps := []*model.Employee{newEmployee("员工1"), newEmployee("员工2")}
	a := newShift("早班", "2026-01-12", "08:00", "16:00")

	t.Run("已拒绝的分配被忽略", func(t *testing.T) {
		declined := model.NewAssignment(emps[0].ID, a.ID)
		declined.Status = model.StatusDeclined

		result, err := NewOptimizer().Optimize(context.Background(), []*model.Assignment{declined}, newRequest(emps, []*model.Shift{a}))
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
		assert.NotEqual(t, declined.ID, result.Assignments[0].ID)
		assert.Equal(t, 1, result.Improvements.Added)
	})

	t.Run("保留原有状态与 ID", func(t *testing.T) {
		confirmed := model.NewAssignment(emps[1].ID, a.ID)
		confirmed.Status = model.StatusConfirmed

		result, err := NewOptimizer().Optimize(context.Background(), []*model.Assignment{confirmed}, newRequest(emps, []*model.Shift{a}))
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
		assert.Equal(t, confirmed.ID, result.Assignments[0].ID)
		assert.Equal(t, model.StatusConfirmed, result.Assignments[0].Status)
		// 返回的是副本
		assert.NotSame(t, confirmed, result.Assignments[0])
	})

	t.Run("互相冲突的原有分配按优先级保留", func(t *testing.T) {
		day := newShift("白班", "2026-01-12", "08:00", "16:00")
		mid := newShift("中班", "2026-01-12", "12:00", "20:00")
		low := model.NewAssignment(emps[0].ID, day.ID)
		high := model.NewAssignment(emps[0].ID, mid.ID)
		high.Priority = 5

		result, err := NewOptimizer().Optimize(context.Background(), []*model.Assignment{low, high},
			newRequest(emps, []*model.Shift{day, mid}))
		require.NoError(t, err)
		require.Len(t, result.Assignments, 2)
		assert.Empty(t, result.HardConflicts())

		ids := make(map[uuid.UUID]*model.Assignment)
		for _, a := range result.Assignments {
			ids[a.ID] = a
		}
		assert.Contains(t, ids, high.ID)
		assert.NotContains(t, ids, low.ID)
		assert.Equal(t, 1, result.Improvements.Added)
		assert.Equal(t, 1, result.Improvements.Changed)
		assert.Equal(t, 0, result.Improvements.Removed)
	})

	t.Run("引用未知班次", func(t *testing.T) {
		bad := model.NewAssignment(emps[0].ID, uuid.New())
		_, err := NewOptimizer().Optimize(context.Background(), []*model.Assignment{bad}, newRequest(emps, []*model.Shift{a}))
		assert.True(t, apperrors.Is(err, apperrors.CodeValidationFail))
	})
}

func TestReporterAgreesWithGenerator(t *testing.T) {
	emps := []*model.Employee{
		newEmployee("员工1", "cook"),
		newEmployee("员工2", "cook", "server"),
		newEmployee("员工3", "server"),
	}
	emps[0].MinRestHours = 11
	emps[2].MaxHoursPerWeek = 16

	var shifts []*model.Shift
	for _, date := range []string{"2026-01-12", "2026-01-13", "2026-01-14"} {
		shifts = append(shifts,
			newShift("后厨早", date, "06:00", "14:00", "cook"),
			newShift("前厅晚", date, "15:00", "23:00", "server"))
	}

	req := newRequest(emps, shifts)
	req.Options.CoverageMode = solver.CoveragePartial
	result, err := NewGenerator().Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEqual(t, model.SolveInfeasible, result.Status)

	conflicts, err := validator.NewReporter(nil).Report(result.Assignments, emps, shifts, week)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
