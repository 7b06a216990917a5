// Package scheduler 提供排班生成与优化入口
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftcore/pkg/errors"
	"github.com/paiban/shiftcore/pkg/logger"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftcore/pkg/scheduler/solver"
)

// 优化级别
const (
	LevelFast     = 1 // 贪心
	LevelBalanced = 2 // 分支定界 + 局部搜索
	LevelDeep     = 3 // 同上，时间预算翻倍
)

// Options 求解选项
type Options struct {
	OptimizationLevel int                 `json:"optimization_level"`
	MaxTime           time.Duration       `json:"max_time"`      // 0 表示只用自适应预算
	MaxWorkers        int                 `json:"max_workers"`   // 0 表示使用 GOMAXPROCS
	MaxNodes          int64               `json:"max_nodes"`     // 分支定界节点上限，0 表示不限
	CoverageMode      solver.CoverageMode `json:"coverage_mode"` // 为空时生成用 strict，优化用 partial
	Weights           solver.Weights      `json:"weights"`
	// LocalSearch 为空时使用 solver.DefaultLocalSearchConfig
	LocalSearch *solver.LocalSearchConfig `json:"local_search,omitempty"`
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		OptimizationLevel: LevelBalanced,
		Weights:           solver.DefaultWeights(),
	}
}

// Request 排班请求
type Request struct {
	Employees   []*model.Employee
	Shifts      []*model.Shift
	Constraints map[string]interface{}  // 内置约束覆盖配置
	Custom      []constraint.Constraint // 调用方自定义约束
	DateRange   model.DateRange
	Options     Options
}

// Recorder 求解指标记录
type Recorder interface {
	RecordSolve(operation, status string, duration time.Duration, coverage float64, assignments int)
	RecordSearch(engine string, nodes int64)
	RecordConflict(category, severity string)
}

// Option 配置 Generator 与 Optimizer
type Option func(*core)

// WithLogger 指定日志
func WithLogger(l *logger.SchedulerLogger) Option {
	return func(c *core) { c.log = l }
}

// WithRecorder 指定指标记录
func WithRecorder(r Recorder) Option {
	return func(c *core) { c.recorder = r }
}

// WithEngine 固定使用某个求解引擎，忽略优化级别
func WithEngine(e solver.Engine) Option {
	return func(c *core) { c.engine = e }
}

// core Generator 与 Optimizer 共用的流程
// 不保存任何调用间状态，可被并发使用
type core struct {
	log      *logger.SchedulerLogger
	recorder Recorder
	engine   solver.Engine
}

func newCore(opts []Option) core {
	c := core{log: logger.NewSchedulerLogger()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = logger.NewSchedulerLogger()
	}
	return c
}

// 求解状态机
const (
	stateBuilding = "BUILDING"
	stateSolving  = "SOLVING"
)

// validateRequest 建模前校验全部输入，问题一次性返回
func validateRequest(req Request, existing []*model.Assignment) error {
	ve := &apperrors.ValidationErrors{}

	problems := builtin.ValidateOverrides(req.Constraints)
	keys := make([]string, 0, len(problems))
	for k := range problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ve.Add("constraints."+k, problems[k])
	}

	customProblems := builtin.ValidateCustom(req.Custom)
	for i, c := range req.Custom {
		field := fmt.Sprintf("custom[%d]", i)
		if msg, ok := customProblems[field]; ok {
			ve.Add(field, msg)
			continue
		}
		if c.Category() == constraint.CategoryHard && !solvable(c) {
			ve.Add(field, fmt.Sprintf("硬约束 %s 必须实现组合过滤、互斥或周上限接口", c.Name()))
		}
	}

	switch req.Options.CoverageMode {
	case "", solver.CoverageStrict, solver.CoveragePartial:
	default:
		ve.Add("options.coverage_mode", fmt.Sprintf("未知的覆盖模式 %q", req.Options.CoverageMode))
	}
	if l := req.Options.OptimizationLevel; l < 0 || l > LevelDeep {
		ve.Add("options.optimization_level", "必须是 1-3")
	}
	if req.Options.MaxTime < 0 || req.Options.MaxWorkers < 0 || req.Options.MaxNodes < 0 {
		ve.Add("options", "预算参数不能为负")
	}
	if ls := req.Options.LocalSearch; ls != nil {
		if ls.CoolingRate <= 0 || ls.CoolingRate >= 1 || ls.InitialTemp <= 0 || ls.MinTemp <= 0 || ls.TabuSize <= 0 || ls.PlateauThreshold <= 0 {
			ve.Add("options.local_search", "温度与冷却速率必须为正且冷却速率小于 1，禁忌表与重启阈值必须为正")
		}
	}

	err := model.ValidateProblem(model.Problem{
		Employees:   req.Employees,
		Shifts:      req.Shifts,
		Assignments: existing,
		DateRange:   req.DateRange,
	})
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			return err
		}
		fields := make([]string, 0, len(appErr.Fields))
		for k := range appErr.Fields {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, k := range fields {
			ve.Add(k, fmt.Sprint(appErr.Fields[k]))
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// solvable 检查硬约束能否被求解器直接表达
func solvable(c constraint.Constraint) bool {
	switch c.(type) {
	case constraint.PairFilter, constraint.PairExclusion, constraint.WeeklyCap:
		return true
	}
	return false
}

// newManager 注册内置约束与自定义约束
func newManager(req Request) *constraint.Manager {
	m := builtin.NewDefaultManager(req.Constraints)
	for _, c := range req.Custom {
		m.Register(c)
	}
	return m
}

// admitSeed 按优先级从高到低逐个接纳原有分配，与已接纳分配冲突或违反硬约束的不进入初始解
// 被拒绝的分配仍计入优化前的排班，因此会体现为撤销或改派
func admitSeed(p problem, m *constraint.Manager, log *logger.SchedulerLogger) []*model.Assignment {
	held := make([]*model.Assignment, 0, len(p.existing))
	for _, a := range p.existing {
		if a.IsHeld() {
			held = append(held, a)
		}
	}
	sort.SliceStable(held, func(i, j int) bool {
		return held[i].Priority > held[j].Priority
	})

	ctx := constraint.NewContext(p.employees, p.shifts, model.DateRange{})
	admitted := make([]*model.Assignment, 0, len(held))
	for _, a := range held {
		if ok, _ := m.CanAssign(ctx, a); !ok {
			_, _, details := m.EvaluateAssignment(ctx, a)
			for _, d := range details {
				if d.Severity == model.SeverityError {
					log.ConstraintViolation(d.ConstraintName, d.Message)
				}
			}
			continue
		}
		ctx.AddAssignment(a)
		admitted = append(admitted, a)
	}
	return admitted
}

// problem 深拷贝后的输入
type problem struct {
	employees []*model.Employee
	shifts    []*model.Shift
	existing  []*model.Assignment
}

func copyProblem(req Request, existing []*model.Assignment) problem {
	p := problem{
		employees: make([]*model.Employee, len(req.Employees)),
		shifts:    make([]*model.Shift, len(req.Shifts)),
		existing:  make([]*model.Assignment, len(existing)),
	}
	for i, e := range req.Employees {
		p.employees[i] = copyEmployee(e)
	}
	for i, s := range req.Shifts {
		p.shifts[i] = copyShift(s)
	}
	for i, a := range existing {
		c := *a
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		p.existing[i] = &c
	}
	return p
}

func copyEmployee(e *model.Employee) *model.Employee {
	c := *e
	c.Qualifications = append([]string(nil), e.Qualifications...)
	c.Availability = append([]model.AvailabilityWindow(nil), e.Availability...)
	if e.Preferences != nil {
		p := *e.Preferences
		p.PreferredTags = append([]string(nil), p.PreferredTags...)
		p.AvoidTags = append([]string(nil), p.AvoidTags...)
		p.PreferredDays = append(p.PreferredDays[:0:0], p.PreferredDays...)
		p.AvoidDays = append(p.AvoidDays[:0:0], p.AvoidDays...)
		c.Preferences = &p
	}
	return &c
}

func copyShift(s *model.Shift) *model.Shift {
	c := *s
	c.RequiredQualifications = append([]string(nil), s.RequiredQualifications...)
	c.Tags = append([]string(nil), s.Tags...)
	return &c
}

// selectEngine 按优化级别选择求解引擎
func (c *core) selectEngine(opts Options, log *logger.SchedulerLogger) solver.Engine {
	if c.engine != nil {
		return c.engine
	}
	if opts.OptimizationLevel == LevelFast {
		return solver.NewGreedyEngine()
	}
	engine := solver.NewPortfolioEngine(log.IncumbentFound)
	if opts.LocalSearch != nil {
		engine.WithLocalSearch(*opts.LocalSearch)
	}
	return engine
}

// unstaffedWarnings 为无法排满的班次生成警告
// 在职且具备资质的员工不足时按资质不符上报，否则按可用性上报
func unstaffedWarnings(md *solver.Model) []model.Conflict {
	var out []model.Conflict
	for si, info := range md.ShiftInfo {
		if info.Target >= info.Demand {
			continue
		}
		s := md.Shifts[si]
		c := model.Conflict{
			Category: model.ConflictAvailabilityViolation,
			Severity: model.SeverityWarning,
			ShiftID:  s.ID,
			Date:     s.Date,
			Message: fmt.Sprintf("班次 %s (%s %s-%s) 需要 %d 人，只有 %d 名员工可排",
				s.Name, s.Date, s.StartTime, s.EndTime, info.Demand, info.Target),
		}
		if info.Qualified < info.Demand {
			c.Category = model.ConflictQualificationMismatch
			c.Message = fmt.Sprintf("班次 %s (%s %s-%s) 需要 %d 名具备 %v 资质的员工，在职且具备资质的只有 %d 名",
				s.Name, s.Date, s.StartTime, s.EndTime, info.Demand, s.RequiredQualifications, info.Qualified)
		}
		out = append(out, c)
	}
	return out
}
