package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftcore/pkg/errors"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
	"github.com/paiban/shiftcore/pkg/scheduler/solver"
	"github.com/paiban/shiftcore/pkg/stats"
)

// Generator 排班生成器
type Generator struct {
	core
}

// NewGenerator 创建排班生成器
func NewGenerator(opts ...Option) *Generator {
	return &Generator{core: newCore(opts)}
}

// Generate 从零生成排班
// 不可行时返回空分配；超时返回当前最优解（可能为空）
func (g *Generator) Generate(ctx context.Context, req Request) (*model.SolveResult, error) {
	if err := validateRequest(req, nil); err != nil {
		return nil, err
	}
	run, err := g.solve(ctx, "generate", req, nil)
	if err != nil {
		return nil, err
	}
	return run.result, nil
}

// solveRun 一次求解的中间产物
type solveRun struct {
	result  *model.SolveResult
	problem problem
	model   *solver.Model
	values  []bool
}

// solve 建模、求解、解码与评估
// 调用前输入必须已通过校验
func (c *core) solve(ctx context.Context, op string, req Request, existing []*model.Assignment) (*solveRun, error) {
	start := time.Now()
	log := c.log.With(uuid.NewString()[:8], op)

	p := copyProblem(req, existing)
	log.StartSchedule(len(p.employees), len(p.shifts), req.DateRange.Days())
	log.StateChange("", stateBuilding)

	opts := req.Options
	if opts.OptimizationLevel == 0 {
		opts.OptimizationLevel = LevelBalanced
	}
	mode := opts.CoverageMode
	if mode == "" {
		mode = solver.CoverageStrict
		if existing != nil {
			mode = solver.CoveragePartial
		}
	}

	manager := newManager(req)
	log.ConstraintsRegistered(manager.Summary())
	var seed []*model.Assignment
	if existing != nil {
		seed = admitSeed(p, manager, log)
	}
	md, err := solver.BuildModel(p.employees, p.shifts, manager, solver.BuildOptions{
		Mode:    mode,
		Weights: opts.Weights,
		Seed:    seed,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "构建求解模型失败")
	}

	budget := solver.BudgetFor(md.NumVars(), solver.BudgetConfig{
		MaxTime:    opts.MaxTime,
		MaxWorkers: opts.MaxWorkers,
		MaxNodes:   opts.MaxNodes,
		Level:      opts.OptimizationLevel,
	})
	log.ModelBuilt(md.NumVars(), md.NumExclusions(), budget.TimeLimit, budget.Workers)
	log.StateChange(stateBuilding, stateSolving)

	engine := c.selectEngine(opts, log)
	sol, err := engine.Solve(ctx, md, budget)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "求解失败")
	}
	log.StateChange(stateSolving, strings.ToUpper(string(sol.Status)))

	result := &model.SolveResult{
		Status:      sol.Status,
		Assignments: []*model.Assignment{},
		Conflicts:   []model.Conflict{},
		Objective:   sol.Objective,
		Stats: &model.SolveStats{
			Engine:     sol.Engine,
			Variables:  md.NumVars(),
			Workers:    sol.Workers,
			TimeLimit:  budget.TimeLimit,
			Nodes:      sol.Nodes,
			Incumbents: sol.Incumbents,
		},
	}

	if sol.Status != model.SolveInfeasible {
		result.Assignments = decode(md, sol.Values)
		hard := constraint.Evaluate(result.Assignments, p.employees, p.shifts, manager)
		if len(hard) > 0 {
			for _, h := range hard {
				log.ConstraintViolation(string(h.Category), h.Message)
			}
			return nil, apperrors.InvariantViolation(hard[0].Message).
				WithField("conflicts", len(hard)).
				WithField("status", string(sol.Status))
		}
		result.Conflicts = append(result.Conflicts, unstaffedWarnings(md)...)
		constraint.SortConflicts(result.Conflicts)
	}
	result.Coverage = stats.Coverage(p.shifts, result.Assignments)
	result.Duration = time.Since(start)

	c.record(op, result)
	log.ScheduleComplete(string(result.Status), result.Duration, result.Coverage, len(result.Assignments))

	return &solveRun{result: result, problem: p, model: md, values: sol.Values}, nil
}

// decode 把变量取值翻译为分配；保留的原有分配沿用其 ID 与状态
func decode(md *solver.Model, values []bool) []*model.Assignment {
	pairs := md.Decode(values)
	out := make([]*model.Assignment, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Seed != nil {
			kept := *pair.Seed
			out = append(out, &kept)
			continue
		}
		out = append(out, model.NewAssignment(pair.Employee.ID, pair.Shift.ID))
	}
	return out
}

func (c *core) record(op string, result *model.SolveResult) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordSolve(op, string(result.Status), result.Duration, result.Coverage, len(result.Assignments))
	if result.Stats != nil {
		c.recorder.RecordSearch(result.Stats.Engine, result.Stats.Nodes)
	}
	for _, conflict := range result.Conflicts {
		c.recorder.RecordConflict(string(conflict.Category), string(conflict.Severity))
	}
}
