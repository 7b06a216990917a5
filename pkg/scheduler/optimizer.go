package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/solver"
	"github.com/paiban/shiftcore/pkg/stats"
)

// Optimizer 排班优化器
// 以现有分配为初始解重新求解，撤销原有分配计入目标函数
type Optimizer struct {
	core
}

// NewOptimizer 创建排班优化器
func NewOptimizer(opts ...Option) *Optimizer {
	return &Optimizer{core: newCore(opts)}
}

// Optimize 在尽量少改动的前提下改进现有排班
// 默认使用 partial 覆盖模式，现有分配总是一个可行的候选解，因此覆盖率不会下降。
// 保留下来的分配沿用原 ID 与状态，已拒绝的分配不参与求解也不出现在结果中
func (o *Optimizer) Optimize(ctx context.Context, existing []*model.Assignment, req Request) (*model.SolveResult, error) {
	if existing == nil {
		existing = []*model.Assignment{}
	}
	if err := validateRequest(req, existing); err != nil {
		return nil, err
	}

	run, err := o.solve(ctx, "optimize", req, existing)
	if err != nil {
		return nil, err
	}
	run.result.Improvements = improvements(run.problem, run.model, run.result.Assignments)
	return run.result, nil
}

// improvements 对比优化前后的排班
// 公平性只在参与目标函数均衡的员工之间比较
func improvements(p problem, md *solver.Model, after []*model.Assignment) *model.Improvements {
	eligible := make([]*model.Employee, 0, len(md.Employees))
	for _, ei := range md.Eligible() {
		eligible = append(eligible, md.Employees[ei])
	}

	var held []*model.Assignment
	for _, a := range p.existing {
		if a.IsHeld() {
			held = append(held, a)
		}
	}

	imp := &model.Improvements{
		CoverageDelta: stats.Coverage(p.shifts, after) - stats.Coverage(p.shifts, held),
		FairnessDelta: stats.FairnessDeviation(eligible, p.shifts, after) - stats.FairnessDeviation(eligible, p.shifts, held),
	}

	kept := make(map[uuid.UUID]bool, len(after))
	existingIDs := make(map[uuid.UUID]bool, len(held))
	for _, a := range held {
		existingIDs[a.ID] = true
	}
	// 新增分配按班次计数，用于区分改派与撤销
	added := make(map[uuid.UUID]int)
	for _, a := range after {
		if existingIDs[a.ID] {
			kept[a.ID] = true
			continue
		}
		imp.Added++
		added[a.ShiftID]++
	}

	for _, a := range held {
		if kept[a.ID] {
			continue
		}
		imp.Changed++
		if added[a.ShiftID] > 0 {
			added[a.ShiftID]--
			continue
		}
		imp.Removed++
	}
	return imp
}
