package solver

import (
	"context"
	"fmt"

	"github.com/paiban/shiftcore/pkg/model"
)

// GreedyEngine 贪心求解器
// 原有分配优先保留，然后按候选稀缺度逐班次选边际代价最小的员工，结果标记为 feasible。
// 严格模式下贪心排不满时转入受预算限制的分支定界，由它判定可行或不可行
type GreedyEngine struct{}

// NewGreedyEngine 创建贪心求解器
func NewGreedyEngine() *GreedyEngine {
	return &GreedyEngine{}
}

// Name 返回求解器名称
func (g *GreedyEngine) Name() string {
	return "greedy"
}

// Solve 生成排班方案
// ctx 已结束时仍完成一次贪心填充，状态为 timeout
func (g *GreedyEngine) Solve(ctx context.Context, md *Model, b Budget) (*Solution, error) {
	if md == nil {
		return nil, fmt.Errorf("模型不能为空")
	}

	st := newState(md)
	st.loadSeed()
	greedyFill(st)

	sol := &Solution{
		Status:     model.SolveFeasible,
		Values:     st.values(),
		Objective:  st.cost(),
		Incumbents: 1,
		Workers:    1,
		Engine:     g.Name(),
	}
	complete := md.Mode != CoverageStrict || st.meetsTargets()

	if ctx.Err() != nil {
		sol.Status = model.SolveTimeout
		if !complete {
			sol.Values, sol.Objective, sol.Incumbents = make([]bool, len(md.Vars)), 0, 0
		}
		return sol, nil
	}
	if complete {
		return sol, nil
	}

	// 严格模式下贪心未能排满，交给分支定界判定
	solveCtx := ctx
	if b.TimeLimit > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, b.TimeLimit)
		defer cancel()
	}
	inc := newIncumbent(nil)
	bb := newBranchBound(md, inc, b.MaxNodes)
	outcome := bb.run(solveCtx)

	sol.Nodes = bb.nodes
	sol.Incumbents = inc.count()
	values, cost, found := inc.Snapshot()
	if found {
		sol.Values, sol.Objective = values, cost
	} else {
		sol.Values, sol.Objective = make([]bool, len(md.Vars)), 0
	}
	sol.Status = statusFor(outcome, found)
	return sol, nil
}
