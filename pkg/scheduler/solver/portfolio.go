package solver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PortfolioEngine 并行组合求解器
// 0 号协程做完整的分支定界，其余协程做局部搜索，共享同一个当前最优解。
// 分支定界遍历完成即证明最优（或不可行），其余协程随之停止
type PortfolioEngine struct {
	localSearch LocalSearchConfig
	onImprove   ImproveFunc
}

// NewPortfolioEngine 创建并行组合求解器
func NewPortfolioEngine(onImprove ImproveFunc) *PortfolioEngine {
	return &PortfolioEngine{
		localSearch: DefaultLocalSearchConfig(),
		onImprove:   onImprove,
	}
}

// WithLocalSearch 替换局部搜索配置
func (p *PortfolioEngine) WithLocalSearch(cfg LocalSearchConfig) *PortfolioEngine {
	p.localSearch = cfg
	return p
}

// Name 返回求解器名称
func (p *PortfolioEngine) Name() string {
	return "portfolio"
}

// Solve 在预算内求解
// 超时或 ctx 取消时返回已找到的最优解，状态为 timeout
func (p *PortfolioEngine) Solve(ctx context.Context, md *Model, b Budget) (*Solution, error) {
	if md == nil {
		return nil, fmt.Errorf("模型不能为空")
	}
	if b.Workers < 1 {
		b.Workers = 1
	}

	inc := newIncumbent(p.onImprove)
	p.seedIncumbent(md, inc)

	solveCtx := ctx
	if b.TimeLimit > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, b.TimeLimit)
		defer cancel()
	}
	searchCtx, stop := context.WithCancel(solveCtx)
	defer stop()

	bb := newBranchBound(md, inc, b.MaxNodes)
	outcome := outcomeInterrupted
	if solveCtx.Err() == nil {
		g, gctx := errgroup.WithContext(searchCtx)
		g.Go(func() error {
			outcome = bb.run(gctx)
			stop()
			return nil
		})
		for w := 1; w < b.Workers; w++ {
			ls := newLocalSearch(w, md, inc, p.localSearch)
			g.Go(func() error {
				ls.run(gctx)
				return nil
			})
		}
		_ = g.Wait()
	}

	sol := &Solution{
		Nodes:      bb.nodes,
		Incumbents: inc.count(),
		Workers:    b.Workers,
		Engine:     p.Name(),
	}
	values, cost, found := inc.Snapshot()
	if found {
		sol.Values, sol.Objective = values, cost
	} else {
		sol.Values = make([]bool, len(md.Vars))
	}

	sol.Status = statusFor(outcome, found)
	return sol, nil
}

// seedIncumbent 先提交原有分配，再提交贪心补齐后的解
// 后者只有严格更优时才会替换前者
func (p *PortfolioEngine) seedIncumbent(md *Model, inc *incumbent) {
	st := newState(md)
	st.loadSeed()
	if md.Seed != nil && st.meetsTargets() {
		inc.Offer("seed", st.values(), st.cost())
	}
	greedyFill(st)
	if st.meetsTargets() {
		inc.Offer("greedy", st.values(), st.cost())
	}
}
