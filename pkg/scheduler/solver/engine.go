package solver

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/paiban/shiftcore/pkg/model"
)

// Engine 求解引擎
type Engine interface {
	Name() string
	Solve(ctx context.Context, md *Model, b Budget) (*Solution, error)
}

// Solution 求解结果
type Solution struct {
	Status     model.SolveStatus
	Values     []bool // 与 Model.Vars 一一对应
	Objective  int64
	Nodes      int64
	Incumbents int
	Workers    int
	Engine     string
}

// statusFor 按搜索结束原因与是否找到解确定求解状态
func statusFor(outcome searchOutcome, found bool) model.SolveStatus {
	switch outcome {
	case outcomeExhausted:
		if found {
			return model.SolveOptimal
		}
		return model.SolveInfeasible
	case outcomeNodeLimit:
		if found {
			return model.SolveFeasible
		}
		return model.SolveTimeout
	}
	return model.SolveTimeout
}

// ImproveFunc 找到更优解时的回调
type ImproveFunc func(worker string, objective int64)

// incumbent 各搜索协程共享的当前最优解
// 只有严格更优的解才会替换它
type incumbent struct {
	best      atomic.Int64
	mu        sync.Mutex
	values    []bool
	found     int
	onImprove ImproveFunc
}

func newIncumbent(onImprove ImproveFunc) *incumbent {
	in := &incumbent{onImprove: onImprove}
	in.best.Store(math.MaxInt64)
	return in
}

// Cost 当前最优目标值，尚无解时为 math.MaxInt64
func (in *incumbent) Cost() int64 {
	return in.best.Load()
}

// Offer 提交一个可行解，返回是否被采纳
func (in *incumbent) Offer(worker string, values []bool, cost int64) bool {
	if cost >= in.best.Load() {
		return false
	}
	in.mu.Lock()
	if cost >= in.best.Load() {
		in.mu.Unlock()
		return false
	}
	in.values = values
	in.found++
	in.best.Store(cost)
	in.mu.Unlock()

	if in.onImprove != nil {
		in.onImprove(worker, cost)
	}
	return true
}

// Snapshot 返回当前最优解的副本
func (in *incumbent) Snapshot() ([]bool, int64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.values == nil {
		return nil, 0, false
	}
	out := make([]bool, len(in.values))
	copy(out, in.values)
	return out, in.best.Load(), true
}

func (in *incumbent) count() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.found
}
