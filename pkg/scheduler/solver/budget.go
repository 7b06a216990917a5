package solver

import (
	"runtime"
	"time"
)

// Budget 一次求解的资源预算
type Budget struct {
	TimeLimit time.Duration `json:"time_limit"`
	Workers   int           `json:"workers"`
	MaxNodes  int64         `json:"max_nodes"` // 0 表示不限
}

// BudgetConfig 对自适应预算的外部限制
type BudgetConfig struct {
	MaxTime    time.Duration // 0 表示不限
	MaxWorkers int           // 0 表示使用 GOMAXPROCS
	MaxNodes   int64
	Level      int // 3 时时间预算翻倍
}

// budgetTier 变量规模对应的默认预算
type budgetTier struct {
	below   int
	limit   time.Duration
	workers int
}

var budgetTiers = []budgetTier{
	{below: 100, limit: 1 * time.Second, workers: 1},
	{below: 1000, limit: 5 * time.Second, workers: 2},
	{below: 10000, limit: 15 * time.Second, workers: 4},
}

// BudgetFor 按变量数量选择时间与并行度
func BudgetFor(numVars int, cfg BudgetConfig) Budget {
	b := Budget{TimeLimit: 30 * time.Second, Workers: 8, MaxNodes: cfg.MaxNodes}
	for _, t := range budgetTiers {
		if numVars < t.below {
			b.TimeLimit, b.Workers = t.limit, t.workers
			break
		}
	}

	if cfg.Level >= 3 {
		b.TimeLimit *= 2
	}
	if cfg.MaxTime > 0 && b.TimeLimit > cfg.MaxTime {
		b.TimeLimit = cfg.MaxTime
	}

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	if b.Workers > maxWorkers {
		b.Workers = maxWorkers
	}
	if b.Workers < 1 {
		b.Workers = 1
	}
	return b
}
