package solver

import (
	"context"
	"sort"
)

// searchOutcome 搜索结束的原因
type searchOutcome int

const (
	outcomeExhausted   searchOutcome = iota // 搜索树已遍历完
	outcomeNodeLimit                        // 达到节点上限
	outcomeInterrupted                      // 超时或被取消
)

// checkEvery 每隔多少节点检查一次取消
const checkEvery = 1024

// branchBound 深度优先分支定界
// 逐班次分支，候选少的班次优先，每个变量先试 1 后试 0
type branchBound struct {
	md  *Model
	st  *state
	inc *incumbent

	order   []int  // 变量分支顺序
	decided []bool // 已做出决定的变量

	open    []int // 每个班次尚未决定且未被阻止的候选数
	pool    []int // 每个员工尚未决定且未被阻止的候选分钟
	neg     int64 // 尚未决定变量中负代价之和（乐观估计）
	lost    int64 // 已决定为 0 的原有分配代价
	deficit int   // 已无法填补的人次
	short   int   // 严格模式下已无法排满的班次数

	nodes    int64
	maxNodes int64
	stopped  searchOutcome
	halted   bool
}

func newBranchBound(md *Model, inc *incumbent, maxNodes int64) *branchBound {
	b := &branchBound{
		md:       md,
		st:       newState(md),
		inc:      inc,
		decided:  make([]bool, len(md.Vars)),
		open:     make([]int, len(md.Shifts)),
		pool:     make([]int, len(md.Employees)),
		maxNodes: maxNodes,
	}

	for _, s := range shiftOrder(md) {
		cands := append([]int(nil), md.ShiftInfo[s].Candidates...)
		sort.SliceStable(cands, func(i, j int) bool {
			vi, vj := md.Vars[cands[i]], md.Vars[cands[j]]
			if vi.Seeded != vj.Seeded {
				return vi.Seeded
			}
			return vi.Cost < vj.Cost
		})
		b.order = append(b.order, cands...)
	}

	for _, vr := range md.Vars {
		b.open[vr.Shift]++
		b.pool[vr.Employee] += vr.Minutes
		if vr.Cost < 0 {
			b.neg += vr.Cost
		}
	}
	for s := range md.Shifts {
		b.deficit += b.deficitOf(s)
		if b.isShort(s) {
			b.short++
		}
	}
	return b
}

// run 执行搜索直到遍历完、达到节点上限或 ctx 结束
func (b *branchBound) run(ctx context.Context) searchOutcome {
	b.stopped = outcomeExhausted
	b.dfs(ctx, 0)
	return b.stopped
}

func (b *branchBound) dfs(ctx context.Context, depth int) {
	b.nodes++
	if b.nodes%checkEvery == 0 && ctx.Err() != nil {
		b.halt(outcomeInterrupted)
	}
	if b.maxNodes > 0 && b.nodes >= b.maxNodes {
		b.halt(outcomeNodeLimit)
	}
	if b.halted {
		return
	}
	if b.md.Mode == CoverageStrict && b.short > 0 {
		return
	}
	if b.lowerBound() >= b.inc.Cost() {
		return
	}
	if depth == len(b.order) {
		b.inc.Offer("branch_bound", b.st.values(), b.st.cost())
		return
	}

	v := b.order[depth]
	if b.st.canSet(v) {
		b.take(v)
		b.dfs(ctx, depth+1)
		b.untake(v)
		if b.halted {
			return
		}
	}

	b.skip(v)
	b.dfs(ctx, depth+1)
	b.unskip(v)
}

func (b *branchBound) halt(o searchOutcome) {
	if !b.halted {
		b.halted = true
		b.stopped = o
	}
}

// lowerBound 当前节点下任何完整解目标值的下界
func (b *branchBound) lowerBound() int64 {
	lb := int64(b.deficit) * b.md.Weights.Coverage * minutesScale
	lb += b.st.pref + b.neg + b.st.overtime + b.lost
	if b.md.BalanceWeight > 0 && len(b.st.eligible) > 1 {
		hi, lo := 0, -1
		for _, e := range b.st.eligible {
			if m := b.st.empMin[e]; m > hi {
				hi = m
			}
			if m := b.st.empMin[e] + b.pool[e]; lo < 0 || m < lo {
				lo = m
			}
		}
		if hi > lo {
			lb += b.md.BalanceWeight * int64(hi-lo)
		}
	}
	return lb
}

func (b *branchBound) deficitOf(s int) int {
	d := b.md.ShiftInfo[s].Demand - b.st.count[s] - b.open[s]
	if d < 0 {
		return 0
	}
	return d
}

func (b *branchBound) isShort(s int) bool {
	return b.st.count[s]+b.open[s] < b.md.ShiftInfo[s].Target
}

// touch 包裹一次对班次计数的修改，维护 deficit 与 short
func (b *branchBound) touch(s int, change func()) {
	d0, s0 := b.deficitOf(s), b.isShort(s)
	change()
	b.deficit += b.deficitOf(s) - d0
	if s0 != b.isShort(s) {
		if s0 {
			b.short--
		} else {
			b.short++
		}
	}
}

// leave 变量离开待决池
func (b *branchBound) leave(v int) {
	vr := b.md.Vars[v]
	b.touch(vr.Shift, func() { b.open[vr.Shift]-- })
	b.pool[vr.Employee] -= vr.Minutes
	if vr.Cost < 0 {
		b.neg -= vr.Cost
	}
}

// enter 变量回到待决池
func (b *branchBound) enter(v int) {
	vr := b.md.Vars[v]
	b.touch(vr.Shift, func() { b.open[vr.Shift]++ })
	b.pool[vr.Employee] += vr.Minutes
	if vr.Cost < 0 {
		b.neg += vr.Cost
	}
}

func (b *branchBound) close(v int) {
	b.decided[v] = true
	if b.st.blocked[v] == 0 {
		b.leave(v)
	}
}

func (b *branchBound) reopen(v int) {
	b.decided[v] = false
	if b.st.blocked[v] == 0 {
		b.enter(v)
	}
}

func (b *branchBound) take(v int) {
	b.close(v)
	b.touch(b.md.Vars[v].Shift, func() { b.st.set(v) })
	for _, u := range b.md.Conflicts[v] {
		if !b.decided[u] && b.st.blocked[u] == 1 {
			b.leave(u)
		}
	}
}

func (b *branchBound) untake(v int) {
	b.touch(b.md.Vars[v].Shift, func() { b.st.unset(v) })
	for _, u := range b.md.Conflicts[v] {
		if !b.decided[u] && b.st.blocked[u] == 0 {
			b.enter(u)
		}
	}
	b.reopen(v)
}

func (b *branchBound) skip(v int) {
	b.close(v)
	if b.md.Vars[v].Seeded {
		b.lost += b.md.Vars[v].Penalty
	}
}

func (b *branchBound) unskip(v int) {
	if b.md.Vars[v].Seeded {
		b.lost -= b.md.Vars[v].Penalty
	}
	b.reopen(v)
}
