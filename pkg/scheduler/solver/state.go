package solver

import (
	"sort"
)

// state 搜索过程中的一个（部分）解
// 未置 1 的变量都视为 0，所有硬约束通过 canSet 维持
type state struct {
	md       *Model
	x        []bool
	count    []int // 每个班次已分配人数
	empMin   []int // 每个员工总分钟
	groupMin []int // 每个员工-周分钟
	blocked  []int // 每个变量被多少个已置 1 的互斥变量阻止

	unfilled int   // 未填补人次
	pref     int64 // 逐分配代价之和
	overtime int64 // 加班代价之和
	removed  int64 // 被撤销的原有分配代价之和

	eligible []int
}

func newState(md *Model) *state {
	st := &state{
		md:       md,
		x:        make([]bool, len(md.Vars)),
		count:    make([]int, len(md.Shifts)),
		empMin:   make([]int, len(md.Employees)),
		groupMin: make([]int, len(md.Groups)),
		blocked:  make([]int, len(md.Vars)),
		eligible: md.Eligible(),
	}
	for _, info := range md.ShiftInfo {
		st.unfilled += info.Demand
	}
	for _, v := range md.Vars {
		if v.Seeded {
			st.removed += v.Penalty
		}
	}
	return st
}

// canSet 判断变量能否置 1 而不违反任何硬约束
func (st *state) canSet(v int) bool {
	if st.x[v] || st.blocked[v] > 0 {
		return false
	}
	vr := st.md.Vars[v]
	if st.count[vr.Shift] >= st.md.ShiftInfo[vr.Shift].Demand {
		return false
	}
	return st.groupMin[vr.Group]+vr.Minutes <= st.md.Groups[vr.Group].Cap
}

func (st *state) set(v int) {
	vr := st.md.Vars[v]
	st.x[v] = true
	st.count[vr.Shift]++
	st.unfilled--
	st.empMin[vr.Employee] += vr.Minutes
	st.shiftGroup(vr.Group, vr.Minutes)
	st.pref += vr.Cost
	if vr.Seeded {
		st.removed -= vr.Penalty
	}
	for _, u := range st.md.Conflicts[v] {
		st.blocked[u]++
	}
}

func (st *state) unset(v int) {
	vr := st.md.Vars[v]
	st.x[v] = false
	st.count[vr.Shift]--
	st.unfilled++
	st.empMin[vr.Employee] -= vr.Minutes
	st.shiftGroup(vr.Group, -vr.Minutes)
	st.pref -= vr.Cost
	if vr.Seeded {
		st.removed += vr.Penalty
	}
	for _, u := range st.md.Conflicts[v] {
		st.blocked[u]--
	}
}

func (st *state) shiftGroup(g, delta int) {
	before := st.groupOvertime(g, st.groupMin[g])
	st.groupMin[g] += delta
	st.overtime += st.groupOvertime(g, st.groupMin[g]) - before
}

func (st *state) groupOvertime(g, minutes int) int64 {
	if st.md.OvertimeW == 0 {
		return 0
	}
	over := minutes - st.md.Groups[g].Baseline
	if over <= 0 {
		return 0
	}
	return st.md.OvertimeW * int64(over)
}

// spread 参与比较员工的工时极差（分钟）
func (st *state) spread() int {
	if len(st.eligible) < 2 {
		return 0
	}
	lo, hi := st.empMin[st.eligible[0]], st.empMin[st.eligible[0]]
	for _, e := range st.eligible[1:] {
		m := st.empMin[e]
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
	}
	return hi - lo
}

// cost 目标函数值（权重·分钟），越小越好
func (st *state) cost() int64 {
	c := int64(st.unfilled) * st.md.Weights.Coverage * minutesScale
	c += st.pref + st.overtime + st.removed
	if st.md.BalanceWeight > 0 {
		c += st.md.BalanceWeight * int64(st.spread())
	}
	return c
}

// meetsTargets 严格模式下检查每个班次是否排满可排人数
func (st *state) meetsTargets() bool {
	if st.md.Mode != CoverageStrict {
		return true
	}
	for si, info := range st.md.ShiftInfo {
		if st.count[si] < info.Target {
			return false
		}
	}
	return true
}

func (st *state) values() []bool {
	out := make([]bool, len(st.x))
	copy(out, st.x)
	return out
}

// load 清空后按给定取值重建，不可行的变量被跳过
func (st *state) load(values []bool) {
	for v, on := range st.x {
		if on {
			st.unset(v)
		}
	}
	for v, on := range values {
		if on && st.canSet(v) {
			st.set(v)
		}
	}
}

// loadSeed 按撤销代价从高到低放入原有分配，相互冲突时保留优先级高的
func (st *state) loadSeed() {
	if st.md.Seed == nil {
		return
	}
	var seeded []int
	for v, on := range st.md.Seed {
		if on {
			seeded = append(seeded, v)
		}
	}
	sort.SliceStable(seeded, func(i, j int) bool {
		return st.md.Vars[seeded[i]].Penalty > st.md.Vars[seeded[j]].Penalty
	})
	for _, v := range seeded {
		if st.canSet(v) {
			st.set(v)
		}
	}
}

// marginal 把变量置 1 的近似代价，用于贪心与候选排序
func (st *state) marginal(v int) int64 {
	vr := st.md.Vars[v]
	d := vr.Cost
	d += st.groupOvertime(vr.Group, st.groupMin[vr.Group]+vr.Minutes) - st.groupOvertime(vr.Group, st.groupMin[vr.Group])
	if st.md.BalanceWeight > 0 {
		d += st.md.BalanceWeight * int64(st.empMin[vr.Employee])
	}
	return d
}

// shiftOrder 候选越少的班次越先处理，其次按日期与开始时间
func shiftOrder(md *Model) []int {
	order := make([]int, len(md.Shifts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		ca, cb := len(md.ShiftInfo[a].Candidates), len(md.ShiftInfo[b].Candidates)
		if ca != cb {
			return ca < cb
		}
		sa, sb := md.Shifts[a], md.Shifts[b]
		if sa.Date != sb.Date {
			return sa.Date < sb.Date
		}
		return sa.StartTime < sb.StartTime
	})
	return order
}

// greedyFill 在当前解上逐班次补齐人数，每次选边际代价最小的候选
func greedyFill(st *state) {
	for _, s := range shiftOrder(st.md) {
		demand := st.md.ShiftInfo[s].Demand
		for st.count[s] < demand {
			best, bestCost := -1, int64(0)
			for _, v := range st.md.ShiftInfo[s].Candidates {
				if !st.canSet(v) {
					continue
				}
				if c := st.marginal(v); best < 0 || c < bestCost {
					best, bestCost = v, c
				}
			}
			if best < 0 {
				break
			}
			st.set(best)
		}
	}
}
