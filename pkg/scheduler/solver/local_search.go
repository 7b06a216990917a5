package solver

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
)

// LocalSearchConfig 局部搜索配置
type LocalSearchConfig struct {
	InitialTemp      float64 `json:"initial_temp"`      // 模拟退火初始温度（权重·分钟）
	CoolingRate      float64 `json:"cooling_rate"`      // 冷却速率
	MinTemp          float64 `json:"min_temp"`          // 低于此温度时回温
	TabuSize         int     `json:"tabu_size"`         // 禁忌表大小
	PlateauThreshold int     `json:"plateau_threshold"` // 无改进迭代次数达到后从最优解重启
}

// DefaultLocalSearchConfig 默认局部搜索配置
func DefaultLocalSearchConfig() LocalSearchConfig {
	return LocalSearchConfig{
		InitialTemp:      6000,
		CoolingRate:      0.995,
		MinTemp:          1,
		TabuSize:         50,
		PlateauThreshold: 2000,
	}
}

// MoveType 邻域移动类型
type MoveType int

const (
	MoveInsert MoveType = iota // 为缺人的班次插入候选
	MoveRemove                 // 移除一个分配
	MoveSwap                   // 同一班次内换人
)

// move 一次邻域移动
type move struct {
	kind MoveType
	from int // 置 0 的变量，插入时为 -1
	to   int // 置 1 的变量，移除时为 -1
}

// key 移动的哈希键 (FNV-1a)
func (m move) key() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(m.from)))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(m.to)))
	h.Write(buf[:])
	return h.Sum64()
}

// reverse 撤销该移动的移动
func (m move) reverse() move {
	switch m.kind {
	case MoveInsert:
		return move{kind: MoveRemove, from: m.to, to: -1}
	case MoveRemove:
		return move{kind: MoveInsert, from: -1, to: m.from}
	default:
		return move{kind: MoveSwap, from: m.to, to: m.from}
	}
}

// localSearch 模拟退火与禁忌表结合的局部搜索协程
// 只在满足所有硬约束的解之间移动
type localSearch struct {
	name  string
	md    *Model
	inc   *incumbent
	cfg   LocalSearchConfig
	rng   *rand.Rand
	tabu  *TabuList
	st    *state
	iters int64
}

func newLocalSearch(worker int, md *Model, inc *incumbent, cfg LocalSearchConfig) *localSearch {
	return &localSearch{
		name: fmt.Sprintf("local_search_%d", worker),
		md:   md,
		inc:  inc,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(int64(worker)*7919 + int64(len(md.Vars)))),
		tabu: NewTabuList(cfg.TabuSize),
		st:   newState(md),
	}
}

// restart 从共享最优解（没有时用贪心解）重新开始
func (ls *localSearch) restart() int64 {
	if values, _, ok := ls.inc.Snapshot(); ok {
		ls.st.load(values)
	} else {
		ls.st.load(nil)
		ls.st.loadSeed()
		greedyFill(ls.st)
	}
	ls.tabu.Clear()
	return ls.st.cost()
}

// run 持续搜索直到 ctx 结束
func (ls *localSearch) run(ctx context.Context) {
	if len(ls.md.Vars) == 0 {
		return
	}
	current := ls.restart()
	best := current
	temperature := ls.cfg.InitialTemp
	noImprovement := 0
	misses := 0

	for {
		ls.iters++
		if ls.iters%256 == 0 && ctx.Err() != nil {
			return
		}

		mv, ok := ls.randomMove()
		if !ok {
			// 没有可行移动时退出，避免空转
			if misses++; misses > 1000 {
				return
			}
			continue
		}
		misses = 0

		ls.apply(mv)
		next := ls.st.cost()
		delta := next - current

		accept := delta < 0
		if !accept && !(ls.tabu.Contains(mv.key()) && next >= best) {
			accept = ls.rng.Float64() < boltzmannProbability(float64(delta), temperature)
		}

		if accept {
			current = next
			ls.tabu.Add(mv.reverse().key())
			if current < best {
				best = current
				noImprovement = 0
				if ls.st.meetsTargets() {
					ls.inc.Offer(ls.name, ls.st.values(), current)
				}
			} else {
				noImprovement++
			}
		} else {
			ls.apply(mv.reverse())
			noImprovement++
		}

		temperature *= ls.cfg.CoolingRate
		if temperature < ls.cfg.MinTemp || noImprovement >= ls.cfg.PlateauThreshold {
			temperature = ls.cfg.InitialTemp
			noImprovement = 0
			current = ls.restart()
			if current < best {
				best = current
			}
		}
	}
}

func (ls *localSearch) apply(mv move) {
	if mv.from >= 0 {
		ls.st.unset(mv.from)
	}
	if mv.to >= 0 {
		ls.st.set(mv.to)
	}
}

// randomMove 随机生成一个可行移动：60% 换人，30% 插入，10% 移除
func (ls *localSearch) randomMove() (move, bool) {
	s := ls.rng.Intn(len(ls.md.Shifts))
	info := ls.md.ShiftInfo[s]
	if len(info.Candidates) == 0 {
		return move{}, false
	}

	p := ls.rng.Float64()
	switch {
	case p < 0.3:
		if ls.st.count[s] >= info.Demand {
			return move{}, false
		}
		v := info.Candidates[ls.rng.Intn(len(info.Candidates))]
		if !ls.st.canSet(v) {
			return move{}, false
		}
		return move{kind: MoveInsert, from: -1, to: v}, true
	case p < 0.4:
		v := ls.pickAssigned(info.Candidates)
		if v < 0 {
			return move{}, false
		}
		return move{kind: MoveRemove, from: v, to: -1}, true
	default:
		v := ls.pickAssigned(info.Candidates)
		if v < 0 {
			return move{}, false
		}
		u := info.Candidates[ls.rng.Intn(len(info.Candidates))]
		if ls.st.x[u] || ls.st.blocked[u] > 0 {
			return move{}, false
		}
		ur := ls.md.Vars[u]
		if ls.st.groupMin[ur.Group]+ur.Minutes > ls.md.Groups[ur.Group].Cap {
			return move{}, false
		}
		return move{kind: MoveSwap, from: v, to: u}, true
	}
}

// pickAssigned 随机返回候选中一个已置 1 的变量
func (ls *localSearch) pickAssigned(cands []int) int {
	start := ls.rng.Intn(len(cands))
	for i := range cands {
		v := cands[(start+i)%len(cands)]
		if ls.st.x[v] {
			return v
		}
	}
	return -1
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (new - old)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用 uint64 哈希作为键）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	if size <= 0 {
		size = 1
	}
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表，超出容量时移除最旧的
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 返回禁忌表长度
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
