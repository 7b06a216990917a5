// Package solver 提供排班求解器
package solver

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint"
)

// CoverageMode 人数需求的约束方式
type CoverageMode string

const (
	// CoverageStrict 每个班次必须排满其可排人数（需求与候选人数取小）
	CoverageStrict CoverageMode = "strict"
	// CoveragePartial 每个班次不超过需求人数，缺口只计入目标函数
	CoveragePartial CoverageMode = "partial"
)

// Weights 目标函数中与约束无关的权重
type Weights struct {
	Coverage   int64 `json:"coverage"`   // 每个未填补人次
	Disruption int64 `json:"disruption"` // 每个被撤销的原有分配（另加该分配的优先级）
}

// DefaultWeights 返回默认权重
// 覆盖率远高于所有软约束之和，撤销原有分配的代价高于单次调整带来的公平性收益
func DefaultWeights() Weights {
	return Weights{Coverage: 100000, Disruption: 2000}
}

// minutesScale 软约束权重按小时给出，目标值统一换算为 权重·分钟
const minutesScale = 60

// unbounded 未注册周工时上限时使用
const unbounded = math.MaxInt32

// Var 决策变量：某员工是否被分配到某班次
type Var struct {
	Employee int   // Model.Employees 下标
	Shift    int   // Model.Shifts 下标
	Group    int   // Model.Groups 下标（员工-周）
	Minutes  int   // 班次时长
	Cost     int64 // 取 1 时的逐分配代价
	Seeded   bool  // 对应一个原有分配
	Penalty  int64 // 原有分配被撤销时的代价
}

// Group 同一员工同一 ISO 周的变量
type Group struct {
	Employee int
	Week     string
	Vars     []int
	Cap      int // 分钟
	Baseline int // 加班基准（分钟）
}

// ShiftInfo 班次在模型中的统计
type ShiftInfo struct {
	Demand     int   // 需求人数
	Target     int   // 严格模式下必须排满的人数
	Candidates []int // 变量下标
	Qualified  int   // 在职且资质满足的员工数
}

// Model 排班求解模型
// 只读，可被多个搜索协程共享
type Model struct {
	Employees []*model.Employee
	Shifts    []*model.Shift
	Vars      []Var
	Groups    []Group
	ShiftInfo []ShiftInfo
	ByEmp     [][]int // 每个员工的变量下标
	Conflicts [][]int // 每个变量的互斥变量

	Mode          CoverageMode
	Weights       Weights
	BalanceWeight int64 // 0 表示不考虑公平性
	OvertimeW     int64 // 0 表示不考虑加班
	Seed          []bool

	seedAssignments map[int]*model.Assignment
	pairIndex       map[[2]int]int
}

// BuildOptions 建模选项
type BuildOptions struct {
	Mode    CoverageMode
	Weights Weights
	// Seed 作为初始解的原有分配，已拒绝的分配会被忽略
	Seed []*model.Assignment
}

// BuildModel 把领域对象翻译为布尔决策模型
// 被任一硬性组合过滤器拒绝的 (员工, 班次) 不生成变量
func BuildModel(employees []*model.Employee, shifts []*model.Shift, m *constraint.Manager, opts BuildOptions) (*Model, error) {
	if m == nil {
		return nil, fmt.Errorf("约束管理器不能为空")
	}
	if opts.Mode == "" {
		opts.Mode = CoverageStrict
	}
	if opts.Weights.Coverage <= 0 {
		opts.Weights = DefaultWeights()
	}

	md := &Model{
		Employees:       employees,
		Shifts:          shifts,
		ShiftInfo:       make([]ShiftInfo, len(shifts)),
		ByEmp:           make([][]int, len(employees)),
		Mode:            opts.Mode,
		Weights:         opts.Weights,
		seedAssignments: make(map[int]*model.Assignment),
		pairIndex:       make(map[[2]int]int),
	}
	if b := m.Balancer(); b != nil {
		md.BalanceWeight = int64(b.BalanceWeight())
	}
	ot := m.OvertimeLimiter()
	if ot != nil {
		md.OvertimeW = int64(ot.OvertimeWeight())
	}

	filters := m.PairFilters()
	scorers := m.PairScorers()
	caps := m.WeeklyCaps()

	groupIndex := make(map[string]int)
	for si, s := range shifts {
		info := &md.ShiftInfo[si]
		info.Demand = s.Headcount
		for ei, e := range employees {
			if e.IsActive() && e.Qualifies(s) {
				info.Qualified++
			}
			if !allows(filters, e, s) {
				continue
			}

			cost := int64(0)
			for _, sc := range scorers {
				cost += int64(sc.PairCost(e, s))
			}

			key := fmt.Sprintf("%d|%s", ei, s.WeekKey())
			gi, ok := groupIndex[key]
			if !ok {
				gi = len(md.Groups)
				groupIndex[key] = gi
				g := Group{Employee: ei, Week: s.WeekKey(), Cap: weeklyCap(caps, e)}
				if ot != nil {
					g.Baseline = ot.BaselineMinutes(e)
				}
				md.Groups = append(md.Groups, g)
			}

			vi := len(md.Vars)
			md.Vars = append(md.Vars, Var{
				Employee: ei,
				Shift:    si,
				Group:    gi,
				Minutes:  s.DurationMinutes(),
				Cost:     cost * minutesScale,
			})
			md.Groups[gi].Vars = append(md.Groups[gi].Vars, vi)
			md.ByEmp[ei] = append(md.ByEmp[ei], vi)
			info.Candidates = append(info.Candidates, vi)
			md.pairIndex[[2]int{ei, si}] = vi
		}
		info.Target = info.Demand
		if len(info.Candidates) < info.Target {
			info.Target = len(info.Candidates)
		}
	}

	md.buildConflicts(m.PairExclusions())
	md.applySeed(opts.Seed)
	return md, nil
}

func allows(filters []constraint.PairFilter, e *model.Employee, s *model.Shift) bool {
	for _, f := range filters {
		if !f.AllowsPair(e, s) {
			return false
		}
	}
	return true
}

func weeklyCap(caps []constraint.WeeklyCap, e *model.Employee) int {
	limit := unbounded
	for _, c := range caps {
		if v := c.WeeklyCapMinutes(e); v < limit {
			limit = v
		}
	}
	return limit
}

// buildConflicts 为同一员工的变量建立两两互斥关系
func (md *Model) buildConflicts(exclusions []constraint.PairExclusion) {
	md.Conflicts = make([][]int, len(md.Vars))
	if len(exclusions) == 0 {
		return
	}
	for ei, vars := range md.ByEmp {
		e := md.Employees[ei]
		for i := 0; i < len(vars); i++ {
			a := md.Shifts[md.Vars[vars[i]].Shift]
			for j := i + 1; j < len(vars); j++ {
				b := md.Shifts[md.Vars[vars[j]].Shift]
				for _, x := range exclusions {
					if x.Excludes(e, a, b) {
						md.Conflicts[vars[i]] = append(md.Conflicts[vars[i]], vars[j])
						md.Conflicts[vars[j]] = append(md.Conflicts[vars[j]], vars[i])
						break
					}
				}
			}
		}
	}
}

// applySeed 把原有分配映射到变量上，无法映射的分配（违反硬约束）不进入初始解
func (md *Model) applySeed(seed []*model.Assignment) {
	if len(seed) == 0 {
		return
	}
	empIdx := make(map[uuid.UUID]int, len(md.Employees))
	for i, e := range md.Employees {
		empIdx[e.ID] = i
	}
	shiftIdx := make(map[uuid.UUID]int, len(md.Shifts))
	for i, s := range md.Shifts {
		shiftIdx[s.ID] = i
	}

	md.Seed = make([]bool, len(md.Vars))
	for _, a := range seed {
		if !a.IsHeld() {
			continue
		}
		ei, ok1 := empIdx[a.EmployeeID]
		si, ok2 := shiftIdx[a.ShiftID]
		if !ok1 || !ok2 {
			continue
		}
		vi, ok := md.pairIndex[[2]int{ei, si}]
		if !ok || md.Seed[vi] {
			continue
		}
		md.Seed[vi] = true
		md.Vars[vi].Seeded = true
		md.Vars[vi].Penalty = (md.Weights.Disruption + int64(a.Priority)) * minutesScale
		md.seedAssignments[vi] = a
	}
}

// NumVars 返回变量数
func (md *Model) NumVars() int {
	return len(md.Vars)
}

// NumExclusions 返回互斥对数量
func (md *Model) NumExclusions() int {
	n := 0
	for _, c := range md.Conflicts {
		n += len(c)
	}
	return n / 2
}

// Eligible 返回参与公平性比较的员工下标（在职且每周上限大于 0）
func (md *Model) Eligible() []int {
	var out []int
	for ei, e := range md.Employees {
		if e.IsActive() && e.MaxHoursPerWeek > 0 {
			out = append(out, ei)
		}
	}
	return out
}

// SeedAssignment 返回变量对应的原有分配
func (md *Model) SeedAssignment(v int) *model.Assignment {
	return md.seedAssignments[v]
}

// VarFor 返回 (员工, 班次) 对应的变量下标
func (md *Model) VarFor(employee, shift int) (int, bool) {
	v, ok := md.pairIndex[[2]int{employee, shift}]
	return v, ok
}

// Pair 解码后的一个分配
type Pair struct {
	Var      int
	Employee *model.Employee
	Shift    *model.Shift
	Seed     *model.Assignment // 保留的原有分配，新分配时为 nil
}

// Decode 把变量取值翻译为分配对，按班次日期、开始时间、员工排序
func (md *Model) Decode(values []bool) []Pair {
	var out []Pair
	for vi, on := range values {
		if !on {
			continue
		}
		v := md.Vars[vi]
		out = append(out, Pair{
			Var:      vi,
			Employee: md.Employees[v.Employee],
			Shift:    md.Shifts[v.Shift],
			Seed:     md.seedAssignments[vi],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Shift, out[j].Shift
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return out[i].Employee.ID.String() < out[j].Employee.ID.String()
	})
	return out
}
