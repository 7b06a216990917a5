package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paiban/shiftcore/internal/config"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftcore/pkg/scheduler/solver"
)

// problemFile 排班问题文件
// JSON 是 YAML 的子集，两种格式共用同一个解码器
type problemFile struct {
	DateRange   model.DateRange        `yaml:"date_range"`
	Employees   []*model.Employee      `yaml:"employees"`
	Shifts      []*model.Shift         `yaml:"shifts"`
	Assignments []*model.Assignment    `yaml:"assignments"`
	Constraints map[string]interface{} `yaml:"constraints"`
	Options     *optionsFile           `yaml:"options"`
}

// optionsFile 文件中可覆盖的求解选项，未填写的项使用配置
type optionsFile struct {
	OptimizationLevel int    `yaml:"optimization_level"`
	MaxTime           string `yaml:"max_time"`
	MaxWorkers        int    `yaml:"max_workers"`
	MaxNodes          int64  `yaml:"max_nodes"`
	CoverageMode      string `yaml:"coverage_mode"`
}

func loadProblem(path string) (*problemFile, error) {
	if path == "" {
		return nil, fmt.Errorf("必须通过 -f 指定排班问题文件")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return parseProblem(data)
}

func parseProblem(data []byte) (*problemFile, error) {
	var p problemFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("解析排班问题失败: %w", err)
	}
	return &p, nil
}

// request 合并配置与文件内容，生成排班请求
func (p *problemFile) request(cfg *config.Config) (scheduler.Request, error) {
	opts, err := optionsFromConfig(cfg, p.Options)
	if err != nil {
		return scheduler.Request{}, err
	}
	return scheduler.Request{
		Employees:   p.Employees,
		Shifts:      p.Shifts,
		Constraints: constraintOverrides(cfg.Weights, p.Constraints),
		DateRange:   p.DateRange,
		Options:     opts,
	}, nil
}

// optionsFromConfig 配置为默认值，文件中的选项优先
func optionsFromConfig(cfg *config.Config, override *optionsFile) (scheduler.Options, error) {
	s := cfg.Scheduler
	opts := scheduler.Options{
		OptimizationLevel: s.OptimizationLevel,
		MaxTime:           s.DefaultTimeout,
		MaxWorkers:        s.MaxWorkers,
		MaxNodes:          int64(s.MaxIterations),
		CoverageMode:      solver.CoverageMode(s.CoverageMode),
		Weights: solver.Weights{
			Coverage:   int64(cfg.Weights.Coverage),
			Disruption: int64(cfg.Weights.Disruption),
		},
		LocalSearch: &solver.LocalSearchConfig{
			InitialTemp:      s.LocalSearch.InitialTemp,
			CoolingRate:      s.LocalSearch.CoolingRate,
			MinTemp:          s.LocalSearch.MinTemp,
			TabuSize:         s.LocalSearch.TabuSize,
			PlateauThreshold: s.LocalSearch.PlateauThreshold,
		},
	}
	if override == nil {
		return opts, nil
	}

	if override.OptimizationLevel != 0 {
		opts.OptimizationLevel = override.OptimizationLevel
	}
	if override.MaxTime != "" {
		d, err := time.ParseDuration(override.MaxTime)
		if err != nil {
			return opts, fmt.Errorf("options.max_time: %w", err)
		}
		opts.MaxTime = d
	}
	if override.MaxWorkers != 0 {
		opts.MaxWorkers = override.MaxWorkers
	}
	if override.MaxNodes != 0 {
		opts.MaxNodes = override.MaxNodes
	}
	if override.CoverageMode != "" {
		opts.CoverageMode = solver.CoverageMode(override.CoverageMode)
	}
	return opts, nil
}

// constraintOverrides 把配置中的软约束权重写入约束覆盖，文件中已有的键不覆盖
func constraintOverrides(w config.WeightsConfig, fromFile map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		builtin.KeyFairnessWeight:       w.Fairness,
		builtin.KeyOvertimeWeight:       w.Overtime,
		builtin.KeyPreferenceWeight:     w.Preference,
		builtin.KeyStandardHoursPerWeek: w.StandardHoursPerWeek,
	}
	for k, v := range fromFile {
		out[k] = v
	}
	return out
}
