// Package config 提供配置管理
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Weights   WeightsConfig   `mapstructure:"weights"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json/console
	Output string `mapstructure:"output"` // stdout/stderr/file
	File   string `mapstructure:"file"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	DefaultTimeout    time.Duration     `mapstructure:"default_timeout"`    // 单次求解时间上限
	MaxIterations     int               `mapstructure:"max_iterations"`     // 分支定界节点上限，0 表示不限
	OptimizationLevel int               `mapstructure:"optimization_level"` // 1=快速, 2=平衡, 3=最优
	MaxWorkers        int               `mapstructure:"max_workers"`        // 0 表示使用 GOMAXPROCS
	CoverageMode      string            `mapstructure:"coverage_mode"`      // strict/partial，为空时生成用 strict，优化用 partial
	LocalSearch       LocalSearchConfig `mapstructure:"local_search"`
}

// LocalSearchConfig 局部搜索协程参数
type LocalSearchConfig struct {
	InitialTemp      float64 `mapstructure:"initial_temp"`
	CoolingRate      float64 `mapstructure:"cooling_rate"`
	MinTemp          float64 `mapstructure:"min_temp"`
	TabuSize         int     `mapstructure:"tabu_size"`
	PlateauThreshold int     `mapstructure:"plateau_threshold"`
}

// WeightsConfig 目标函数权重
type WeightsConfig struct {
	Coverage             int `mapstructure:"coverage"`
	Fairness             int `mapstructure:"fairness"`
	Overtime             int `mapstructure:"overtime"`
	Preference           int `mapstructure:"preference"`
	Disruption           int `mapstructure:"disruption"`
	StandardHoursPerWeek int `mapstructure:"standard_hours_per_week"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PAIBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回仅含默认值的配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// 默认值均为合法类型，解码不会失败
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "paiban")
	v.SetDefault("app.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("scheduler.default_timeout", "30s")
	v.SetDefault("scheduler.max_iterations", 0)
	v.SetDefault("scheduler.optimization_level", 2)
	v.SetDefault("scheduler.max_workers", 0)
	v.SetDefault("scheduler.coverage_mode", "")
	v.SetDefault("scheduler.local_search.initial_temp", 6000)
	v.SetDefault("scheduler.local_search.cooling_rate", 0.995)
	v.SetDefault("scheduler.local_search.min_temp", 1)
	v.SetDefault("scheduler.local_search.tabu_size", 50)
	v.SetDefault("scheduler.local_search.plateau_threshold", 2000)

	v.SetDefault("weights.coverage", 100000)
	v.SetDefault("weights.fairness", 60)
	v.SetDefault("weights.overtime", 70)
	v.SetDefault("weights.preference", 50)
	v.SetDefault("weights.disruption", 2000)
	v.SetDefault("weights.standard_hours_per_week", 40)

	v.SetDefault("metrics.enabled", false)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	s := c.Scheduler
	if s.DefaultTimeout <= 0 {
		return fmt.Errorf("配置校验失败: scheduler.default_timeout 必须为正")
	}
	if s.OptimizationLevel < 1 || s.OptimizationLevel > 3 {
		return fmt.Errorf("配置校验失败: scheduler.optimization_level 必须在 1-3 之间")
	}
	if s.MaxIterations < 0 || s.MaxWorkers < 0 {
		return fmt.Errorf("配置校验失败: scheduler.max_iterations 与 scheduler.max_workers 不能为负")
	}
	switch s.CoverageMode {
	case "", "strict", "partial":
	default:
		return fmt.Errorf("配置校验失败: scheduler.coverage_mode 必须为 strict 或 partial")
	}
	ls := s.LocalSearch
	if ls.CoolingRate <= 0 || ls.CoolingRate >= 1 {
		return fmt.Errorf("配置校验失败: scheduler.local_search.cooling_rate 必须在 0-1 之间")
	}
	if ls.InitialTemp <= 0 || ls.MinTemp <= 0 || ls.MinTemp > ls.InitialTemp {
		return fmt.Errorf("配置校验失败: scheduler.local_search 温度必须为正且 min_temp 不大于 initial_temp")
	}
	if ls.TabuSize <= 0 || ls.PlateauThreshold <= 0 {
		return fmt.Errorf("配置校验失败: scheduler.local_search.tabu_size 与 plateau_threshold 必须为正")
	}
	w := c.Weights
	if w.Coverage <= 0 {
		return fmt.Errorf("配置校验失败: weights.coverage 必须为正")
	}
	if w.Fairness < 0 || w.Overtime < 0 || w.Preference < 0 || w.Disruption < 0 {
		return fmt.Errorf("配置校验失败: 软约束权重不能为负")
	}
	if w.StandardHoursPerWeek <= 0 || w.StandardHoursPerWeek > 168 {
		return fmt.Errorf("配置校验失败: weights.standard_hours_per_week 必须在 1-168 之间")
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
