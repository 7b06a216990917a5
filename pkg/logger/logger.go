// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level" mapstructure:"level"`
	Format     string `yaml:"format" json:"format" mapstructure:"format"` // json/console
	Output     string `yaml:"output" json:"output" mapstructure:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty" mapstructure:"file_path"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty" mapstructure:"time_format"`
}

// DefaultConfig 返回默认配置
// 标准输出留给排班结果，日志默认写 stderr
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，仅首次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "file":
			output = os.Stderr
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stderr
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器，未初始化时使用默认配置
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	return &SchedulerLogger{base: Get().With().Str("component", "scheduler").Logger()}
}

// NewSchedulerLoggerWith 使用指定日志器创建，便于测试捕获输出
func NewSchedulerLoggerWith(base zerolog.Logger) *SchedulerLogger {
	return &SchedulerLogger{base: base.With().Str("component", "scheduler").Logger()}
}

// With 返回附加了运行标识的日志器
func (l *SchedulerLogger) With(runID, operation string) *SchedulerLogger {
	return &SchedulerLogger{base: l.base.With().Str("run_id", runID).Str("op", operation).Logger()}
}

// StartSchedule 记录排班开始
func (l *SchedulerLogger) StartSchedule(employees, shifts, days int) {
	l.base.Info().
		Int("employees", employees).
		Int("shifts", shifts).
		Int("days", days).
		Msg("开始生成排班")
}

// StateChange 记录求解状态迁移
func (l *SchedulerLogger) StateChange(from, to string) {
	l.base.Debug().
		Str("from", from).
		Str("to", to).
		Msg("状态迁移")
}

// ConstraintsRegistered 记录本次求解注册的约束数量
func (l *SchedulerLogger) ConstraintsRegistered(summary map[string]interface{}) {
	l.base.Debug().
		Fields(summary).
		Msg("约束注册完成")
}

// ModelBuilt 记录模型规模与预算
func (l *SchedulerLogger) ModelBuilt(variables, exclusions int, limit time.Duration, workers int) {
	l.base.Debug().
		Int("variables", variables).
		Int("exclusions", exclusions).
		Dur("time_limit", limit).
		Int("workers", workers).
		Msg("模型构建完成")
}

// IncumbentFound 记录找到更优解
func (l *SchedulerLogger) IncumbentFound(worker string, objective int64) {
	l.base.Debug().
		Str("worker", worker).
		Int64("objective", objective).
		Msg("更新当前最优解")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// ScheduleComplete 记录排班完成
func (l *SchedulerLogger) ScheduleComplete(status string, duration time.Duration, coverage float64, assignments int) {
	l.base.Info().
		Str("status", status).
		Dur("duration", duration).
		Float64("coverage", coverage).
		Int("assignments", assignments).
		Msg("排班生成完成")
}
