// PaiBan 排班引擎命令行
// 从文件读取排班问题，生成、优化或校验排班，结果以 JSON 写到标准输出

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paiban/shiftcore/internal/config"
	"github.com/paiban/shiftcore/internal/metrics"
	"github.com/paiban/shiftcore/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// app 命令共享的运行环境
type app struct {
	configPath  string
	envFile     string
	problemPath string
	showMetrics bool

	cfg      *config.Config
	registry *metrics.Registry
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "paiban",
		Short:         "PaiBan 排班引擎",
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bootstrap()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml 与 ./config.yaml）")
	flags.StringVar(&a.envFile, "env-file", ".env", "环境变量文件，不存在时忽略")
	flags.StringVarP(&a.problemPath, "file", "f", "", "排班问题文件（YAML 或 JSON）")
	flags.BoolVar(&a.showMetrics, "metrics", false, "结束后向标准错误输出求解指标")

	root.AddCommand(
		newGenerateCommand(a),
		newOptimizeCommand(a),
		newValidateCommand(a),
		newConstraintsCommand(),
	)
	return root
}

// bootstrap 加载 .env、配置与日志
func (a *app) bootstrap() error {
	if a.envFile != "" {
		if _, err := os.Stat(a.envFile); err == nil {
			if err := godotenv.Load(a.envFile); err != nil {
				return fmt.Errorf("加载 %s 失败: %w", a.envFile, err)
			}
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.Init(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.File,
	})
	logger.Debug().
		Str("version", Version).
		Str("env", cfg.App.Env).
		Msg("配置加载完成")
	if cfg.IsDevelopment() {
		logger.Debug().Interface("scheduler", cfg.Scheduler).Msg("排班引擎配置")
	}

	if a.showMetrics || cfg.Metrics.Enabled {
		a.registry = metrics.NewRegistry()
	}
	return nil
}

// flushMetrics 输出本次运行的指标
func (a *app) flushMetrics() {
	if a.registry == nil {
		return
	}
	if _, err := a.registry.WriteTo(os.Stderr); err != nil {
		logger.WithError(err).Msg("输出指标失败")
	}
}
