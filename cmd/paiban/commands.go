package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paiban/shiftcore/internal/constraints"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler"
	"github.com/paiban/shiftcore/pkg/validator"
)

func newGenerateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "从零生成排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, req, err := a.load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			result, err := scheduler.NewGenerator(a.schedulerOptions()...).Generate(ctx, req)
			a.flushMetrics()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newOptimizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "在尽量少改动的前提下优化现有排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, req, err := a.load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			result, err := scheduler.NewOptimizer(a.schedulerOptions()...).Optimize(ctx, p.Assignments, req)
			a.flushMetrics()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

// validateOutput validate 子命令的输出
type validateOutput struct {
	Valid     bool                      `json:"valid"`
	Conflicts []model.Conflict          `json:"conflicts"`
	Summary   []validator.CategoryCount `json:"summary"`
}

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "检查现有排班的硬约束冲突",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, req, err := a.load()
			if err != nil {
				return err
			}

			reporter := validator.NewReporter(req.Constraints)
			conflicts, err := reporter.Report(p.Assignments, p.Employees, p.Shifts, p.DateRange)
			if err != nil {
				return err
			}
			if a.registry != nil {
				for _, c := range conflicts {
					a.registry.RecordConflict(string(c.Category), string(c.Severity))
				}
			}
			a.flushMetrics()

			return writeJSON(cmd.OutOrStdout(), validateOutput{
				Valid:     len(conflicts) == 0,
				Conflicts: conflicts,
				Summary:   validator.Summarize(conflicts),
			})
		},
	}
}

func newConstraintsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "constraints",
		Short: "列出内置约束及其可调参数",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), constraints.LibraryResponse{Library: constraints.GetLibrary()})
		},
	}
}

// load 读取问题文件并生成请求
func (a *app) load() (*problemFile, scheduler.Request, error) {
	p, err := loadProblem(a.problemPath)
	if err != nil {
		return nil, scheduler.Request{}, err
	}
	req, err := p.request(a.cfg)
	if err != nil {
		return nil, scheduler.Request{}, err
	}
	return p, req, nil
}

func (a *app) schedulerOptions() []scheduler.Option {
	var opts []scheduler.Option
	if a.registry != nil {
		opts = append(opts, scheduler.WithRecorder(a.registry))
	}
	return opts
}

// signalContext 收到中断信号时取消求解，返回当前最优解
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
