package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paiban/shiftcore/internal/config"
	"github.com/paiban/shiftcore/internal/constraints"
	"github.com/paiban/shiftcore/pkg/model"
	"github.com/paiban/shiftcore/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftcore/pkg/scheduler/solver"
)

const problemYAML = `
date_range:
  start_date: 2026-01-12
  end_date: 2026-01-18
employees:
  - id: 6f1c1d4e-1111-4c7a-9a53-000000000001
    name: 张三
    active: true
    qualifications: [cook]
    max_hours_per_week: 40
    availability:
      - {weekday: 1, start: "00:00", end: "00:00"}
  - id: 6f1c1d4e-1111-4c7a-9a53-000000000002
    name: 李四
    active: true
    qualifications: [server]
    max_hours_per_week: 40
    availability:
      - {weekday: 1, start: "06:00", end: "22:00"}
shifts:
  - id: 7a2b3c4d-2222-4c7a-9a53-000000000001
    name: 后厨
    date: 2026-01-12
    start_time: "08:00"
    end_time: "16:00"
    headcount: 1
    required_qualifications: [cook]
  - id: 7a2b3c4d-2222-4c7a-9a53-000000000002
    name: 前厅
    date: 2026-01-12
    start_time: "08:00"
    end_time: "16:00"
    headcount: 1
    required_qualifications: [server]
constraints:
  fairness_weight: 10
options:
  max_time: 2s
`

func writeProblem(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入问题文件失败: %v", err)
	}
	return path
}

func TestParseProblem(t *testing.T) {
	p, err := parseProblem([]byte(problemYAML))
	if err != nil {
		t.Fatalf("parseProblem() error = %v", err)
	}
	if len(p.Employees) != 2 || len(p.Shifts) != 2 {
		t.Fatalf("employees=%d shifts=%d", len(p.Employees), len(p.Shifts))
	}
	if p.Shifts[0].Date != "2026-01-12" || p.Employees[0].Availability[0].Weekday != time.Monday {
		t.Errorf("解码结果不正确: %+v %+v", p.Shifts[0], p.Employees[0].Availability[0])
	}
	if p.Options == nil || p.Options.MaxTime != "2s" {
		t.Errorf("Options = %+v", p.Options)
	}

	t.Run("JSON 格式", func(t *testing.T) {
		data := `{"date_range": {"start_date": "2026-01-12", "end_date": "2026-01-18"}, ` +
			`"shifts": [{"id": "7a2b3c4d-2222-4c7a-9a53-000000000001", "date": "2026-01-12", ` +
			`"start_time": "08:00", "end_time": "16:00", "headcount": 2}]}`
		p, err := parseProblem([]byte(data))
		if err != nil {
			t.Fatalf("parseProblem() error = %v", err)
		}
		if len(p.Shifts) != 1 || p.Shifts[0].Headcount != 2 {
			t.Errorf("Shifts = %+v", p.Shifts)
		}
	})

	t.Run("未知字段", func(t *testing.T) {
		if _, err := parseProblem([]byte("unknown: 1\n")); err == nil {
			t.Error("未知字段应报错")
		}
	})
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()

	opts, err := optionsFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("optionsFromConfig() error = %v", err)
	}
	if opts.MaxTime != 30*time.Second || opts.OptimizationLevel != 2 || opts.CoverageMode != "" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Weights != solver.DefaultWeights() {
		t.Errorf("Weights = %+v, want %+v", opts.Weights, solver.DefaultWeights())
	}
	if opts.LocalSearch == nil || *opts.LocalSearch != solver.DefaultLocalSearchConfig() {
		t.Errorf("LocalSearch = %+v, want %+v", opts.LocalSearch, solver.DefaultLocalSearchConfig())
	}

	opts, err = optionsFromConfig(cfg, &optionsFile{OptimizationLevel: 1, MaxTime: "500ms", CoverageMode: "partial"})
	if err != nil {
		t.Fatalf("optionsFromConfig() error = %v", err)
	}
	if opts.OptimizationLevel != 1 || opts.MaxTime != 500*time.Millisecond || opts.CoverageMode != solver.CoveragePartial {
		t.Errorf("opts = %+v", opts)
	}

	if _, err := optionsFromConfig(cfg, &optionsFile{MaxTime: "soon"}); err == nil {
		t.Error("无效的 max_time 应报错")
	}
}

func TestConstraintOverrides(t *testing.T) {
	cfg := config.Default()
	out := constraintOverrides(cfg.Weights, map[string]interface{}{builtin.KeyFairnessWeight: 10})

	if out[builtin.KeyFairnessWeight] != 10 {
		t.Errorf("文件中的配置应优先, got %v", out[builtin.KeyFairnessWeight])
	}
	if out[builtin.KeyOvertimeWeight] != cfg.Weights.Overtime {
		t.Errorf("overtime_weight = %v", out[builtin.KeyOvertimeWeight])
	}
	if problems := builtin.ValidateOverrides(out); len(problems) != 0 {
		t.Errorf("ValidateOverrides() = %v", problems)
	}
}

func TestGenerateCommand(t *testing.T) {
	path := writeProblem(t, problemYAML)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate", "-f", path, "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var result model.SolveResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("输出不是合法 JSON: %v", err)
	}
	if result.Status != model.SolveOptimal || len(result.Assignments) != 2 {
		t.Errorf("status=%s assignments=%d", result.Status, len(result.Assignments))
	}
}

func TestValidateCommand(t *testing.T) {
	content := problemYAML + `assignments:
  - employee_id: 6f1c1d4e-1111-4c7a-9a53-000000000002
    shift_id: 7a2b3c4d-2222-4c7a-9a53-000000000001
    status: assigned
`
	path := writeProblem(t, content)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "-f", path, "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got validateOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("输出不是合法 JSON: %v", err)
	}
	if got.Valid || len(got.Conflicts) != 1 || got.Conflicts[0].Category != model.ConflictQualificationMismatch {
		t.Errorf("validate output = %+v", got)
	}
}

func TestConstraintsCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"constraints", "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got constraints.LibraryResponse
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("输出不是合法 JSON: %v", err)
	}
	if len(got.Library) != len(constraints.GetLibrary()) {
		t.Errorf("约束数 = %d", len(got.Library))
	}
}

func TestMissingProblemFile(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate", "--env-file", ""})
	if err := cmd.Execute(); err == nil {
		t.Error("缺少 -f 时应报错")
	}
}
