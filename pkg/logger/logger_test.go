package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSchedulerLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSchedulerLoggerWith(zerolog.New(&buf).Level(zerolog.DebugLevel)).With("run1", "generate")

	l.StartSchedule(3, 2, 7)
	l.IncumbentFound("greedy", 1200)
	l.ScheduleComplete("optimal", 15*time.Millisecond, 100, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3\n%s", len(lines), buf.String())
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["component"] != "scheduler" || first["run_id"] != "run1" || first["op"] != "generate" {
		t.Errorf("上下文字段缺失: %v", first)
	}
	if first["employees"] != float64(3) {
		t.Errorf("employees = %v", first["employees"])
	}
	if !strings.Contains(lines[1], `"worker":"greedy"`) {
		t.Errorf("IncumbentFound 输出 = %s", lines[1])
	}
	if !strings.Contains(lines[2], `"status":"optimal"`) {
		t.Errorf("ScheduleComplete 输出 = %s", lines[2])
	}
}

func TestSchedulerLogger_ConstraintsRegistered(t *testing.T) {
	var buf bytes.Buffer
	l := NewSchedulerLoggerWith(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.ConstraintsRegistered(map[string]interface{}{"total": 8, "hard": 5, "soft": 3})

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["total"] != float64(8) || got["hard"] != float64(5) || got["soft"] != float64(3) {
		t.Errorf("约束数量字段 = %v", got)
	}
}
