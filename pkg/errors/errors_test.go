package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"仅消息", New(CodeInternal, "失败"), "[INTERNAL_ERROR] 失败"},
		{"带详情", New(CodeTimeout, "超时").WithDetails("5s"), "[TIMEOUT] 超时: 5s"},
		{"带原因", Wrap(fmt.Errorf("boom"), CodeInternal, "求解失败"), "[INTERNAL_ERROR] 求解失败: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAndGetCode(t *testing.T) {
	cause := fmt.Errorf("底层错误")
	err := fmt.Errorf("外层: %w", Wrap(cause, CodeValidationFail, "验证失败"))

	if !Is(err, CodeValidationFail) {
		t.Error("Is() 应能穿透 %w 包装")
	}
	if Is(err, CodeInternal) {
		t.Error("Is() 不应匹配其他错误码")
	}
	if GetCode(err) != CodeValidationFail {
		t.Errorf("GetCode() = %s", GetCode(err))
	}
	if GetCode(cause) != CodeUnknown {
		t.Errorf("GetCode(普通错误) = %s, want UNKNOWN", GetCode(cause))
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap 应返回原因")
	}
}

func TestInvariantViolation(t *testing.T) {
	err := InvariantViolation("员工重复排班").WithField("conflicts", 2)
	if err.Code != CodeInvariantViolation || err.Details != "员工重复排班" {
		t.Errorf("err = %+v", err)
	}
	if err.Fields["conflicts"] != 2 {
		t.Errorf("Fields = %v", err.Fields)
	}
}

func TestValidationErrors_ToAppError(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Error("空集合不应有错误")
	}
	ve.Add("shifts[1].date", "日期无效")
	ve.Add("employees[0].id", "不能为空")
	ve.Add("shifts[1].date", "不在范围内")

	err := ve.ToAppError()
	if err.Code != CodeValidationFail {
		t.Errorf("Code = %s", err.Code)
	}
	if len(err.Fields) != 2 {
		t.Errorf("Fields = %v, want 2 keys", err.Fields)
	}
	if err.Fields["shifts[1].date"] != "日期无效; 不在范围内" {
		t.Errorf("同一字段应合并, got %v", err.Fields["shifts[1].date"])
	}
	want := "employees[0].id: 不能为空; shifts[1].date: 不在范围内; shifts[1].date: 日期无效"
	if err.Details != want {
		t.Errorf("Details = %q, want %q", err.Details, want)
	}
}
