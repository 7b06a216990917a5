package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftcore/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator 返回注册了 clock 规则的校验器，字段名使用 json 标签
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := ParseClock(fl.Field().String())
			return err == nil
		})
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Problem 一次排班调用的全部输入
type Problem struct {
	Employees   []*Employee
	Shifts      []*Shift
	Assignments []*Assignment
	DateRange   DateRange
}

// ValidateProblem 在建模之前校验输入
// 返回 CodeValidationFail 的 AppError，Fields 中列出全部问题
func ValidateProblem(p Problem) error {
	ve := &apperrors.ValidationErrors{}

	if _, _, err := p.DateRange.Bounds(); err != nil {
		ve.Add("date_range", err.Error())
	}

	shortest := 0
	shiftIDs := make(map[uuid.UUID]bool, len(p.Shifts))
	for i, s := range p.Shifts {
		field := fmt.Sprintf("shifts[%d]", i)
		if s == nil {
			ve.Add(field, "不能为空")
			continue
		}
		if !addStructErrors(ve, field, s) {
			if !p.DateRange.Contains(s.Date) {
				ve.Add(field+".date", fmt.Sprintf("日期 %s 不在排班范围 %s 至 %s 内", s.Date, p.DateRange.StartDate, p.DateRange.EndDate))
			}
			if d := s.DurationMinutes(); shortest == 0 || d < shortest {
				shortest = d
			}
		}
		if shiftIDs[s.ID] {
			ve.Add(field+".id", fmt.Sprintf("班次 ID %s 重复", s.ID))
		}
		shiftIDs[s.ID] = true
	}

	empIDs := make(map[uuid.UUID]bool, len(p.Employees))
	for i, e := range p.Employees {
		field := fmt.Sprintf("employees[%d]", i)
		if e == nil {
			ve.Add(field, "不能为空")
			continue
		}
		addStructErrors(ve, field, e)
		if limit := e.MaxMinutesPerWeek(); limit > 0 && limit < shortest {
			ve.Add(field+".max_hours_per_week", fmt.Sprintf("每周上限 %d 小时短于最短班次", e.MaxHoursPerWeek))
		}
		if empIDs[e.ID] {
			ve.Add(field+".id", fmt.Sprintf("员工 ID %s 重复", e.ID))
		}
		empIDs[e.ID] = true
	}

	assignmentIDs := make(map[uuid.UUID]bool, len(p.Assignments))
	for i, a := range p.Assignments {
		field := fmt.Sprintf("assignments[%d]", i)
		if a == nil {
			ve.Add(field, "不能为空")
			continue
		}
		addStructErrors(ve, field, a)
		if a.EmployeeID != uuid.Nil && !empIDs[a.EmployeeID] {
			ve.Add(field+".employee_id", fmt.Sprintf("引用了不存在的员工 %s", a.EmployeeID))
		}
		if a.ShiftID != uuid.Nil && !shiftIDs[a.ShiftID] {
			ve.Add(field+".shift_id", fmt.Sprintf("引用了不存在的班次 %s", a.ShiftID))
		}
		if a.ID != uuid.Nil {
			if assignmentIDs[a.ID] {
				ve.Add(field+".id", fmt.Sprintf("分配 ID %s 重复", a.ID))
			}
			assignmentIDs[a.ID] = true
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// addStructErrors 按结构体标签校验，返回是否有错误
func addStructErrors(ve *apperrors.ValidationErrors, prefix string, v interface{}) bool {
	err := structValidator().Struct(v)
	if err == nil {
		return false
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.Add(prefix, err.Error())
		return true
	}
	for _, fe := range fieldErrs {
		// Namespace 形如 Employee.availability[0].start，去掉类型名
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		ve.Add(prefix+"."+path, ruleMessage(fe))
	}
	return true
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "gte":
		return "不能小于 " + fe.Param()
	case "lte":
		return "不能大于 " + fe.Param()
	case "clock":
		return fmt.Sprintf("无效的时刻 %q，应为 HH:MM", fe.Value())
	case "datetime":
		return fmt.Sprintf("无效的日期 %q，应为 YYYY-MM-DD", fe.Value())
	case "oneof":
		return "必须是以下之一: " + fe.Param()
	}
	return "不满足规则 " + fe.Tag()
}
