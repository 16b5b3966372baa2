// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 输入校验相关
	CodeInvalidMonth           Code = "INVALID_MONTH"
	CodeUnsupportedMonthLength Code = "UNSUPPORTED_MONTH_LENGTH"
	CodeEmptyEmployeeSet       Code = "EMPTY_EMPLOYEE_SET"
	CodeConflictingOverride    Code = "CONFLICTING_OVERRIDE"

	// 求解相关
	CodeInfeasible         Code = "INFEASIBLE"
	CodeTimedOut           Code = "TIMED_OUT"
	CodeNoFeasibleSchedule Code = "NO_FEASIBLE_SCHEDULE"
	CodeSolverUnavailable  Code = "SOLVER_UNAVAILABLE"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeInvalidMonth,
		CodeUnsupportedMonthLength, CodeEmptyEmployeeSet, CodeConflictingOverride:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout, CodeTimedOut:
		return http.StatusGatewayTimeout
	case CodeInfeasible, CodeNoFeasibleSchedule:
		return http.StatusUnprocessableEntity
	case CodeSolverUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrNotFound     = New(CodeNotFound, "资源不存在")
	ErrInvalidInput = New(CodeInvalidInput, "输入参数无效")
	ErrInternal     = New(CodeInternal, "内部错误")
	ErrTimeout      = New(CodeTimeout, "操作超时")
)

// InvalidMonth 创建无效月份错误
func InvalidMonth(year, month int) *AppError {
	return New(CodeInvalidMonth, fmt.Sprintf("无效月份: %d-%02d", year, month))
}

// UnsupportedMonthLength 创建不支持的月长度错误
func UnsupportedMonthLength(days int) *AppError {
	return New(CodeUnsupportedMonthLength, fmt.Sprintf("不支持的月长度: %d 天", days))
}

// EmptyEmployeeSet 创建无在职员工错误
func EmptyEmployeeSet(monthKey string) *AppError {
	return New(CodeEmptyEmployeeSet, fmt.Sprintf("%s 月无在职员工可排班", monthKey))
}

// ConflictingOverride 创建手工指定冲突错误
func ConflictingOverride(empID, slot, reason string) *AppError {
	return New(CodeConflictingOverride,
		fmt.Sprintf("员工 %s 在 %s 的手工指定存在冲突: %s", empID, slot, reason))
}

// Infeasible 创建硬约束无解错误
func Infeasible(hint string) *AppError {
	return New(CodeInfeasible, fmt.Sprintf("硬约束无可行解: %s", hint))
}

// TimedOut 创建求解超时错误
func TimedOut(budget time.Duration) *AppError {
	return New(CodeTimedOut, fmt.Sprintf("求解超时（时间预算 %s 内未找到可行解）", budget))
}

// NoFeasibleSchedule 创建回溯无可行排班错误
func NoFeasibleSchedule(reason string) *AppError {
	return New(CodeNoFeasibleSchedule, fmt.Sprintf("回溯搜索无可行排班: %s", reason))
}

// SolverUnavailable 创建求解器不可用错误
func SolverUnavailable(name string) *AppError {
	return New(CodeSolverUnavailable, fmt.Sprintf("求解器 %s 不可用", name))
}
