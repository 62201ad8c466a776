package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误码
type ErrorCode string

const (
	ErrCodeSchemaInconsistency ErrorCode = "SCHEMA_INCONSISTENCY"
	ErrCodeNotInitialized      ErrorCode = "STATS_NOT_INITIALIZED"
	ErrCodeDependencyOrder     ErrorCode = "DEPENDENCY_ORDER"
	ErrCodeInvalidPlan         ErrorCode = "INVALID_PLAN"
	ErrCodeSourceLoad          ErrorCode = "SOURCE_LOAD"
)

// Error 优化器错误（带堆栈）
// 所有错误都是确定性的，不可重试
type Error struct {
	Code    ErrorCode
	Message string
	Stack   []string
	Cause   error
}

// Error 接口实现
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace 返回调用堆栈
func (e *Error) StackTrace() []string {
	return e.Stack
}

// NewError 创建错误
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   cause,
	}
}

// WrapError 包装错误，已是 *Error 时保留原有堆栈
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	var optErr *Error
	if errors.As(err, &optErr) {
		return &Error{
			Code:    code,
			Message: message,
			Stack:   optErr.Stack,
			Cause:   err,
		}
	}

	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   err,
	}
}

// SchemaInconsistency 边类型引用了不存在的点类型，或过滤条件引用了未知边类型
func SchemaInconsistency(format string, args ...interface{}) *Error {
	return NewError(ErrCodeSchemaInconsistency, fmt.Sprintf(format, args...), nil)
}

// NotInitialized 统计信息在 Initialize 之前被访问
func NotInitialized(what string) *Error {
	return NewError(ErrCodeNotInitialized, what+" queried before initialize", nil)
}

// DependencyOrderViolation 顶点在其输入估算完成前被估算，属于计划构造的程序错误
func DependencyOrderViolation(format string, args ...interface{}) *Error {
	return NewError(ErrCodeDependencyOrder, fmt.Sprintf(format, args...), nil)
}

// InvalidPlan 计划图结构错误
func InvalidPlan(format string, args ...interface{}) *Error {
	return NewError(ErrCodeInvalidPlan, fmt.Sprintf(format, args...), nil)
}

// SourceLoad 统计信息来源读取失败
func SourceLoad(cause error, format string, args ...interface{}) *Error {
	return NewError(ErrCodeSourceLoad, fmt.Sprintf(format, args...), cause)
}

// captureStackTrace 捕获调用堆栈
func captureStackTrace() []string {
	pc := make([]uintptr, 32)
	n := runtime.Callers(3, pc) // 跳过 Callers、captureStackTrace 和构造函数

	if n == 0 {
		return []string{}
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()

		fn := frame.Function
		file := frame.File
		if idx := strings.LastIndex(file, "/"); idx != -1 {
			file = file[idx+1:]
		}
		if idx := strings.LastIndex(fn, "/"); idx != -1 {
			fn = fn[idx+1:]
		}
		stack = append(stack, fmt.Sprintf("  at %s (%s:%d)", fn, file, frame.Line))

		if !more {
			break
		}
	}

	return stack
}

// IsErrorCode 检查错误链中是否存在指定错误码
func IsErrorCode(err error, code ErrorCode) bool {
	var optErr *Error
	for err != nil {
		if !errors.As(err, &optErr) {
			return false
		}
		if optErr.Code == code {
			return true
		}
		err = optErr.Cause
	}
	return false
}

// GetErrorCode 获取最外层错误码
func GetErrorCode(err error) ErrorCode {
	var optErr *Error
	if errors.As(err, &optErr) {
		return optErr.Code
	}
	return ""
}

func IsSchemaInconsistency(err error) bool { return IsErrorCode(err, ErrCodeSchemaInconsistency) }
func IsNotInitialized(err error) bool      { return IsErrorCode(err, ErrCodeNotInitialized) }
func IsDependencyOrder(err error) bool     { return IsErrorCode(err, ErrCodeDependencyOrder) }
func IsInvalidPlan(err error) bool         { return IsErrorCode(err, ErrCodeInvalidPlan) }
func IsSourceLoad(err error) bool          { return IsErrorCode(err, ErrCodeSourceLoad) }
