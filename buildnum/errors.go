package buildnum

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode 错误码定义
type ErrorCode string

const (
	// ErrCodeConfiguration 缺少必需的输入
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeTransport 访问 Ref Store 时网络或连接失败
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeUnexpectedStatus Ref Store 返回了该调用不接受的状态码
	ErrCodeUnexpectedStatus ErrorCode = "UNEXPECTED_STATUS"
	// ErrCodeInvariantViolation 旧标记数量超过上限，需要人工处理
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ErrCodeRecord 构建号已声明，但写出流水线输出或本地文件失败
	ErrCodeRecord ErrorCode = "RECORD_ERROR"
)

// Error 分配器错误类型，所有致命错误都以该类型返回
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Status Ref Store 返回的状态码，仅 UNEXPECTED_STATUS 时有值
	Status int `json:"status,omitempty"`
	// Payload Ref Store 返回的响应体
	Payload []byte `json:"payload,omitempty"`
	Cause   error  `json:"cause,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Status != 0 {
		fmt.Fprintf(&b, ", status: %d", e.Status)
	}
	if len(e.Payload) > 0 {
		fmt.Fprintf(&b, ", error: %s", strings.TrimSpace(string(e.Payload)))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError 创建分配器错误
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func newStatusError(message string, status int, payload []byte) *Error {
	return &Error{
		Code:    ErrCodeUnexpectedStatus,
		Message: message,
		Status:  status,
		Payload: payload,
	}
}

// IsCode 判断 err 链中是否存在指定错误码的 *Error
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Warning 描述一次失败的旧标记删除，不影响分配结果
type Warning struct {
	Ref     string
	Status  int
	Payload []byte
	Cause   error
}

// Error 实现 error 接口
func (w *Warning) Error() string {
	if w.Cause != nil {
		return fmt.Sprintf("failed to delete ref %s: %v", w.Ref, w.Cause)
	}
	return fmt.Sprintf("failed to delete ref %s, status: %d, error: %s", w.Ref, w.Status, strings.TrimSpace(string(w.Payload)))
}

// Unwrap 返回底层传输错误
func (w *Warning) Unwrap() error {
	return w.Cause
}
