package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// 报警链路的错误码
// 提交流程只把 CodeValidation / CodeAuth 抛给调用方，
// 传输类错误一律被离线兜底吸收（见 service 层）
const (
	CodeUnknown    = 0
	CodeValidation = 1001 // 位置缺失等入参问题
	CodeAuth       = 1002 // 缺少用户ID
	CodeTransport  = 2001 // 超时、连接失败、5xx
	CodeRejected   = 2002 // 服务端 4xx 明确拒绝
	CodeStorage    = 3001 // 本地队列读写失败
	CodeSync       = 3002 // 批量同步失败
	CodeChannel    = 4001 // 实时通道连接失败
	CodeBadPayload = 4002 // 响应结构不符合预期
)

// Error represents a custom error with stack trace
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // 原始错误，不序列化
	Stack   string `json:"stack,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// WrapCode wraps an error with code and message
func WrapCode(code int, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// Wrap wraps an error with message
func Wrap(err error, message string) *Error {
	return WrapCode(CodeUnknown, err, message)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Stack:   captureStack(),
	}
}

// New creates a new error
func New(message string) *Error {
	return &Error{
		Message: message,
		Stack:   captureStack(),
	}
}

// Errorf creates a new formatted error
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// GetCode returns the error code
func GetCode(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// IsValidation 入参校验错误
func IsValidation(err error) bool { return GetCode(err) == CodeValidation }

// IsAuth 用户身份缺失
func IsAuth(err error) bool { return GetCode(err) == CodeAuth }

// IsTransport 可离线兜底的传输类错误
func IsTransport(err error) bool { return GetCode(err) == CodeTransport }

// IsRejected 服务端明确拒绝（4xx），不进入离线队列
func IsRejected(err error) bool { return GetCode(err) == CodeRejected }

// GetStack returns the error stack trace
func GetStack(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Stack
	}
	return ""
}

// Cause returns the underlying error
func Cause(err error) error {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Err != nil {
			err = e.Err
		} else {
			return err
		}
	}
	return err
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// 移除顶部几行（通常是 captureStack 和 Error 相关的调用）
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}

	return strings.TrimSpace(stack)
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
