package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 输入错误：同步拒绝，不重试
	ErrCodeEmptyDocument     ErrorCode = "EMPTY_DOCUMENT"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeInvalidAccessSpec ErrorCode = "INVALID_ACCESS_SPEC"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"

	// 上游服务错误
	ErrCodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	ErrCodeCompletionFailed ErrorCode = "COMPLETION_FAILED"
	ErrCodeVectorStore      ErrorCode = "VECTOR_STORE_ERROR"

	// 业务逻辑错误
	ErrCodeNoCollections ErrorCode = "NO_COLLECTIONS"
	ErrCodeAccessDenied  ErrorCode = "ACCESS_DENIED"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewInputError 创建输入错误（空文档、格式不支持、访问配置非法）
func NewInputError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewUpstreamError 创建上游服务错误（embedding/completion/向量库）
func NewUpstreamError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
	}
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusNotFound,
	}
}

// NewAccessDeniedError 创建访问拒绝错误，与"未找到"严格区分
func NewAccessDeniedError(message string) *AppError {
	if message == "" {
		message = "Access denied"
	}
	return &AppError{
		Code:     ErrCodeAccessDenied,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusForbidden,
	}
}

// NewNoCollectionsError 向量库中不存在任何集合
func NewNoCollectionsError() *AppError {
	return &AppError{
		Code:     ErrCodeNoCollections,
		Message:  "no collections exist in the vector store",
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusNotFound,
	}
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}
