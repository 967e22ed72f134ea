package errors

import (
	"errors"
	"net/http"
)

// Kind 业务错误分类，决定对外暴露的 HTTP 状态码
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindConflict
	KindForbidden
	KindUnauthorized
	KindUpstream
	KindUpstreamGateway
	KindReconcile // 补偿失败，需人工对账
)

// StatusCode 返回错误分类对应的 HTTP 状态码
func (k Kind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError 带分类的业务错误：对外只暴露 Message 与状态码
type AppError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As 穿透到底层错误
func (e *AppError) Unwrap() error { return e.cause }

// StatusCode HTTP 状态码
func (e *AppError) StatusCode() int { return e.Kind.StatusCode() }

// Wrap 基于当前错误附加底层原因，返回新的实例（分类与提示语不变）
func (e *AppError) Wrap(cause error) *AppError {
	return &AppError{Kind: e.Kind, Message: e.Message, cause: cause}
}

// Is 同分类同提示语视为同一错误，使 Wrap 之后仍能匹配哨兵错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// ── 构造函数 ──

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func NotFound(message string) *AppError     { return New(KindNotFound, message) }
func InvalidState(message string) *AppError { return New(KindInvalidState, message) }
func Conflict(message string) *AppError     { return New(KindConflict, message) }
func Forbidden(message string) *AppError    { return New(KindForbidden, message) }
func Unauthorized(message string) *AppError { return New(KindUnauthorized, message) }
func Upstream(message string) *AppError     { return New(KindUpstream, message) }
func Gateway(message string) *AppError      { return New(KindUpstreamGateway, message) }
func Reconcile(message string) *AppError    { return New(KindReconcile, message) }

// As 从错误链中提取 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf 返回错误链中的业务分类；非业务错误视为 KindInternal
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
