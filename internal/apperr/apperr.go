package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 划分核心层错误的语义类别，出口层据此映射 HTTP 状态码。
// Conflict 是唯一“重试可能成功”的类别。
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindBusinessRule
	KindConflict
	KindValidation
)

// Error 是核心层统一的带类别错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound 资源不存在。
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden 已认证但无权访问该资源。
// 注意：归属不匹配返回 Forbidden 而不是 NotFound，不用存在性泄露换安全。
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// BusinessRule 请求合法但违反领域规则（非法流转、库存不足等），重试同一请求无意义。
func BusinessRule(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Conflict 并发写竞争失败，可重试。
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Validation 请求形状不合法。
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf 取错误类别；非 apperr 错误返回 0。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// HTTPStatus 将错误类别映射为 HTTP 状态码，未知错误一律 500。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBusinessRule:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
