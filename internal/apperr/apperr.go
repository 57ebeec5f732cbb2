package apperr

import (
	"errors"
	"fmt"
)

// 错误分类哨兵。handler 层通过 errors.Is 把它们映射到 HTTP 状态码，
// service / repository 层只负责构造带分类的错误，不关心状态码。
var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstream          = errors.New("upstream failure")

	// ErrVersionConflict 乐观锁版本冲突，service 层内部重试信号，
	// 重试耗尽后对外表现为 ErrConflict
	ErrVersionConflict = errors.New("version conflict")
)

// Error 带分类的业务错误。Error() 只返回给人看的消息，
// 分类通过 Unwrap 暴露给 errors.Is。
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }
func (e *Error) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) error {
	return newf(ErrValidation, format, args...)
}

func Unauthorizedf(format string, args ...interface{}) error {
	return newf(ErrUnauthorized, format, args...)
}

func Forbiddenf(format string, args ...interface{}) error {
	return newf(ErrForbidden, format, args...)
}

func NotFoundf(format string, args ...interface{}) error {
	return newf(ErrNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) error {
	return newf(ErrConflict, format, args...)
}

func InsufficientFundsf(format string, args ...interface{}) error {
	return newf(ErrInsufficientFunds, format, args...)
}

func Upstreamf(format string, args ...interface{}) error {
	return newf(ErrUpstream, format, args...)
}

// IsNotFound 常用判断的简写
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
