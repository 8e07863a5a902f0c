package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind 错误类别，对外以 Code 字段返回
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation_error"
	KindShopNotFound    Kind = "shop_not_found"
	KindFeedUnavailable Kind = "feed_unavailable"
	KindFeedParse       Kind = "feed_parse_error"
	KindConflict        Kind = "conflict"
	KindRateLimited     Kind = "rate_limited"
	KindInternal        Kind = "internal"
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类别即视为相等，便于 errors.Is(err, apperr.ErrForbidden)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// 哨兵错误，只用于 errors.Is 判断类别
var (
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrShopNotFound    = &Error{Kind: KindShopNotFound}
	ErrFeedUnavailable = &Error{Kind: KindFeedUnavailable}
	ErrFeedParse       = &Error{Kind: KindFeedParse}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

func Validationf(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// KindOf 取错误类别，非业务错误一律视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FromDB 把 gorm 错误翻译为业务错误
// 依赖 gorm.Config{TranslateError: true}
func FromDB(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, msg, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(KindConflict, msg, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(KindValidation, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// MessageOf 可以对外展示的错误信息，非业务错误不暴露细节
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "服务器内部错误"
}
