package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はシステム境界で区別されるエラー種別です
type Kind string

const (
	KindBadRequest         Kind = "bad_request"
	KindConflict           Kind = "conflict"
	KindForbidden          Kind = "forbidden"
	KindRequestTimeout     Kind = "request_timeout"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUnclassified       Kind = "unclassified"
)

// Error は種別と利用者向けの短いメッセージを持つエラーです
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

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func BadRequest(format string, args ...any) *Error {
	return newError(KindBadRequest, nil, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, nil, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, nil, format, args...)
}

// Wrap は原因となるエラーを保持したまま種別を付与します
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return newError(kind, err, format, args...)
}

// KindOf はエラーチェーンから種別を取り出します
// 種別が付与されていないエラーはKindUnclassifiedになります
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnclassified
}

// Is はエラーが指定された種別かどうかを返します
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus は種別に対応するHTTPステータスコードを返します
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindRequestTimeout:
		return http.StatusRequestTimeout
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage は利用者に返すメッセージを返します
// 未分類のエラーは詳細を隠します
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindUnclassified {
		return appErr.Message
	}
	return "internal server error"
}
