package model

import (
	"errors"
	"net/http"
)

// 请求级错误。请求级错误会让整个会话被拒绝，探测级错误只会体现为 status=error 的结果行。
var (
	ErrInvalidRequest    = errors.New("invalid scan request")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrResolutionFailed  = errors.New("target resolution failed")
	ErrTargetSetTooLarge = errors.New("target set too large")
)

// ErrorKind 请求级错误的稳定标识，用于 HTTP 响应与 CLI 输出
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "InvalidRequest"
	KindInvalidTarget     ErrorKind = "InvalidTarget"
	KindResolutionFailed  ErrorKind = "ResolutionFailed"
	KindTargetSetTooLarge ErrorKind = "TargetSetTooLarge"
	KindInternal          ErrorKind = "Internal"
)

// ClassifyError 将请求级错误映射为错误标识和 HTTP 状态码
func ClassifyError(err error) (ErrorKind, int) {
	switch {
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidTarget, http.StatusBadRequest
	case errors.Is(err, ErrResolutionFailed):
		return KindResolutionFailed, http.StatusUnprocessableEntity
	case errors.Is(err, ErrTargetSetTooLarge):
		return KindTargetSetTooLarge, http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest, http.StatusBadRequest
	}
	return KindInternal, http.StatusInternalServerError
}
