package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPresignedRequestExpired 预签名请求在发送前已过期.
	ErrPresignedRequestExpired = errors.New("presigned request expired")
	// ErrMaxAttemptsExceeded 重试次数耗尽.
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

	errBuildRequest = errors.New("build request")
)

// StatusError 服务端返回了可重试的错误状态码.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "unexpected response status: " + e.Status
	}

	return fmt.Sprintf("unexpected response status: %d", e.StatusCode)
}

// retryableStatus 5xx 与 429 视为可重试.
func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}
