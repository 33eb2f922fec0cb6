package presigner

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingParameter 必填参数未设置.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrInvalidParameter 参数取值不合法.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrConflictingExpiration 同时设置了有效期与过期时刻.
	ErrConflictingExpiration = fmt.Errorf("%w: signature duration and signature expiration are mutually exclusive",
		ErrInvalidParameter)
	// ErrInvalidSignatureDuration 有效期超出预签名器允许的范围.
	ErrInvalidSignatureDuration = fmt.Errorf("%w: signature duration out of range", ErrInvalidParameter)
)

// ParamError 指明出错的参数.
type ParamError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("presigner: %s: %s", e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

func missingParam(param string) error {
	return &ParamError{Param: param, Reason: "must not be nil", Err: ErrMissingParameter}
}

func invalidParam(param, reason string) error {
	return &ParamError{Param: param, Reason: reason, Err: ErrInvalidParameter}
}
