// Package presigner 构造带有效期的预签名请求并对其签名.
//
// 每种请求（GetObject、PutObject、PostPolicy）只能通过各自的 Builder 创建，
// 构建后不可变，可在多个 goroutine 与重试之间共享；Builder 本身不是并发安全的.
// 有效期既可以用 SignatureDuration 指定，也可以用 SignatureExpiration 指定绝对时刻，二者互斥.
package presigner

import (
	"time"

	"github.com/yeisme/sdkcore/pkg/rule"
)

// Request 所有预签名请求的公共能力.
type Request interface {
	SignatureDuration() time.Duration
}

// Builder 预签名请求构建能力，B 为具体 Builder 类型，R 为构建出的请求类型.
type Builder[B any, R Request] interface {
	SignatureDuration(d time.Duration) B
	Build() (R, error)
}

// Base 各请求共享的字段，由具体请求嵌入.
type Base struct {
	signatureDuration time.Duration
}

// SignatureDuration 签名有效期，构建后总是存在.
func (b Base) SignatureDuration() time.Duration {
	return b.signatureDuration
}

// BaseBuilder 各 Builder 共享的有效期字段，由具体 Builder 嵌入.
type BaseBuilder struct {
	signatureDuration   *time.Duration
	signatureExpiration *time.Time
	now                 func() time.Time
}

// baseBuilderFrom 以已有请求的有效期初始化.
func baseBuilderFrom(b Base) BaseBuilder {
	d := b.signatureDuration

	return BaseBuilder{signatureDuration: &d}
}

func (b *BaseBuilder) setDuration(d *time.Duration) {
	if d == nil {
		b.signatureDuration = nil

		return
	}

	v := *d
	b.signatureDuration = &v
}

func (b *BaseBuilder) setExpiration(t *time.Time) {
	if t == nil {
		b.signatureExpiration = nil

		return
	}

	v := *t
	b.signatureExpiration = &v
}

func (b *BaseBuilder) clock() time.Time {
	if b.now != nil {
		return b.now()
	}

	return time.Now()
}

// buildBase 校验有效期：二者都设置时报冲突，都未设置时报缺失，只设置过期时刻时按当前时间换算.
func (b *BaseBuilder) buildBase() (Base, error) {
	switch {
	case b.signatureDuration != nil && b.signatureExpiration != nil:
		return Base{}, &ParamError{
			Param:  "SignatureExpiration",
			Reason: "cannot be combined with SignatureDuration",
			Err:    ErrConflictingExpiration,
		}
	case b.signatureDuration != nil:
		return Base{signatureDuration: *b.signatureDuration}, nil
	case b.signatureExpiration != nil:
		return Base{signatureDuration: b.signatureExpiration.Sub(b.clock())}, nil
	default:
		return Base{}, missingParam("SignatureDuration")
	}
}

func validateBucket(bucket string) error {
	if bucket == "" {
		return missingParam("Bucket")
	}

	if !rule.IsValidBucketName(bucket) {
		return invalidParam("Bucket", "invalid bucket name "+bucket)
	}

	return nil
}

func validateKey(param, key string) error {
	if key == "" {
		return missingParam(param)
	}

	if !rule.IsValidObjectKey(key) {
		return invalidParam(param, "invalid object key")
	}

	return nil
}
