package presigner

import (
	"strconv"
	"time"
)

// ContentLengthRange 上传内容长度范围（字节，闭区间）.
type ContentLengthRange struct {
	Min int64
	Max int64
}

// PostPolicyRequest 浏览器表单上传（POST Policy）请求.
// Key 与 KeyPrefix 必须且只能设置一个.
type PostPolicyRequest struct {
	Base

	bucket      string
	key         string
	keyPrefix   string
	contentType string
	lengthRange *ContentLengthRange
}

func (r PostPolicyRequest) Bucket() string      { return r.bucket }
func (r PostPolicyRequest) Key() string         { return r.key }
func (r PostPolicyRequest) KeyPrefix() string   { return r.keyPrefix }
func (r PostPolicyRequest) ContentType() string { return r.contentType }

// ContentLengthRange 返回长度范围，未设置时 ok 为 false.
func (r PostPolicyRequest) ContentLengthRange() (ContentLengthRange, bool) {
	if r.lengthRange == nil {
		return ContentLengthRange{}, false
	}

	return *r.lengthRange, true
}

// ToBuilder 以当前请求为基础创建 Builder.
func (r PostPolicyRequest) ToBuilder() *PostPolicyBuilder {
	b := &PostPolicyBuilder{
		BaseBuilder: baseBuilderFrom(r.Base),
		bucket:      r.bucket,
		key:         r.key,
		keyPrefix:   r.keyPrefix,
		contentType: r.contentType,
	}

	if r.lengthRange != nil {
		lr := *r.lengthRange
		b.lengthRange = &lr
	}

	return b
}

// PostPolicyBuilder 构建 PostPolicyRequest.
type PostPolicyBuilder struct {
	BaseBuilder

	bucket      string
	key         string
	keyPrefix   string
	contentType string
	lengthRange *ContentLengthRange
}

var _ Builder[*PostPolicyBuilder, PostPolicyRequest] = (*PostPolicyBuilder)(nil)

// NewPostPolicyBuilder 创建空的 PostPolicyBuilder.
func NewPostPolicyBuilder() *PostPolicyBuilder {
	return &PostPolicyBuilder{}
}

func (b *PostPolicyBuilder) SignatureDuration(d time.Duration) *PostPolicyBuilder {
	b.setDuration(&d)

	return b
}

// SignatureDurationPtr 设置有效期，nil 表示清除.
func (b *PostPolicyBuilder) SignatureDurationPtr(d *time.Duration) *PostPolicyBuilder {
	b.setDuration(d)

	return b
}

// SignatureExpiration 以绝对时刻指定过期时间，与 SignatureDuration 互斥.
func (b *PostPolicyBuilder) SignatureExpiration(t time.Time) *PostPolicyBuilder {
	b.setExpiration(&t)

	return b
}

// Clock 替换换算过期时刻时使用的时钟.
func (b *PostPolicyBuilder) Clock(now func() time.Time) *PostPolicyBuilder {
	b.now = now

	return b
}

func (b *PostPolicyBuilder) Bucket(bucket string) *PostPolicyBuilder {
	b.bucket = bucket

	return b
}

func (b *PostPolicyBuilder) Key(key string) *PostPolicyBuilder {
	b.key = key

	return b
}

// KeyPrefix 允许上传到以 prefix 开头的任意键.
func (b *PostPolicyBuilder) KeyPrefix(prefix string) *PostPolicyBuilder {
	b.keyPrefix = prefix

	return b
}

func (b *PostPolicyBuilder) ContentType(contentType string) *PostPolicyBuilder {
	b.contentType = contentType

	return b
}

func (b *PostPolicyBuilder) ContentLengthRange(minSize, maxSize int64) *PostPolicyBuilder {
	b.lengthRange = &ContentLengthRange{Min: minSize, Max: maxSize}

	return b
}

// Build 校验并构建请求.
func (b *PostPolicyBuilder) Build() (PostPolicyRequest, error) {
	base, err := b.buildBase()
	if err != nil {
		return PostPolicyRequest{}, err
	}

	if err := validateBucket(b.bucket); err != nil {
		return PostPolicyRequest{}, err
	}

	switch {
	case b.key != "" && b.keyPrefix != "":
		return PostPolicyRequest{}, invalidParam("KeyPrefix", "cannot be combined with Key")
	case b.key != "":
		if err := validateKey("Key", b.key); err != nil {
			return PostPolicyRequest{}, err
		}
	case b.keyPrefix != "":
		if err := validateKey("KeyPrefix", b.keyPrefix); err != nil {
			return PostPolicyRequest{}, err
		}
	default:
		return PostPolicyRequest{}, missingParam("Key")
	}

	r := PostPolicyRequest{
		Base:        base,
		bucket:      b.bucket,
		key:         b.key,
		keyPrefix:   b.keyPrefix,
		contentType: b.contentType,
	}

	if b.lengthRange != nil {
		lr := *b.lengthRange
		if lr.Min < 0 || lr.Max < lr.Min {
			return PostPolicyRequest{}, invalidParam("ContentLengthRange",
				"invalid range "+strconv.FormatInt(lr.Min, 10)+"-"+strconv.FormatInt(lr.Max, 10))
		}

		r.lengthRange = &lr
	}

	return r, nil
}
