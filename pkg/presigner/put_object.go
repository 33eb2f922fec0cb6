package presigner

import (
	"maps"
	"net/http"
	"strings"
	"time"
)

// PutObjectRequest 预签名上传请求，ContentType 与元数据会作为签名头.
type PutObjectRequest struct {
	Base

	bucket      string
	key         string
	contentType string
	metadata    map[string]string
}

func (r PutObjectRequest) Bucket() string      { return r.bucket }
func (r PutObjectRequest) Key() string         { return r.key }
func (r PutObjectRequest) ContentType() string { return r.contentType }

// Metadata 返回用户元数据副本.
func (r PutObjectRequest) Metadata() map[string]string {
	return maps.Clone(r.metadata)
}

// ToBuilder 以当前请求为基础创建 Builder.
func (r PutObjectRequest) ToBuilder() *PutObjectBuilder {
	return &PutObjectBuilder{
		BaseBuilder: baseBuilderFrom(r.Base),
		bucket:      r.bucket,
		key:         r.key,
		contentType: r.contentType,
		metadata:    maps.Clone(r.metadata),
	}
}

// signedHeaders 上传时客户端必须携带的请求头.
func (r PutObjectRequest) signedHeaders() http.Header {
	if r.contentType == "" && len(r.metadata) == 0 {
		return nil
	}

	h := http.Header{}
	if r.contentType != "" {
		h.Set("Content-Type", r.contentType)
	}

	for k, v := range r.metadata {
		h.Set("X-Amz-Meta-"+k, v)
	}

	return h
}

// PutObjectBuilder 构建 PutObjectRequest.
type PutObjectBuilder struct {
	BaseBuilder

	bucket      string
	key         string
	contentType string
	metadata    map[string]string
}

var _ Builder[*PutObjectBuilder, PutObjectRequest] = (*PutObjectBuilder)(nil)

// NewPutObjectBuilder 创建空的 PutObjectBuilder.
func NewPutObjectBuilder() *PutObjectBuilder {
	return &PutObjectBuilder{}
}

func (b *PutObjectBuilder) SignatureDuration(d time.Duration) *PutObjectBuilder {
	b.setDuration(&d)

	return b
}

// SignatureDurationPtr 设置有效期，nil 表示清除.
func (b *PutObjectBuilder) SignatureDurationPtr(d *time.Duration) *PutObjectBuilder {
	b.setDuration(d)

	return b
}

// SignatureExpiration 以绝对时刻指定过期时间，与 SignatureDuration 互斥.
func (b *PutObjectBuilder) SignatureExpiration(t time.Time) *PutObjectBuilder {
	b.setExpiration(&t)

	return b
}

// Clock 替换换算过期时刻时使用的时钟.
func (b *PutObjectBuilder) Clock(now func() time.Time) *PutObjectBuilder {
	b.now = now

	return b
}

func (b *PutObjectBuilder) Bucket(bucket string) *PutObjectBuilder {
	b.bucket = bucket

	return b
}

func (b *PutObjectBuilder) Key(key string) *PutObjectBuilder {
	b.key = key

	return b
}

func (b *PutObjectBuilder) ContentType(contentType string) *PutObjectBuilder {
	b.contentType = contentType

	return b
}

// Metadata 追加一项用户元数据，键统一为小写.
func (b *PutObjectBuilder) Metadata(key, value string) *PutObjectBuilder {
	if b.metadata == nil {
		b.metadata = make(map[string]string)
	}

	b.metadata[strings.ToLower(key)] = value

	return b
}

// Build 校验并构建请求.
func (b *PutObjectBuilder) Build() (PutObjectRequest, error) {
	base, err := b.buildBase()
	if err != nil {
		return PutObjectRequest{}, err
	}

	if err := validateBucket(b.bucket); err != nil {
		return PutObjectRequest{}, err
	}

	if err := validateKey("Key", b.key); err != nil {
		return PutObjectRequest{}, err
	}

	for k := range b.metadata {
		if k == "" {
			return PutObjectRequest{}, invalidParam("Metadata", "empty metadata key")
		}
	}

	return PutObjectRequest{
		Base:        base,
		bucket:      b.bucket,
		key:         b.key,
		contentType: b.contentType,
		metadata:    maps.Clone(b.metadata),
	}, nil
}
