package presigner

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/tracing"
)

const (
	// MinSignatureDuration SigV4 允许的最短有效期.
	MinSignatureDuration = configs.DefaultPresignMinDuration
	// MaxSignatureDuration SigV4 允许的最长有效期.
	MaxSignatureDuration = configs.DefaultPresignMaxDuration
)

// Presigner 对预签名请求签名.
type Presigner interface {
	PresignGetObject(ctx context.Context, req GetObjectRequest) (PresignedRequest, error)
	PresignPutObject(ctx context.Context, req PutObjectRequest) (PresignedRequest, error)
	PresignPostPolicy(ctx context.Context, req PostPolicyRequest) (PresignedRequest, error)
}

// ObjectPresigner 执行实际签名的 S3 兼容客户端，*minio.Client 满足该接口.
type ObjectPresigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration,
		reqParams url.Values) (*url.URL, error)
	PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration,
		reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
	PresignedPostPolicy(ctx context.Context, p *minio.PostPolicy) (*url.URL, map[string]string, error)
}

var _ ObjectPresigner = (*minio.Client)(nil)

// Option 配置 S3Presigner.
type Option func(*S3Presigner)

// WithBounds 设置允许的有效期范围.
func WithBounds(minDuration, maxDuration time.Duration) Option {
	return func(p *S3Presigner) {
		p.minDuration = minDuration
		p.maxDuration = maxDuration
	}
}

// WithClock 替换计算过期时刻使用的时钟.
func WithClock(now func() time.Time) Option {
	return func(p *S3Presigner) { p.now = now }
}

// WithLogger 设置日志记录器.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *S3Presigner) { p.logger = logger }
}

// S3Presigner 基于 S3 兼容客户端的 Presigner，负责有效期范围校验.
type S3Presigner struct {
	client      ObjectPresigner
	minDuration time.Duration
	maxDuration time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

var _ Presigner = (*S3Presigner)(nil)

// NewS3Presigner 创建 S3Presigner，默认有效期范围为 [1s, 7d].
func NewS3Presigner(client ObjectPresigner, opts ...Option) *S3Presigner {
	p := &S3Presigner{
		client:      client,
		minDuration: MinSignatureDuration,
		maxDuration: MaxSignatureDuration,
		now:         time.Now,
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewFromConfig 按配置创建 S3Presigner.
func NewFromConfig(cfg configs.PresignConfig, client ObjectPresigner, logger zerolog.Logger) *S3Presigner {
	return NewS3Presigner(client, WithBounds(cfg.MinDuration, cfg.MaxDuration), WithLogger(logger))
}

func (p *S3Presigner) PresignGetObject(ctx context.Context, req GetObjectRequest) (PresignedRequest, error) {
	ctx, span := p.startSpan(ctx, "GetObject", req.bucket, req.key)
	defer span.End()

	expiration, err := p.expiration(req.SignatureDuration())
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, err
	}

	u, err := p.client.PresignedGetObject(ctx, req.bucket, req.key, req.SignatureDuration(), req.queryParams())
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, fmt.Errorf("presign get %s/%s: %w", req.bucket, req.key, err)
	}

	p.logPresigned("GetObject", req.bucket, req.key, req.SignatureDuration())

	return PresignedRequest{
		Method:              http.MethodGet,
		URL:                 u.String(),
		Expiration:          expiration,
		IsBrowserExecutable: true,
	}, nil
}

func (p *S3Presigner) PresignPutObject(ctx context.Context, req PutObjectRequest) (PresignedRequest, error) {
	ctx, span := p.startSpan(ctx, "PutObject", req.bucket, req.key)
	defer span.End()

	expiration, err := p.expiration(req.SignatureDuration())
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, err
	}

	headers := req.signedHeaders()

	u, err := p.client.PresignHeader(ctx, http.MethodPut, req.bucket, req.key, req.SignatureDuration(), nil, headers)
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, fmt.Errorf("presign put %s/%s: %w", req.bucket, req.key, err)
	}

	p.logPresigned("PutObject", req.bucket, req.key, req.SignatureDuration())

	return PresignedRequest{
		Method:              http.MethodPut,
		URL:                 u.String(),
		SignedHeaders:       headers,
		Expiration:          expiration,
		IsBrowserExecutable: false,
	}, nil
}

func (p *S3Presigner) PresignPostPolicy(ctx context.Context, req PostPolicyRequest) (PresignedRequest, error) {
	key := req.key
	if key == "" {
		key = req.keyPrefix
	}

	ctx, span := p.startSpan(ctx, "PostPolicy", req.bucket, key)
	defer span.End()

	expiration, err := p.expiration(req.SignatureDuration())
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, err
	}

	policy, err := buildPostPolicy(req, expiration)
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, err
	}

	u, formData, err := p.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		tracing.RecordError(span, err)

		return PresignedRequest{}, fmt.Errorf("presign post policy %s/%s: %w", req.bucket, key, err)
	}

	p.logPresigned("PostPolicy", req.bucket, key, req.SignatureDuration())

	return PresignedRequest{
		Method:              http.MethodPost,
		URL:                 u.String(),
		FormData:            formData,
		Expiration:          expiration,
		IsBrowserExecutable: true,
	}, nil
}

// expiration 校验有效期范围并计算过期时刻.
func (p *S3Presigner) expiration(d time.Duration) (time.Time, error) {
	if d < p.minDuration || d > p.maxDuration {
		return time.Time{}, &ParamError{
			Param:  "SignatureDuration",
			Reason: fmt.Sprintf("%s is not within [%s, %s]", d, p.minDuration, p.maxDuration),
			Err:    ErrInvalidSignatureDuration,
		}
	}

	return p.now().Add(d).UTC(), nil
}

func buildPostPolicy(req PostPolicyRequest, expiration time.Time) (*minio.PostPolicy, error) {
	// 每个请求使用新的策略对象，避免条件累积
	policy := minio.NewPostPolicy()

	if err := policy.SetBucket(req.bucket); err != nil {
		return nil, invalidParam("Bucket", err.Error())
	}

	if req.key != "" {
		if err := policy.SetKey(req.key); err != nil {
			return nil, invalidParam("Key", err.Error())
		}
	} else if err := policy.SetKeyStartsWith(req.keyPrefix); err != nil {
		return nil, invalidParam("KeyPrefix", err.Error())
	}

	if err := policy.SetExpires(expiration); err != nil {
		return nil, invalidParam("SignatureDuration", err.Error())
	}

	if req.contentType != "" {
		if err := policy.SetContentType(req.contentType); err != nil {
			return nil, invalidParam("ContentType", err.Error())
		}
	}

	if lr, ok := req.ContentLengthRange(); ok {
		if err := policy.SetContentLengthRange(lr.Min, lr.Max); err != nil {
			return nil, invalidParam("ContentLengthRange", err.Error())
		}
	}

	return policy, nil
}

func (p *S3Presigner) startSpan(ctx context.Context, operation, bucket, key string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, "presign."+operation, trace.WithAttributes(
		attribute.String("s3.bucket", bucket),
		attribute.String("s3.key", key),
	))
}

func (p *S3Presigner) logPresigned(operation, bucket, key string, d time.Duration) {
	p.logger.Debug().
		Str("operation", operation).
		Str("bucket", bucket).
		Str("key", key).
		Dur("signature_duration", d).
		Msg("request presigned")
}
