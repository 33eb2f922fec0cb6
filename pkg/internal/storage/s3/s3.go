// Package s3 创建用于预签名的 MinIO/S3 客户端.
package s3

import (
	"context"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/presigner"
)

// Client 包装 MinIO 客户端，可直接作为 presigner.ObjectPresigner 使用.
type Client struct {
	*minio.Client

	cfg    configs.S3Config
	logger zerolog.Logger
}

var _ presigner.ObjectPresigner = (*Client)(nil)

// New 初始化 MinIO 客户端，不发起网络请求.
// Region 已配置时签名完全离线完成.
func New(cfg configs.S3Config, logger zerolog.Logger) (*Client, error) {
	endpoint := cfg.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("sdkcore", configs.AppVersion)

	logger.Debug().Str("endpoint", endpoint).Str("region", cfg.Region).Bool("ssl", cfg.UseSSL).Msg("s3 client created")

	return &Client{Client: cli, cfg: cfg, logger: logger}, nil
}

// EnsureBucket 配置了默认 bucket 时检查其存在，不存在则创建.
func (c *Client) EnsureBucket(ctx context.Context) error {
	bkt := c.cfg.BucketName
	if bkt == "" {
		return nil
	}

	exists, err := c.BucketExists(ctx, bkt)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bkt, err)
	}

	if exists {
		return nil
	}

	if err := c.MakeBucket(ctx, bkt, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bkt, err)
	}

	c.logger.Info().Str("bucket", bkt).Msg("bucket created")

	return nil
}

// HealthCheck 简单的健康检查，通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// DefaultBucket 返回配置的默认 bucket.
func (c *Client) DefaultBucket() string {
	return c.cfg.BucketName
}
