package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/sdkcore/pkg/pipeline"
	"github.com/yeisme/sdkcore/pkg/presigner"
)

// presignOptions presign 子命令共用的参数.
type presignOptions struct {
	bucket    string
	key       string
	duration  time.Duration
	expiresAt string
	execute   bool
	file      string

	versionID       string
	responseHeaders []string

	contentType string
	metadata    []string

	keyPrefix string
	minSize   int64
	maxSize   int64
}

var (
	presignOpts presignOptions

	presignCmd = &cobra.Command{
		Use:   "presign",
		Short: "Create presigned object storage requests",
		Long: "Create presigned GET, PUT and POST policy requests and print them as JSON.\n" +
			"--duration and --expires-at are mutually exclusive; without either the configured presign.default_duration is used.",
	}

	presignGetCmd = &cobra.Command{
		Use:   "get",
		Short: "presign a GET object request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPresign(cmd, "GetObject", func(ctx context.Context, p *presigner.S3Presigner) (presigner.PresignedRequest, error) {
				b := presigner.NewGetObjectBuilder().
					Bucket(bucketOrDefault()).
					Key(presignOpts.key).
					VersionID(presignOpts.versionID)

				pairs, err := parsePairs(presignOpts.responseHeaders)
				if err != nil {
					return presigner.PresignedRequest{}, err
				}

				for _, kv := range pairs {
					b.ResponseHeader(kv[0], kv[1])
				}

				if err := applyExpiry(b); err != nil {
					return presigner.PresignedRequest{}, err
				}

				req, err := b.Build()
				if err != nil {
					return presigner.PresignedRequest{}, err
				}

				return p.PresignGetObject(ctx, req)
			})
		},
	}

	presignPutCmd = &cobra.Command{
		Use:   "put",
		Short: "presign a PUT object request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPresign(cmd, "PutObject", func(ctx context.Context, p *presigner.S3Presigner) (presigner.PresignedRequest, error) {
				b := presigner.NewPutObjectBuilder().
					Bucket(bucketOrDefault()).
					Key(presignOpts.key).
					ContentType(presignOpts.contentType)

				pairs, err := parsePairs(presignOpts.metadata)
				if err != nil {
					return presigner.PresignedRequest{}, err
				}

				for _, kv := range pairs {
					b.Metadata(kv[0], kv[1])
				}

				if err := applyExpiry(b); err != nil {
					return presigner.PresignedRequest{}, err
				}

				req, err := b.Build()
				if err != nil {
					return presigner.PresignedRequest{}, err
				}

				return p.PresignPutObject(ctx, req)
			})
		},
	}

	presignPostCmd = &cobra.Command{
		Use:   "post",
		Short: "presign a browser POST policy upload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPresign(cmd, "PostObject", func(ctx context.Context, p *presigner.S3Presigner) (presigner.PresignedRequest, error) {
				b := presigner.NewPostPolicyBuilder().
					Bucket(bucketOrDefault()).
					ContentType(presignOpts.contentType)

				if presignOpts.key != "" {
					b.Key(presignOpts.key)
				}

				if presignOpts.keyPrefix != "" {
					b.KeyPrefix(presignOpts.keyPrefix)
				}

				if cmd.Flags().Changed("max-size") {
					b.ContentLengthRange(presignOpts.minSize, presignOpts.maxSize)
				}

				if err := applyExpiry(b); err != nil {
					return presigner.PresignedRequest{}, err
				}

				req, err := b.Build()
				if err != nil {
					return presigner.PresignedRequest{}, err
				}

				return p.PresignPostPolicy(ctx, req)
			})
		},
	}
)

type presignFunc func(ctx context.Context, p *presigner.S3Presigner) (presigner.PresignedRequest, error)

// runPresign 签名并打印结果，--execute 时立即通过请求执行器发送.
func runPresign(cmd *cobra.Command, operation string, presign presignFunc) error {
	p, err := application.Presigner()
	if err != nil {
		return err
	}

	req, err := presign(cmd.Context(), p)
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), req); err != nil {
		return err
	}

	if !presignOpts.execute {
		return nil
	}

	op := pipeline.Operation{Service: application.Config().Client.ServiceName, Name: operation}

	return executePresigned(cmd, op, req)
}

func executePresigned(cmd *cobra.Command, op pipeline.Operation, req presigner.PresignedRequest) error {
	var body []byte

	if presignOpts.file != "" {
		data, err := os.ReadFile(presignOpts.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", presignOpts.file, err)
		}

		body = data
	}

	client, err := application.Client(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := client.DoPresigned(cmd.Context(), op, req, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%d bytes)\n", op, resp.Status, n)

	return nil
}

// expiryBuilder 三种预签名构建器共有的有效期设置.
type expiryBuilder[B any] interface {
	SignatureDurationPtr(d *time.Duration) B
	SignatureExpiration(t time.Time) B
}

func applyExpiry[B expiryBuilder[B]](b B) error {
	dur, exp, err := expiry()
	if err != nil {
		return err
	}

	b.SignatureDurationPtr(dur)

	if exp != nil {
		b.SignatureExpiration(*exp)
	}

	return nil
}

// expiry 解析 --duration 与 --expires-at，两者都未设置时使用配置的默认有效期.
// 两者同时设置时交给 Build 报告冲突.
func expiry() (*time.Duration, *time.Time, error) {
	var (
		dur *time.Duration
		exp *time.Time
	)

	if presignCmd.PersistentFlags().Changed("duration") {
		d := presignOpts.duration
		dur = &d
	}

	if presignOpts.expiresAt != "" {
		t, err := time.Parse(time.RFC3339, presignOpts.expiresAt)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --expires-at %q: %w", presignOpts.expiresAt, err)
		}

		exp = &t
	}

	if dur == nil && exp == nil {
		d := application.Config().Presign.DefaultDuration
		dur = &d
	}

	return dur, exp, nil
}

func bucketOrDefault() string {
	if presignOpts.bucket != "" {
		return presignOpts.bucket
	}

	return application.Config().S3.BucketName
}

// parsePairs 解析 key=value 形式的参数.
func parsePairs(raw []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(raw))

	for _, item := range raw {
		k, v, ok := strings.Cut(item, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", item)
		}

		pairs = append(pairs, [2]string{k, v})
	}

	return pairs, nil
}

// registerPresignCommands 注册预签名相关命令.
func registerPresignCommands() {
	pf := presignCmd.PersistentFlags()
	pf.StringVarP(&presignOpts.bucket, "bucket", "b", "", "bucket name (defaults to s3.bucket_name)")
	pf.StringVarP(&presignOpts.key, "key", "k", "", "object key")
	pf.DurationVarP(&presignOpts.duration, "duration", "d", 0, "signature duration, e.g. 15m")
	pf.StringVar(&presignOpts.expiresAt, "expires-at", "", "absolute expiration time (RFC3339)")
	pf.BoolVarP(&presignOpts.execute, "execute", "x", false, "send the presigned request and record execution metrics")
	pf.StringVarP(&presignOpts.file, "file", "f", "", "request body for --execute")

	presignGetCmd.Flags().StringVar(&presignOpts.versionID, "version-id", "", "object version")
	presignGetCmd.Flags().StringArrayVar(&presignOpts.responseHeaders, "response-header", nil,
		"response header override, e.g. content-disposition=attachment")

	presignPutCmd.Flags().StringVar(&presignOpts.contentType, "content-type", "", "content type the upload must use")
	presignPutCmd.Flags().StringArrayVar(&presignOpts.metadata, "meta", nil, "user metadata, e.g. owner=alice")

	presignPostCmd.Flags().StringVar(&presignOpts.contentType, "content-type", "", "content type the upload must use")
	presignPostCmd.Flags().StringVar(&presignOpts.keyPrefix, "key-prefix", "", "allow any key with this prefix")
	presignPostCmd.Flags().Int64Var(&presignOpts.minSize, "min-size", 0, "minimum upload size in bytes")
	presignPostCmd.Flags().Int64Var(&presignOpts.maxSize, "max-size", 0, "maximum upload size in bytes")

	presignCmd.AddCommand(presignGetCmd, presignPutCmd, presignPostCmd)
	rootCmd.AddCommand(presignCmd)
}
