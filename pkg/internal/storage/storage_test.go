package storage_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/internal/storage"
)

func TestManagerCreatesS3ClientOnce(t *testing.T) {
	cfg := configs.Defaults()
	mgr := storage.NewManager(&cfg, zerolog.Nop())

	defer mgr.Close()

	first, err := mgr.S3()
	require.NoError(t, err)

	second, err := mgr.S3()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, cfg.S3.BucketName, first.DefaultBucket())
}

func TestS3ClientFromContext(t *testing.T) {
	_, err := storage.GetS3ClientFromContext(context.Background())
	require.ErrorIs(t, err, storage.ErrNoManager)

	cfg := configs.Defaults()
	cfg.S3.Endpoint = "https://s3.example.com"

	ctx := storage.WithManager(context.Background(), storage.NewManager(&cfg, zerolog.Nop()))

	client, err := storage.GetS3ClientFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https", client.EndpointURL().Scheme)
	assert.Equal(t, "s3.example.com", client.EndpointURL().Host)
}

func TestManagerMQUnsupportedType(t *testing.T) {
	cfg := configs.Defaults()
	cfg.MQ.Type = "kafka"

	mgr := storage.NewManager(&cfg, zerolog.Nop())

	_, err := mgr.MQ(context.Background())
	require.Error(t, err)
	require.NoError(t, mgr.Close())
}
