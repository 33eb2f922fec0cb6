package context_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	sdkctx "github.com/yeisme/sdkcore/pkg/context"
	"github.com/yeisme/sdkcore/pkg/metrics"
)

func TestRegistryFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, metrics.NoopRegistry{}, sdkctx.GetRegistry(ctx))

	reg := metrics.NewDefaultRegistry()
	ctx = sdkctx.WithRegistry(ctx, reg)
	assert.Same(t, reg, sdkctx.GetRegistry(ctx))
}

func TestExecutionIDAndLogger(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, sdkctx.GetExecutionID(ctx))

	ctx = sdkctx.WithExecutionID(ctx, "exec-1")
	assert.Equal(t, "exec-1", sdkctx.GetExecutionID(ctx))

	var buf bytes.Buffer

	ctx = sdkctx.WithLogger(ctx, zerolog.New(&buf))
	logger := sdkctx.GetLogger(ctx)
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}
