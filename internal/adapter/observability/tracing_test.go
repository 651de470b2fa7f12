package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// The gRPC exporter connects lazily, so no collector is needed.
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: "localhost:4317", OTELServiceName: "test-service", AppEnv: "test"})
	if err != nil {
		assert.Nil(t, shutdown)
		return
	}
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(config.Config{AppEnv: "dev", TraceSampleRatio: 0.1}))
	assert.Equal(t, 0.1, sampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: 0.1}))
	assert.Equal(t, 1.0, sampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: 3}))
	assert.Equal(t, 0.0, sampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: -1}))
}
