package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/config"
)

func TestSetupLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "svc"})
	lg.Debug("hidden")
	assert.Zero(t, buf.Len())

	lg.Info("shown")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "svc", line["service"])
	assert.Equal(t, "prod", line["env"])

	buf.Reset()
	lg = newLogger(&buf, config.Config{AppEnv: "prod", LogLevel: "debug"})
	lg.Debug("visible")
	assert.NotZero(t, buf.Len())

	assert.NotNil(t, SetupLogger(config.Config{AppEnv: "dev"}))
}
