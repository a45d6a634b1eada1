package samsungcac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, DefaultPort, cfg.port)
	assert.Equal(t, 10*time.Second, cfg.connectTimeout)
	assert.Zero(t, cfg.requestTimeout)
	assert.NotNil(t, cfg.logger)
}

func TestWithPort_Valid(t *testing.T) {
	cfg := defaultConfig()

	err := WithPort(9200)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.port)

	err = WithPort(1)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.port)

	err = WithPort(65535)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 65535, cfg.port)
}

func TestWithPort_Invalid(t *testing.T) {
	cfg := defaultConfig()

	assert.Error(t, WithPort(0)(cfg))
	assert.Error(t, WithPort(-1)(cfg))
	assert.Error(t, WithPort(65536)(cfg))
	assert.Equal(t, DefaultPort, cfg.port)
}

func TestWithConnectTimeout(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, WithConnectTimeout(3*time.Second)(cfg))
	assert.Equal(t, 3*time.Second, cfg.connectTimeout)

	assert.Error(t, WithConnectTimeout(0)(cfg))
	assert.Error(t, WithConnectTimeout(-time.Second)(cfg))
}

func TestWithRequestTimeout(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, WithRequestTimeout(5*time.Second)(cfg))
	assert.Equal(t, 5*time.Second, cfg.requestTimeout)

	assert.Error(t, WithRequestTimeout(0)(cfg))
	assert.Error(t, WithRequestTimeout(-time.Second)(cfg))
}

func TestWithLogger(t *testing.T) {
	cfg := defaultConfig()

	logger := zap.NewExample()
	require.NoError(t, WithLogger(logger)(cfg))
	assert.Same(t, logger, cfg.logger)

	require.NoError(t, WithLogger(nil)(cfg))
	assert.NotNil(t, cfg.logger)
}

func TestNewClient_InvalidOption(t *testing.T) {
	client, err := NewClient("localhost", WithPort(0))
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "invalid option")
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient("ac.local")
	require.NoError(t, err)

	assert.Equal(t, "ac.local", client.Hostname())
	assert.Equal(t, DefaultPort, client.Port())
	assert.False(t, client.Connected())
	assert.Equal(t, HandshakeDisconnected, client.HandshakeState())
	assert.Empty(t, client.Devices())
}
