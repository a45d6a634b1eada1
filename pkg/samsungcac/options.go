package samsungcac

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultPort is the controller's TLS port.
const DefaultPort = 2878

// ClientOption configures a Client.
type ClientOption func(*clientConfig) error

// clientConfig holds the configuration for a Client.
type clientConfig struct {
	port           int
	connectTimeout time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger
}

// defaultConfig returns the default client configuration.
func defaultConfig() *clientConfig {
	return &clientConfig{
		port:           DefaultPort,
		connectTimeout: 10 * time.Second,
		requestTimeout: 0,
		logger:         zap.NewNop(),
	}
}

// WithPort sets the TCP port to connect to.
// Default is 2878.
func WithPort(port int) ClientOption {
	return func(c *clientConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		c.port = port
		return nil
	}
}

// WithConnectTimeout bounds the TCP dial and TLS handshake.
// Waiting for the controller's ready signal is bounded only by the
// context passed to Connect. Default is 10 seconds.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("connect timeout must be positive")
		}
		c.connectTimeout = d
		return nil
	}
}

// WithRequestTimeout bounds each request whose context has no deadline.
// By default requests wait until the controller replies or the context
// is canceled.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		c.requestTimeout = d
		return nil
	}
}

// WithLogger sets a structured logger for debug and error logging.
// By default, no logging is performed.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *clientConfig) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
		return nil
	}
}
