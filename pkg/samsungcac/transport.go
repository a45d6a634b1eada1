package samsungcac

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// offeredCipherSuites is every suite the local TLS stack implements,
// secure or not. The controller accepts a narrow set that has never been
// pinned down, so nothing is filtered.
var offeredCipherSuites = collectCipherSuites()

func collectCipherSuites() []uint16 {
	var ids []uint16
	for _, cs := range tls.CipherSuites() {
		ids = append(ids, cs.ID)
	}
	for _, cs := range tls.InsecureCipherSuites() {
		ids = append(ids, cs.ID)
	}
	return ids
}

// CipherList returns the offered suites as a colon separated string.
func CipherList() string {
	names := make([]string, 0, len(offeredCipherSuites))
	for _, id := range offeredCipherSuites {
		names = append(names, tls.CipherSuiteName(id))
	}
	return strings.Join(names, ":")
}

func newTLSConfig() *tls.Config {
	return &tls.Config{
		// The controller presents a self-signed certificate.
		InsecureSkipVerify: true, //nolint:gosec
		CipherSuites:       offeredCipherSuites,
		MinVersion:         tls.VersionTLS10,
	}
}

// dialController opens the encrypted stream to addr.
func dialController(ctx context.Context, addr string, logger *zap.Logger) (net.Conn, error) {
	d := tls.Dialer{Config: newTLSConfig()}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if tlsConn, ok := conn.(*tls.Conn); ok {
		state := tlsConn.ConnectionState()
		logger.Debug("TLS handshake completed",
			zap.String("tls_version", tls.VersionName(state.Version)),
			zap.String("cipher_suite", tls.CipherSuiteName(state.CipherSuite)),
		)
	}
	return conn, nil
}
