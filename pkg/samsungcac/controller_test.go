package samsungcac

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWait = 5 * time.Second

// fakeController is an in-process TLS server that plays the controller
// side of the protocol line by line.
type fakeController struct {
	ln    net.Listener
	port  int
	conns chan *controllerConn
}

type controllerConn struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject:      pkix.Name{CommonName: "MIM-H02"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{selfSignedCert(t)},
	})
	require.NoError(t, err)

	fc := &fakeController{
		ln:    ln,
		port:  ln.Addr().(*net.TCPAddr).Port,
		conns: make(chan *controllerConn, 4),
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			tlsConn := conn.(*tls.Conn)
			ctx, cancel := context.WithTimeout(context.Background(), testWait)
			err = tlsConn.HandshakeContext(ctx)
			cancel()
			if err != nil {
				conn.Close()
				continue
			}
			fc.conns <- &controllerConn{t: t, conn: conn, reader: bufio.NewReader(conn)}
		}
	}()
	return fc
}

func (fc *fakeController) accept(t *testing.T) *controllerConn {
	t.Helper()
	select {
	case c := <-fc.conns:
		t.Cleanup(func() { c.conn.Close() })
		return c
	case <-time.After(testWait):
		t.Fatal("no connection from client")
		return nil
	}
}

// send writes one LF terminated line, as the controller does.
func (c *controllerConn) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

// sendBatch writes several lines with a single Write so the client reads
// them in one chunk.
func (c *controllerConn) sendBatch(lines ...string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(c.t, err)
}

// readRequest returns the next request document without its XML
// declaration and CRLF.
func (c *controllerConn) readRequest() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(testWait)))
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	require.True(c.t, strings.HasSuffix(line, "\r\n"), "request must end in CRLF: %q", line)
	require.True(c.t, strings.HasPrefix(line, xmlDeclaration), "request must carry XML declaration: %q", line)
	return strings.TrimSuffix(strings.TrimPrefix(line, xmlDeclaration), "\r\n")
}

func (c *controllerConn) close() {
	c.conn.Close()
}

// connectClient connects a new client to fc and completes the handshake.
func connectClient(t *testing.T, fc *fakeController, opts ...ClientOption) (*Client, *controllerConn) {
	t.Helper()

	opts = append([]ClientOption{WithPort(fc.port), WithConnectTimeout(testWait)}, opts...)
	client, err := NewClient("127.0.0.1", opts...)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect(context.Background()) }()

	conn := fc.accept(t)
	conn.send(`<Update Type="InvalidateAccount"/>`)
	require.NoError(t, waitErr(t, errCh))

	t.Cleanup(func() { client.Disconnect() })
	return client, conn
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(testWait):
		t.Fatal("timed out waiting for call to return")
		return nil
	}
}
