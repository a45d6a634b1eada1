package samsungcac

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Version is the library version.
const Version = "1.0.0"

// DeviceList defaults, applied when the corresponding argument is zero.
const (
	DefaultListStart = 1
	DefaultListCount = 1
	DefaultListGroup = "ALL"
)

const readBufferSize = 4096

// Client is a connection to a Samsung air conditioning controller.
type Client struct {
	hostname       string
	port           int
	addr           string
	connectTimeout time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger

	registry   *DeviceRegistry
	dispatcher *updateDispatcher

	disconnected  Event[*Client]
	deviceUpdated Event[DeviceUpdate]

	mu         sync.Mutex
	session    *session
	connecting bool
}

// session is the per-connection state. A new one is created on every
// Connect, so the pending request slot and handshake start out empty.
type session struct {
	conn       net.Conn
	decoder    LineDecoder
	handshake  *handshakeTracker
	correlator *correlator
	done       chan struct{}
	closing    atomic.Bool
}

// NewClient creates a client for the controller at hostname. It does not
// connect; call Connect.
func NewClient(hostname string, opts ...ClientOption) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	addr := net.JoinHostPort(hostname, strconv.Itoa(cfg.port))
	c := &Client{
		hostname:       hostname,
		port:           cfg.port,
		addr:           addr,
		connectTimeout: cfg.connectTimeout,
		requestTimeout: cfg.requestTimeout,
		logger:         cfg.logger.With(zap.String("component", "samsungcac"), zap.String("addr", addr)),
		registry:       &DeviceRegistry{},
	}
	c.dispatcher = &updateDispatcher{
		registry: c.registry,
		logger:   c.logger,
		publish: func(dev *Device, attrs []Attribute) {
			c.deviceUpdated.publish(DeviceUpdate{Client: c, Device: dev, Attributes: attrs})
		},
	}
	return c, nil
}

// Hostname returns the controller host name.
func (c *Client) Hostname() string { return c.hostname }

// Port returns the controller port.
func (c *Client) Port() int { return c.port }

// Disconnected is published when the connection closes for any reason.
func (c *Client) Disconnected() *Event[*Client] { return &c.disconnected }

// DeviceUpdated is published whenever a device's state is merged, from an
// unsolicited update or a DeviceState reply. Handlers run on the
// connection's read goroutine and must not issue requests.
func (c *Client) DeviceUpdated() *Event[DeviceUpdate] { return &c.deviceUpdated }

// Connect opens the TLS connection and returns once the controller has
// signalled it is ready. The connect timeout applies to the dial and TLS
// handshake; the wait for the ready signal is bounded only by ctx.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil || c.connecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.connecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if ce := c.logger.Check(zap.DebugLevel, "connecting"); ce != nil {
		ce.Write(zap.String("ciphers", CipherList()))
	}
	conn, err := dialController(dialCtx, c.addr, c.logger)
	if err != nil {
		return err
	}

	s := &session{
		conn:       conn,
		handshake:  newHandshakeTracker(),
		correlator: newCorrelator(),
		done:       make(chan struct{}),
	}
	if err := s.handshake.opened(); err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logger.Debug("connected, awaiting ready signal")
	go c.readLoop(s)

	select {
	case <-s.handshake.Ready():
		c.logger.Debug("controller ready")
		return nil
	case <-s.done:
		return fmt.Errorf("waiting for ready signal: %w", ErrConnectionClosed)
	case <-ctx.Done():
		c.mu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()
		c.closeSession(s)
		return fmt.Errorf("waiting for ready signal: %w", ctx.Err())
	}
}

// Disconnect closes the connection without a protocol goodbye. Pending
// requests are not completed.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	return c.closeSession(s)
}

func (c *Client) closeSession(s *session) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Debug("closing connection")
	return s.conn.Close()
}

// Connected reports whether a transport is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// HandshakeState returns the handshake state of the current connection,
// or HandshakeDisconnected when there is none.
func (c *Client) HandshakeState() string {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return HandshakeDisconnected
	}
	return s.handshake.state()
}

func (c *Client) activeSession() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

func (c *Client) readLoop(s *session) {
	defer func() {
		c.mu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()
		close(s.done)
		c.logger.Debug("connection closed")
		c.disconnected.publish(c)
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			dropped := s.decoder.Dropped()
			frames := s.decoder.Feed(buf[:n])
			if d := s.decoder.Dropped() - dropped; d > 0 {
				c.logger.Debug("dropped non-XML lines", zap.Int("count", d))
			}
			for _, frame := range frames {
				c.handleFrame(s, frame)
			}
		}
		if err != nil {
			if !s.closing.Load() && !errors.Is(err, io.EOF) {
				c.logger.Error("transport error", zap.Error(err))
			}
			return
		}
	}
}

// handleFrame classifies one inbound frame: handshake signal, reply to
// the pending request, or unsolicited update. Everything a frame changes
// is applied here, so state always reflects frames in wire order.
func (c *Client) handleFrame(s *session, frame []byte) {
	c.logger.Debug("RX", zap.ByteString("frame", frame))

	msg, err := DecodeMessage(frame)
	if err != nil {
		if errors.Is(err, ErrUnknownRoot) {
			c.logger.Debug("ignoring frame", zap.Error(err))
			return
		}
		if !s.correlator.reject(err) {
			c.logger.Warn("dropping undecodable frame", zap.Error(err))
		}
		return
	}

	switch m := msg.(type) {
	case *InvalidateAccountUpdate:
		if !s.handshake.signal() {
			c.logger.Debug("ignoring repeated InvalidateAccount")
		}
	case *StatusUpdate:
		c.dispatcher.dispatch(m)
	case *GetTokenResponse:
		c.logger.Debug("token request acknowledged", zap.String("status", m.Status))
	default:
		p, ok := s.correlator.claim(func(req Request) bool { return repliesTo(msg, req) })
		if !ok {
			c.logger.Debug("dropping reply with no matching request",
				zap.String("root", m.Head().Root),
				zap.String("type", m.Head().Type),
			)
			return
		}
		p.deliver(c.applyReply(msg, p.req))
	}
}

// repliesTo reports whether msg can answer req. A reply typed for a
// different request is a late answer to one that was abandoned.
// Responses of unknown type are handed to any request.
func repliesTo(msg Message, req Request) bool {
	switch m := msg.(type) {
	case *TokenUpdate:
		return req.RequestType() == TypeGetToken
	case *GenericResponse:
		return true
	case *DeviceStateResponse:
		r, ok := req.(DeviceStateRequest)
		return ok && (m.Device.ID == "" || m.Device.ID == r.DUID)
	default:
		return msg.Head().Type == req.RequestType()
	}
}

// applyReply performs the side effects of a reply before the waiting
// request sees it.
func (c *Client) applyReply(msg Message, req Request) result {
	switch m := msg.(type) {
	case *DeviceListResponse:
		devices := c.registry.Replace(m.Devices)
		c.logger.Debug("device list updated", zap.Int("devices", len(devices)))
		return result{msg: m, devices: devices}
	case *DeviceStateResponse:
		duid := m.Device.ID
		if duid == "" {
			if r, ok := req.(DeviceStateRequest); ok {
				duid = r.DUID
			}
		}
		dev, ok := c.registry.Find(duid)
		if !ok {
			return result{msg: m, err: fmt.Errorf("%w: %s", ErrUnknownDevice, duid)}
		}
		c.dispatcher.apply(dev, m.Attributes)
		return result{msg: m, device: dev}
	default:
		return result{msg: msg}
	}
}

// roundTrip writes req and waits for its reply.
func (c *Client) roundTrip(ctx context.Context, req Request) (result, error) {
	s, err := c.activeSession()
	if err != nil {
		return result{}, err
	}

	if err := s.correlator.acquire(); err != nil {
		return result{}, err
	}
	defer s.correlator.release()

	data, err := EncodeRequest(req)
	if err != nil {
		return result{}, err
	}

	p := s.correlator.park(req)
	c.logger.Debug("TX", zap.ByteString("frame", bytes.TrimRight(data, frameTerminator)))
	if _, err := s.conn.Write(data); err != nil {
		s.correlator.abandon(p)
		c.logger.Error("failed to send request", zap.String("type", req.RequestType()), zap.Error(err))
		return result{}, fmt.Errorf("send %s request: %w", req.RequestType(), err)
	}

	if c.requestTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
			defer cancel()
		}
	}

	select {
	case r := <-p.ch:
		return r, r.err
	case <-ctx.Done():
		s.correlator.abandon(p)
		c.logger.Warn("request abandoned", zap.String("type", req.RequestType()), zap.Error(ctx.Err()))
		return result{}, fmt.Errorf("%s request canceled: %w", req.RequestType(), ctx.Err())
	}
}

func unexpected(req Request, msg Message) error {
	h := msg.Head()
	return fmt.Errorf("%w: %s %q to %s request", ErrUnexpectedResponse, h.Root, h.Type, req.RequestType())
}

// GetToken requests a new authentication token. The controller only
// answers after its power button is pressed.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	req := GetTokenRequest{}
	r, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	m, ok := r.msg.(*TokenUpdate)
	if !ok {
		return "", unexpected(req, r.msg)
	}
	return m.Token, nil
}

// Login authenticates with token and returns the controller's resume
// cursor.
func (c *Client) Login(ctx context.Context, token string) (string, error) {
	req := AuthTokenRequest{Token: token}
	r, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	m, ok := r.msg.(*AuthTokenResponse)
	if !ok {
		return "", unexpected(req, r.msg)
	}
	return m.StartFrom, nil
}

// DeviceList fetches devices and replaces the registry with them, each
// with an empty state. Zero arguments fall back to DefaultListStart,
// DefaultListCount and DefaultListGroup.
func (c *Client) DeviceList(ctx context.Context, start, count int, group string) ([]*Device, error) {
	if start <= 0 {
		start = DefaultListStart
	}
	if count <= 0 {
		count = DefaultListCount
	}
	if group == "" {
		group = DefaultListGroup
	}

	req := DeviceListRequest{Start: start, Count: count, Group: group}
	r, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, ok := r.msg.(*DeviceListResponse); !ok {
		return nil, unexpected(req, r.msg)
	}
	return r.devices, nil
}

// FindDevice looks up a device from the last DeviceList.
func (c *Client) FindDevice(id string) (*Device, bool) {
	return c.registry.Find(id)
}

// Devices returns the devices from the last DeviceList.
func (c *Client) Devices() []*Device {
	return c.registry.Devices()
}

// DeviceState queries a device, merges the reply into its state and
// publishes a DeviceUpdate before returning it.
func (c *Client) DeviceState(ctx context.Context, id string) (*Device, error) {
	req := DeviceStateRequest{DUID: id}
	r, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, ok := r.msg.(*DeviceStateResponse); !ok {
		return nil, unexpected(req, r.msg)
	}
	return r.device, nil
}

// ControlDevice sends the attributes selected in opts. The device state
// is not changed here; the controller follows up with a status update.
func (c *Client) ControlDevice(ctx context.Context, id string, opts ControlOptions) (*DeviceControlResponse, error) {
	req := DeviceControlRequest{CommandID: DefaultCommandID, DUID: id, Attrs: opts.Attrs()}
	r, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	m, ok := r.msg.(*DeviceControlResponse)
	if !ok {
		return nil, unexpected(req, r.msg)
	}
	return m, nil
}
