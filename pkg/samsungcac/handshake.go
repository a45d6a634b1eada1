package samsungcac

import (
	"context"

	"github.com/looplab/fsm"
)

// Handshake states. HandshakeDisconnected is reported by a Client with no
// open connection; a tracker never enters it.
const (
	HandshakeDisconnected  = "disconnected"
	HandshakeConnecting    = "connecting"
	HandshakeAwaitingReady = "awaiting_ready"
	HandshakeReady         = "ready"
)

const (
	eventTransportOpened   = "transport_opened"
	eventAccountInvalidate = "account_invalidated"
)

// handshakeTracker gates a connection until the controller sends its
// InvalidateAccount update. One tracker lives for one connection.
type handshakeTracker struct {
	fsm   *fsm.FSM
	ready chan struct{}
}

func newHandshakeTracker() *handshakeTracker {
	return &handshakeTracker{
		fsm: fsm.NewFSM(
			HandshakeConnecting,
			fsm.Events{
				{Name: eventTransportOpened, Src: []string{HandshakeConnecting}, Dst: HandshakeAwaitingReady},
				{Name: eventAccountInvalidate, Src: []string{HandshakeAwaitingReady}, Dst: HandshakeReady},
			},
			fsm.Callbacks{},
		),
		ready: make(chan struct{}),
	}
}

func (h *handshakeTracker) opened() error {
	return h.fsm.Event(context.Background(), eventTransportOpened)
}

// signal records an InvalidateAccount update. Only the first one after the
// transport opened moves the tracker to ready; it reports whether this call
// did so. Must be called from a single goroutine.
func (h *handshakeTracker) signal() bool {
	if !h.fsm.Can(eventAccountInvalidate) {
		return false
	}
	if err := h.fsm.Event(context.Background(), eventAccountInvalidate); err != nil {
		return false
	}
	close(h.ready)
	return true
}

func (h *handshakeTracker) state() string {
	return h.fsm.Current()
}

// Ready is closed once the handshake completes.
func (h *handshakeTracker) Ready() <-chan struct{} {
	return h.ready
}
