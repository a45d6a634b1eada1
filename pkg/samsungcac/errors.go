package samsungcac

import "errors"

var (
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyConnected   = errors.New("already connected")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrRequestInFlight    = errors.New("another request is already in flight")
	ErrUnknownDevice      = errors.New("unknown device")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrUnknownRoot        = errors.New("unknown root element")
)
