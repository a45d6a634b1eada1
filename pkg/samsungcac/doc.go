// Package samsungcac provides a client for Samsung air conditioning
// controllers (MIM-H02 and compatible) that speak the line-delimited XML
// control protocol over TLS.
//
// # Basic Usage
//
//	ctx := context.Background()
//	client, err := samsungcac.NewClient("192.168.1.50")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	if _, err := client.Login(ctx, token); err != nil {
//	    log.Fatal(err)
//	}
//	devices, err := client.DeviceList(ctx, 1, 1, "ALL")
//
// A token is obtained once with GetToken. The call completes after the
// user presses the power button on the controller.
//
// # Configuration
//
// The client can be configured using functional options:
//
//	client, err := samsungcac.NewClient("192.168.1.50",
//	    samsungcac.WithPort(2878),
//	    samsungcac.WithConnectTimeout(5*time.Second),
//	    samsungcac.WithLogger(zap.NewExample()),
//	)
//
// # Requests and updates
//
// The protocol has no request identifiers, so only one request may be in
// flight per connection. A second concurrent call fails with
// ErrRequestInFlight. Unsolicited device updates arrive on the same
// stream and are published through DeviceUpdated.
//
// Requests wait until the controller replies or ctx is done; use
// WithRequestTimeout to apply a default bound. A reply that arrives after
// its request gave up is dropped when it does not fit the request now
// pending: a different Type, or a DeviceState reply for another DUID.
// Responses of a Type the client does not know still go to the pending
// request, which then fails with ErrUnexpectedResponse.
//
// Replies and updates are applied in the order they arrive: a
// DeviceList reply rebuilds the device list and a DeviceState reply
// merges into the device before the next frame is read.
//
// # Protocol
//
// The controller listens on TCP port 2878 and presents a self-signed
// certificate that is not verified.
package samsungcac
