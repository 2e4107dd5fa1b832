package xrpl

import "context"

// Stream defines a live ledger subscription over one connection.
type Stream interface {
	// Subscribe requests the named streams and waits for the server to accept.
	Subscribe(ctx context.Context, streams ...string) error

	// Next returns the next raw stream message, or the error that ended the stream.
	Next(ctx context.Context) ([]byte, error)

	// Close closes the connection.
	Close() error
}

// Dialer opens new Streams.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// WSDialer dials ledger node websockets.
type WSDialer struct {
	Endpoint string
	Config   *WSClientConfig
}

// Dial opens a websocket connection to the configured endpoint.
func (d WSDialer) Dial(ctx context.Context) (Stream, error) {
	return NewWSClient(ctx, d.Endpoint, d.Config)
}
