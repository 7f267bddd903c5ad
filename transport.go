package tmi

import "context"

// A Transport carries newline-delimited protocol lines over a persistent
// connection. The client owns exactly one live transport at a time and
// replaces it on every connection attempt.
//
// Implementations deliver inbound lines in arrival order on the Recv
// channel and close it when the connection drops, however that happens.
type Transport interface {
	// Dial opens the connection. It must be called before Send or Recv.
	Dial(ctx context.Context) error

	// Send writes one line. The line terminator is added by the transport.
	Send(line string) error

	// Recv returns the inbound line channel, closed on disconnect.
	Recv() <-chan string

	// Close tears the connection down. Safe to call more than once.
	Close() error
}
