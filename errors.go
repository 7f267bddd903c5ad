package tmi

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoConnection is returned if you try to do something requiring a
// connection, but there is none.
var ErrNoConnection = errors.New("tmi: no connection")

// ErrNotAuthenticated is returned by Say, Whisper and Broadcast when the
// client uses an anonymous identity. No wire line is sent.
var ErrNotAuthenticated = errors.New("tmi: not authenticated")

// ErrNoTokenRefresher is returned when an authentication failure occurs and
// no Config.OnAuthenticationFailure callback was supplied.
var ErrNoTokenRefresher = errors.New("tmi: no credential refresh callback")

// ErrConnectSuperseded is returned from Connect when the attempt it was
// waiting on is discarded by a Reconnect before completing.
var ErrConnectSuperseded = errors.New("tmi: connection attempt superseded")

// A TimeoutError is returned when connect, join, say or a moderation command
// exceeds its deadline. It is recoverable; the caller decides whether to
// retry.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (err *TimeoutError) Error() string {
	return fmt.Sprintf("tmi: %s timed out after %s", err.Op, err.After)
}

// Timeout reports true so the error satisfies net.Error-style checks.
func (err *TimeoutError) Timeout() bool { return true }

// An AuthenticationError is terminal for the connect cycle that produced it.
// It wraps the server rejection or the failed credential refresh.
type AuthenticationError struct {
	Err error
}

func (err *AuthenticationError) Error() string {
	return fmt.Sprintf("tmi: authentication failed: %s", err.Err)
}

func (err *AuthenticationError) Unwrap() error { return err.Err }

// A ParseError is surfaced on the diagnostic event channel when an inbound
// line cannot be matched to its expected shape. It never terminates the
// connection and is never returned from the dispatch path.
type ParseError struct {
	Raw string
	Err error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("tmi: cannot parse %q: %s", err.Raw, err.Err)
}

func (err *ParseError) Unwrap() error { return err.Err }
