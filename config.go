package tmi

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// The Config for a chat client.
type Config struct {
	// Username is the login name. Leave empty for a generated anonymous
	// identity; anonymous clients can read but not send.
	Username string `json:"username"`

	// Token is the OAuth token. The "oauth:" prefix is added if missing.
	Token string

	// IsKnownBot and IsVerifiedBot raise the outbound message quota to the
	// corresponding weight class.
	IsKnownBot    bool `json:"isKnownBot"`
	IsVerifiedBot bool `json:"isVerifiedBot"`

	// ServerAddr is the WebSocket URL of the chat gateway. By default it's
	// DefaultServerAddr.
	ServerAddr string `json:"serverAddr"`

	// ConnectionTimeout bounds a single connection attempt, and doubles as
	// the delay before retrying after a credential refresh.
	ConnectionTimeout time.Duration `json:"connectionTimeout"`

	// JoinTimeout bounds a join waiting for its state confirmations.
	JoinTimeout time.Duration `json:"joinTimeout"`

	// CommandTimeout bounds a say or moderation command waiting for its
	// confirmation event.
	CommandTimeout time.Duration `json:"commandTimeout"`

	// KeepAliveTimeout is how long the inbound side may stay idle before
	// the client sends its own PING.
	KeepAliveTimeout time.Duration `json:"keepAliveTimeout"`

	// QueueTick is the period of the outbound queue's quota window.
	QueueTick time.Duration `json:"queueTick"`

	// NamesModsThreshold overrides the NAMES list length above which the
	// reply is classified as a moderator list. See DefaultNamesModsThreshold
	// for why this is a heuristic.
	NamesModsThreshold int `json:"namesModsThreshold"`

	// OnAuthenticationFailure supplies a fresh token after the server
	// rejects the current one. Leaving it nil makes authentication failures
	// terminal immediately.
	OnAuthenticationFailure func(ctx context.Context) (string, error) `json:"-"`

	// Dial overrides the transport factory, e.g. for tests. By default the
	// client dials ServerAddr over WebSocket.
	Dial func(config Config) Transport `json:"-"`

	// Logger receives structured connection and dispatch diagnostics. A
	// zero Logger stays silent.
	Logger zerolog.Logger `json:"-"`
}

// WithDefaults returns the config with the default values.
func (config Config) WithDefaults() Config {
	if config.Username == "" {
		config.Username = AnonymousUsernamePrefix + strconv.Itoa(80000+rand.Intn(1000))
	}
	config.Username = strings.ToLower(config.Username)

	if config.Token != "" && !strings.HasPrefix(config.Token, "oauth:") {
		config.Token = "oauth:" + config.Token
	}

	if config.ServerAddr == "" {
		config.ServerAddr = DefaultServerAddr
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = DefaultConnectionTimeout
	}
	if config.JoinTimeout <= 0 {
		config.JoinTimeout = DefaultJoinTimeout
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = DefaultCommandTimeout
	}
	if config.KeepAliveTimeout <= 0 {
		config.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if config.QueueTick <= 0 {
		config.QueueTick = DefaultQueueTick
	}
	if config.NamesModsThreshold <= 0 {
		config.NamesModsThreshold = DefaultNamesModsThreshold
	}

	return config
}

// IsAnonymous returns true for generated and explicit justinfan identities.
func (config Config) IsAnonymous() bool {
	return strings.HasPrefix(strings.ToLower(config.Username), AnonymousUsernamePrefix)
}

// rateLimit is the per-minute quota of the configured identity's weight
// class. Moderator status is per channel and handled at send time.
func (config Config) rateLimit() int {
	switch {
	case config.IsVerifiedBot:
		return RateLimitVerifiedBot
	case config.IsKnownBot:
		return RateLimitKnownBot
	default:
		return RateLimitUser
	}
}

// sanitizeChannel normalizes a channel name to its canonical #-prefixed,
// lower-cased form.
func sanitizeChannel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "#"
	}
	if !strings.HasPrefix(name, "#") {
		return "#" + name
	}

	return name
}
