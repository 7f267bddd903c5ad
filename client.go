// Package tmi implements a client for the Twitch chat gateway: the
// IRC-derived line protocol over WebSocket, with tag coercion, hierarchical
// event dispatch, per-channel state tracking and a rate-limited outbound
// queue that honors the server's per-minute message quotas.
package tmi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gissleh/tmi/queue"
	"github.com/gissleh/tmi/twitch"
	"github.com/gissleh/tmi/wsconn"
)

// ReadyState is the connection lifecycle phase.
type ReadyState int32

const (
	Uninitialized ReadyState = 0
	Connecting    ReadyState = 1
	RetryPending  ReadyState = 2
	Connected     ReadyState = 3
	Disconnected  ReadyState = 5
)

func (state ReadyState) String() string {
	switch state {
	case Uninitialized:
		return "uninitialized"
	case Connecting:
		return "connecting"
	case RetryPending:
		return "retry-pending"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// A Client is a chat client. You need to use New to construct it.
type Client struct {
	id  string
	log zerolog.Logger

	mu        sync.RWMutex
	config    Config
	state     ReadyState
	attempts  int
	pending   *connectAttempt
	transport Transport
	identity  *twitch.UserState
	lastRecv  time.Time
	lastPing  time.Time

	dispatcher *dispatcher
	correlator *correlator
	channels   *channelStore
	sendQueue  *queue.Queue

	events chan *Event
	ctx    context.Context
	cancel context.CancelFunc
}

// A connectAttempt is the shared record of one in-flight connection cycle.
// Concurrent Connect calls wait on the same attempt.
type connectAttempt struct {
	confirm     chan handshakeResult
	handshaking bool

	done  chan struct{}
	event *Event
	err   error
}

type handshakeResult struct {
	event *Event
	err   error
}

func (attempt *connectAttempt) wait(ctx context.Context) (*Event, error) {
	select {
	case <-attempt.done:
		return attempt.event, attempt.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finish records the outcome and releases every Connect call waiting on the
// attempt. Each attempt finishes exactly once.
func (attempt *connectAttempt) finish(event *Event, err error) {
	attempt.event = event
	attempt.err = err
	close(attempt.done)
}

// New creates a new client. The context can be context.Background if you
// want to manually tear down clients upon quitting.
func New(ctx context.Context, config Config) *Client {
	config = config.WithDefaults()

	d := newDispatcher()
	client := &Client{
		id:         uuid.NewString(),
		log:        config.Logger.With().Str("username", config.Username).Logger(),
		config:     config,
		state:      Uninitialized,
		dispatcher: d,
		correlator: newCorrelator(d),
		channels:   newChannelStore(),
		events:     make(chan *Event, 64),
	}

	client.ctx, client.cancel = context.WithCancel(ctx)

	client.sendQueue = queue.New(queue.Options{
		TickInterval: config.QueueTick,
		MaxPerTick:   queue.PerTickAllowance(config.rateLimit(), config.QueueTick),
		OnDrain: func() {
			client.log.Debug().Msg("send queue drained")
		},
	})

	go client.run()

	return client
}

// ID gets the unique identifier for the client, which could be used in data
// structures.
func (c *Client) ID() string { return c.id }

// Username gets the client's login name.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.config.Username
}

// IsAnonymous returns true when the client cannot authenticate.
func (c *Client) IsAnonymous() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.config.IsAnonymous()
}

// ReadyState gets the connection lifecycle phase.
func (c *Client) ReadyState() ReadyState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// ConnectionAttempts counts attempts since the last successful connect. The
// client retries without bound; callers wanting their own policy watch this.
func (c *Client) ConnectionAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.attempts
}

// GlobalUserState returns the client's own identity tags, once established.
func (c *Client) GlobalUserState() (twitch.UserState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.identity == nil {
		return twitch.UserState{}, false
	}

	return *c.identity, true
}

// ChannelState returns the tracked state of a joined channel.
func (c *Client) ChannelState(channel string) (ChannelState, bool) {
	return c.channels.Get(sanitizeChannel(channel))
}

// Channels lists the joined channels.
func (c *Client) Channels() []string {
	return c.channels.Names()
}

// On subscribes a handler to an event name; see Event.Name for the
// hierarchy. It returns a function that removes the subscription.
func (c *Client) On(name string, fn Handler) (off func()) {
	return c.dispatcher.On(name, fn)
}

// Once subscribes a handler for a single delivery.
func (c *Client) Once(name string, fn Handler) (off func()) {
	return c.dispatcher.Once(name, fn)
}

// Connect dials, authenticates and waits for the server's post-auth
// confirmation, which it returns. If an attempt is already in flight the
// same pending result is shared; no second transport is opened.
//
// Failed attempts retry without bound. An authentication rejection first
// runs Config.OnAuthenticationFailure and retries one connection-timeout
// later with the fresh token; if the refresh itself fails, Connect returns
// an AuthenticationError and the cycle ends.
func (c *Client) Connect(ctx context.Context) (*Event, error) {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil, nil
	}
	if c.pending != nil {
		attempt := c.pending
		c.mu.Unlock()
		return attempt.wait(ctx)
	}

	attempt := &connectAttempt{
		confirm: make(chan handshakeResult, 1),
		done:    make(chan struct{}),
	}
	c.pending = attempt
	c.state = Connecting
	c.mu.Unlock()

	go c.runConnect(attempt)

	return attempt.wait(ctx)
}

// runConnect drives one connect cycle to success or terminal failure. Only
// the attempt stored in c.pending may mutate the ready state; a cycle
// discarded by Reconnect finishes its waiters and exits without touching it.
func (c *Client) runConnect(attempt *connectAttempt) {
	for {
		c.mu.Lock()
		if c.pending != attempt {
			c.mu.Unlock()
			attempt.finish(nil, ErrConnectSuperseded)
			return
		}
		c.attempts++
		c.state = Connecting
		config := c.config
		c.mu.Unlock()

		event, err := c.attemptOnce(attempt, config)

		c.mu.Lock()
		if c.pending != attempt {
			// Discarded by Reconnect while the attempt was in flight; a newer
			// cycle owns the transport and the ready state now.
			c.mu.Unlock()
			attempt.finish(nil, ErrConnectSuperseded)
			return
		}
		if err == nil {
			c.state = Connected
			c.attempts = 0
			c.pending = nil
			c.mu.Unlock()

			// Replay the confirmation through the normal dispatch path so
			// subscribers observe it exactly once.
			c.emit(event)
			c.emit(NewEvent(EventConnected, ""))

			attempt.finish(event, nil)
			return
		}
		c.state = RetryPending
		c.mu.Unlock()

		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			failure := NewEvent(EventAuthenticationFailed, "")
			failure.Err = authErr
			c.emit(failure)

			if terminal := c.refreshCredentials(config); terminal != nil {
				c.log.Error().Err(terminal).Msg("connection failed")

				c.mu.Lock()
				if c.pending == attempt {
					c.pending = nil
					c.state = Disconnected
				}
				c.mu.Unlock()

				attempt.finish(nil, terminal)
				return
			}

			c.log.Info().Dur("wait", config.ConnectionTimeout).Msg("token refreshed, retrying")
			select {
			case <-time.After(config.ConnectionTimeout):
			case <-c.ctx.Done():
				attempt.finish(nil, c.ctx.Err())
				return
			}
			continue
		}

		c.log.Info().Err(err).Msg("retrying")

		// A refused dial returns fast; pace the retries.
		select {
		case <-time.After(time.Second):
		case <-c.ctx.Done():
			attempt.finish(nil, c.ctx.Err())
			return
		}
	}
}

// refreshCredentials runs the credential-refresh callback and stores the new
// token. A nil return means the cycle may retry; anything else is terminal.
func (c *Client) refreshCredentials(config Config) error {
	refresh := config.OnAuthenticationFailure
	if refresh == nil {
		return &AuthenticationError{Err: ErrNoTokenRefresher}
	}

	token, err := refresh(c.ctx)
	if err != nil {
		return &AuthenticationError{Err: err}
	}

	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	c.mu.Lock()
	c.config.Token = token
	c.mu.Unlock()

	return nil
}

// attemptOnce opens a transport, performs the handshake and waits for the
// confirmation event, all within the connection timeout.
func (c *Client) attemptOnce(attempt *connectAttempt, config Config) (*Event, error) {
	transport := c.newTransport(config)

	ctx, cancel := context.WithTimeout(c.ctx, config.ConnectionTimeout)
	defer cancel()

	if err := transport.Dial(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: "connect", After: config.ConnectionTimeout}
		}
		return nil, err
	}

	c.mu.Lock()
	old := c.transport
	c.transport = transport
	attempt.handshaking = true
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	go c.readLoop(transport)

	transport.Send("CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership")
	if config.Token != "" && !config.IsAnonymous() {
		transport.Send("PASS " + config.Token)
	}
	transport.Send("NICK " + config.Username)

	defer func() {
		c.mu.Lock()
		attempt.handshaking = false
		c.mu.Unlock()
	}()

	select {
	case result := <-attempt.confirm:
		if result.err != nil {
			transport.Close()
			return nil, result.err
		}
		return result.event, nil
	case <-ctx.Done():
		transport.Close()
		return nil, &TimeoutError{Op: "connect", After: config.ConnectionTimeout}
	}
}

func (c *Client) newTransport(config Config) Transport {
	if config.Dial != nil {
		return config.Dial(config)
	}

	return wsconn.New(config.ServerAddr, c.log)
}

// Reconnect discards any in-flight attempt, tears the transport down,
// connects again and re-joins every channel that was joined before the
// call. Channel state is rebuilt from the fresh join sequence. Optional
// updates mutate the config first, e.g. to install a new token.
func (c *Client) Reconnect(ctx context.Context, updates ...func(*Config)) error {
	channels := c.channels.Names()

	c.mu.Lock()
	for _, update := range updates {
		update(&c.config)
	}
	c.config = c.config.WithDefaults()
	c.pending = nil
	c.state = RetryPending
	transport := c.transport
	c.transport = nil
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}

	if _, err := c.Connect(ctx); err != nil {
		return err
	}

	for _, channel := range channels {
		if _, err := c.Join(ctx, channel); err != nil {
			return err
		}
	}

	return nil
}

// Join normalizes the channel name, connects if necessary, sends JOIN and
// waits for the channel-scoped room-state confirmation, plus the user-state
// confirmation unless the client is anonymous. The combined state is stored
// and returned. On timeout no channel state is created.
func (c *Client) Join(ctx context.Context, channel string) (*ChannelState, error) {
	channel = sanitizeChannel(channel)

	c.mu.RLock()
	config := c.config
	c.mu.RUnlock()

	roomReply := c.correlator.expect(channel, CmdRoomState)
	var userReply *pendingReply
	if !config.IsAnonymous() {
		userReply = c.correlator.expect(channel, CmdUserState)
	}

	fail := func(err error) (*ChannelState, error) {
		c.correlator.drop(roomReply)
		if userReply != nil {
			c.correlator.drop(userReply)
		}
		return nil, err
	}

	if _, err := c.Connect(ctx); err != nil {
		return fail(err)
	}

	c.sendQueued("JOIN "+channel, c.weightFor(channel))

	timer := time.NewTimer(config.JoinTimeout)
	defer timer.Stop()

	state := ChannelState{Name: channel}

	select {
	case event := <-roomReply.ch:
		state.RoomState = twitch.ParseRoomState(event.Tags)
	case <-timer.C:
		return fail(&TimeoutError{Op: "join " + channel, After: config.JoinTimeout})
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	if userReply != nil {
		select {
		case event := <-userReply.ch:
			userState := twitch.ParseUserState(event.Tags)
			state.UserState = &userState
		case <-timer.C:
			return fail(&TimeoutError{Op: "join " + channel, After: config.JoinTimeout})
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}

	c.channels.Set(state)
	c.log.Info().Str("channel", channel).Msg("joined")

	return &state, nil
}

// Part removes the channel state immediately and sends PART, without
// waiting for server confirmation.
func (c *Client) Part(channel string) {
	channel = sanitizeChannel(channel)

	c.channels.Remove(channel)
	c.sendQueued("PART "+channel, c.weightFor(channel))
	c.log.Info().Str("channel", channel).Msg("parting")
}

// Say sends a message or slash-command to a channel and waits for the
// confirmation event(s) appropriate to it: plain chat resolves on the
// channel's USERSTATE echo, moderation commands on their success or
// already-in-that-state NOTICE. Commands with no reliable confirmation
// resolve immediately with a nil event.
//
// Anonymous clients fail immediately; no wire line is sent.
func (c *Client) Say(ctx context.Context, channel, message string, args ...string) (*Event, error) {
	channel = sanitizeChannel(channel)

	c.mu.RLock()
	config := c.config
	c.mu.RUnlock()

	if config.IsAnonymous() {
		return nil, ErrNotAuthenticated
	}

	if len(args) > 0 {
		message += " " + strings.Join(args, " ")
	}

	names, onSend := commandConfirmations(message)

	var reply *pendingReply
	if !onSend {
		reply = c.correlator.expect(channel, names...)
	}

	c.sendQueued("PRIVMSG "+channel+" :"+message, c.weightFor(channel))
	c.log.Debug().Str("channel", channel).Str("message", message).Msg("say")

	if onSend {
		return nil, nil
	}

	return c.correlator.await(ctx, reply, "say "+channel, config.CommandTimeout)
}

// Whisper sends a direct message to another user. There is no confirmation
// event; the call resolves once the line is queued.
func (c *Client) Whisper(user, message string) error {
	c.mu.RLock()
	config := c.config
	c.mu.RUnlock()

	if config.IsAnonymous() {
		return ErrNotAuthenticated
	}

	c.sendQueued("WHISPER :/w "+strings.ToLower(user)+" "+message, c.weightFor(""))

	return nil
}

// Broadcast says a message to every joined channel.
func (c *Client) Broadcast(ctx context.Context, message string) error {
	if c.IsAnonymous() {
		return ErrNotAuthenticated
	}

	for _, channel := range c.channels.Names() {
		if _, err := c.Say(ctx, channel, message); err != nil {
			return err
		}
	}

	return nil
}

// Send sends a raw line through the rate-limited queue.
func (c *Client) Send(line string) {
	c.sendQueued(line, c.weightFor(""))
}

// Disconnect closes the transport without waiting for acknowledgement. The
// DISCONNECTED event fires once the read side observes the closure.
func (c *Client) Disconnect() error {
	c.mu.RLock()
	transport := c.transport
	c.mu.RUnlock()

	if transport == nil {
		return ErrNoConnection
	}

	return transport.Close()
}

// Destroy disconnects and stops the client's goroutines. Cancelling the
// parent context does the same.
func (c *Client) Destroy() {
	c.Disconnect()
	c.sendQueue.Stop()
	c.cancel()
}

// weightFor is the per-tick send allowance for the acting identity in the
// channel: the configured weight class, or the moderator class when the
// tracked user state says so.
func (c *Client) weightFor(channel string) int {
	c.mu.RLock()
	config := c.config
	c.mu.RUnlock()

	perMinute := config.rateLimit()
	if channel != "" && c.channels.IsModerator(channel) && perMinute < RateLimitModerator {
		perMinute = RateLimitModerator
	}

	return queue.PerTickAllowance(perMinute, config.QueueTick)
}

func (c *Client) sendQueued(line string, weight int) {
	c.sendQueue.Push(queue.Task{
		MaxPerTick: weight,
		Fn: func() {
			c.sendNow(line)
		},
	})
}

// sendNow writes directly to the transport, bypassing the queue. Failed
// sends are dropped quietly so a dead connection doesn't back up a fresh
// one.
func (c *Client) sendNow(line string) {
	c.mu.RLock()
	transport := c.transport
	c.mu.RUnlock()

	if transport == nil {
		c.log.Debug().Str("line", line).Msg("dropped send, no connection")
		return
	}

	if err := transport.Send(line); err != nil {
		c.log.Debug().Err(err).Str("line", line).Msg("dropped send")
	}
}

// emit feeds an event to the dispatch goroutine.
func (c *Client) emit(event *Event) {
	select {
	case c.events <- event:
	case <-c.ctx.Done():
	}
}

// run is the dispatch goroutine: it owns event ordering, all channel-state
// mutation, and the keep-alive timer.
func (c *Client) run() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			c.handleEvent(event)
			c.dispatcher.dispatch(event)
		case <-ticker.C:
			c.keepAlive()
		case <-c.ctx.Done():
			return
		}
	}
}

// keepAlive pings the server when the inbound side has been idle too long.
func (c *Client) keepAlive() {
	c.mu.RLock()
	idle := time.Since(c.lastRecv)
	sincePing := time.Since(c.lastPing)
	connected := c.state == Connected
	timeout := c.config.KeepAliveTimeout
	c.mu.RUnlock()

	if !connected || idle < timeout || sincePing < timeout {
		return
	}

	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()

	c.sendNow("PING :tmi.twitch.tv")
}

// readLoop parses inbound lines from one transport and feeds the dispatch
// goroutine. Parse failures become diagnostic events; they never terminate
// the connection.
func (c *Client) readLoop(transport Transport) {
	c.mu.RLock()
	threshold := c.config.NamesModsThreshold
	c.mu.RUnlock()

	for line := range transport.Recv() {
		c.mu.Lock()
		c.lastRecv = time.Now()
		c.mu.Unlock()

		event, err := parseLine(line, threshold)
		if err != nil {
			parseErr := &ParseError{Raw: line, Err: err}
			c.log.Warn().Err(parseErr).Msg("dropped line")

			diagnostic := NewEvent(EventParseError, "")
			diagnostic.Raw = line
			diagnostic.Err = parseErr
			c.emit(diagnostic)
			continue
		}

		if event.Command == CmdPing {
			reply := "PONG"
			if event.Message != "" {
				reply += " :" + event.Message
			}
			transport.Send(reply)
		}

		if c.interceptHandshake(event, transport) {
			continue
		}

		c.emit(event)
	}

	// Only the current transport's closure counts as a disconnect; stale
	// transports from replaced attempts go quietly.
	c.mu.Lock()
	current := c.transport == transport
	if current {
		c.transport = nil
	}
	c.mu.Unlock()

	if current {
		c.emit(NewEvent(EventDisconnected, ""))
	}
}

// interceptHandshake routes connection-confirmation and auth-failure events
// to the in-flight attempt instead of the dispatch path. The confirmation
// is replayed through dispatch by runConnect once the attempt succeeds.
func (c *Client) interceptHandshake(event *Event, transport Transport) bool {
	c.mu.RLock()
	attempt := c.pending
	config := c.config
	current := c.transport == transport
	handshaking := attempt != nil && attempt.handshaking
	c.mu.RUnlock()

	if !handshaking || !current {
		return false
	}

	switch {
	case event.Command == CmdGlobalUserState:
		attempt.confirm <- handshakeResult{event: event}
		return true
	case event.Command == numericMOTDEnd && config.IsAnonymous():
		attempt.confirm <- handshakeResult{event: event}
		return true
	case event.Command == CmdNotice && event.Event == EventAuthenticationFailed:
		attempt.confirm <- handshakeResult{err: &AuthenticationError{Err: errors.New(event.Message)}}
		return true
	}

	return false
}

// handleEvent applies state side effects before the event is dispatched.
// It runs on the dispatch goroutine, so mutations are observed in event
// order.
func (c *Client) handleEvent(event *Event) {
	if event.Username != "" {
		event.IsSelf = event.Username == c.Username()
	}

	switch event.Command {
	case CmdGlobalUserState:
		identity := twitch.ParseUserState(event.Tags)
		c.mu.Lock()
		c.identity = &identity
		c.mu.Unlock()

	case CmdRoomState:
		c.channels.ApplyRoomState(event.Channel, event.Tags)

	case CmdUserState:
		c.channels.ApplyUserState(event.Channel, event.Tags)

	case CmdMode:
		if event.IsSelf {
			c.channels.SetModerator(event.Channel, event.IsModerator)
		}

	case CmdReconnect:
		c.log.Info().Msg("server requested reconnect")
		go func() {
			if err := c.Reconnect(c.ctx); err != nil {
				c.log.Error().Err(err).Msg("server-requested reconnect failed")
			}
		}()

	case EventDisconnected:
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		c.channels.Clear()
		c.log.Info().Msg("disconnected")
	}
}
