package tmi

import "time"

// DefaultServerAddr is the secure WebSocket endpoint for the Twitch chat
// gateway.
const DefaultServerAddr = "wss://irc-ws.chat.twitch.tv:443"

// AnonymousUsernamePrefix marks a read-only identity. Usernames starting
// with it never authenticate and cannot send messages.
const AnonymousUsernamePrefix = "justinfan"

// Timeouts and intervals. See Config for overriding them per client.
const (
	DefaultConnectionTimeout = 5 * time.Second
	DefaultJoinTimeout       = 1 * time.Second
	DefaultCommandTimeout    = 1 * time.Second
	DefaultKeepAliveTimeout  = 55 * time.Second
	DefaultQueueTick         = 1 * time.Second
)

// Per-minute message quotas enforced by the server, by weight class.
const (
	RateLimitUser        = 40
	RateLimitModerator   = 200
	RateLimitKnownBot    = 100
	RateLimitVerifiedBot = 15000
)

// DefaultNamesModsThreshold is the combined NAMES list length above which
// the list is classified as a moderator list rather than a chatter list.
// The server sends both through the 353 numeric; length is the only signal.
// Very large channels can misclassify, hence Config.NamesModsThreshold.
const DefaultNamesModsThreshold = 1000

// Protocol commands handled by the parser.
const (
	CmdClearChat       = "CLEARCHAT"
	CmdGlobalUserState = "GLOBALUSERSTATE"
	CmdHostTarget      = "HOSTTARGET"
	CmdJoin            = "JOIN"
	CmdMode            = "MODE"
	CmdNames           = "NAMES"
	CmdNamesEnd        = "NAMES_END"
	CmdNotice          = "NOTICE"
	CmdPart            = "PART"
	CmdPing            = "PING"
	CmdPong            = "PONG"
	CmdPrivmsg         = "PRIVMSG"
	CmdReconnect       = "RECONNECT"
	CmdRoomState       = "ROOMSTATE"
	CmdUserNotice      = "USERNOTICE"
	CmdUserState       = "USERSTATE"
	CmdWhisper         = "WHISPER"
)

// Numeric commands translated to symbolic ones before dispatch.
const (
	numericNames    = "353"
	numericNamesEnd = "366"
	numericMOTDEnd  = "376"
)

// Derived sub-events attached to parsed messages.
const (
	EventCheer            = "CHEER"
	EventHostOn           = "HOST_ON"
	EventHostOff          = "HOST_OFF"
	EventModGained        = "MOD_GAINED"
	EventModLost          = "MOD_LOST"
	EventUserBanned       = "USER_BANNED"
	EventRaid             = "RAID"
	EventResubscription   = "RESUBSCRIPTION"
	EventRitual           = "RITUAL"
	EventSubscription     = "SUBSCRIPTION"
	EventSubscriptionGift = "SUBSCRIPTION_GIFT"
	EventRoomMods         = "ROOM_MODS"
)

// Client lifecycle events, dispatched alongside protocol ones.
const (
	EventAll                  = "*"
	EventConnected            = "CONNECTED"
	EventDisconnected         = "DISCONNECTED"
	EventAuthenticationFailed = "AUTHENTICATION_FAILED"
	EventParseError           = "PARSE_ERROR_ENCOUNTERED"
)

// USERNOTICE msg-id values with specialized parsing.
const (
	msgIDRaid             = "raid"
	msgIDResubscription   = "resub"
	msgIDRitual           = "ritual"
	msgIDSubscription     = "sub"
	msgIDSubscriptionGift = "subgift"
)

// NOTICE msg-id with a moderator list in the message body.
const msgIDRoomMods = "room_mods"

// listTypeMods and listTypeChatters classify a NAMES reply.
const (
	ListTypeMods     = "mods"
	ListTypeChatters = "chatters"
)
