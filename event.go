package tmi

import (
	"strings"
	"time"

	"github.com/gissleh/tmi/twitch"
)

// An Event is a single parsed chat line, or a client lifecycle notification.
// It is built once on the client's dispatch goroutine and must be treated as
// read-only by handlers.
type Event struct {
	// Raw is the original wire line. Empty for client lifecycle events.
	Raw string

	// Time is the server timestamp when the line carried one, wall clock
	// otherwise.
	Time time.Time

	// Command is the protocol verb, with the NAMES numerics translated to
	// their symbolic names.
	Command string

	// Event is the derived sub-classification used for routing, such as a
	// NOTICE's upper-cased msg-id or MOD_GAINED for a MODE line. Empty when
	// the command has no sub-event.
	Event string

	// Channel is the #-prefixed channel, or "" for unscoped events.
	Channel string

	// Tags is the coerced tag collection. nil when the line had no tags.
	Tags twitch.Set

	// Message is the trailing free-text parameter, if any.
	Message string

	// Username is the acting user, extracted per command.
	Username string

	// IsSelf is true when Username matches the client's own identity.
	IsSelf bool

	// Err carries the ParseError on PARSE_ERROR_ENCOUNTERED events.
	Err error

	// Membership fields.
	Usernames []string // NAMES
	ListType  string   // NAMES: "mods" or "chatters"
	Mods      []string // NOTICE room_mods

	// MODE fields.
	IsModerator bool

	// CLEARCHAT fields.
	BanReason   string
	BanDuration int

	// HOSTTARGET fields.
	NumberOfViewers int

	// PRIVMSG fields.
	Bits int

	// USERNOTICE fields.
	SystemMessage        string
	Months               int
	SubPlan              string
	SubPlanName          string
	RecipientDisplayName string
	RecipientID          string
	RecipientUsername    string
	RaiderDisplayName    string
	RaiderUsername       string
	RaiderViewerCount    int
	RitualName           string
}

// NewEvent makes an event with Command, Event and Time set.
func NewEvent(command, subEvent string) *Event {
	return &Event{
		Command: command,
		Event:   subEvent,
		Time:    time.Now(),
	}
}

// Name is the full hierarchical event name: Command, Event and Channel
// joined by slashes, skipping empty parts, e.g. "PRIVMSG/CHEER/#dallas".
func (event *Event) Name() string {
	return strings.Join(event.nameParts(), "/")
}

// nameParts returns the non-empty hierarchy levels of the event name. The
// bare "#" channel used by unscoped lines does not count as a level.
func (event *Event) nameParts() []string {
	parts := make([]string, 0, 3)

	if event.Command != "" {
		parts = append(parts, event.Command)
	}
	if event.Event != "" {
		parts = append(parts, event.Event)
	}
	if event.Channel != "" && event.Channel != "#" {
		parts = append(parts, event.Channel)
	}

	return parts
}
