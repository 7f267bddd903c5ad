package tmi

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// NOTICE msg-ids that confirm or reject slash-commands. The names match the
// upper-cased msg-id values the server sends.
const (
	EventAlreadyBanned      = "ALREADY_BANNED"
	EventAlreadyEmoteOnlyOn = "ALREADY_EMOTE_ONLY_ON"
	EventAlreadyEmoteOff    = "ALREADY_EMOTE_ONLY_OFF"
	EventAlreadyR9KOn       = "ALREADY_R9K_ON"
	EventAlreadyR9KOff      = "ALREADY_R9K_OFF"
	EventAlreadySubsOn      = "ALREADY_SUBS_ON"
	EventAlreadySubsOff     = "ALREADY_SUBS_OFF"
	EventBadModMod          = "BAD_MOD_MOD"
	EventBadUnbanNoBan      = "BAD_UNBAN_NO_BAN"
	EventBadUnmodMod        = "BAD_UNMOD_MOD"
	EventBanSuccess         = "BAN_SUCCESS"
	EventColorChanged       = "COLOR_CHANGED"
	EventCommercialSuccess  = "COMMERCIAL_SUCCESS"
	EventEmoteOnlyOn        = "EMOTE_ONLY_ON"
	EventEmoteOnlyOff       = "EMOTE_ONLY_OFF"
	EventFollowersOn        = "FOLLOWERS_ON"
	EventFollowersOnZero    = "FOLLOWERS_ON_ZERO"
	EventFollowersOff       = "FOLLOWERS_OFF"
	EventModSuccess         = "MOD_SUCCESS"
	EventR9KOn              = "R9K_ON"
	EventR9KOff             = "R9K_OFF"
	EventSlowOn             = "SLOW_ON"
	EventSlowOff            = "SLOW_OFF"
	EventSubsOn             = "SUBS_ON"
	EventSubsOff            = "SUBS_OFF"
	EventTimeoutSuccess     = "TIMEOUT_SUCCESS"
	EventUnbanSuccess       = "UNBAN_SUCCESS"
	EventUnmodSuccess       = "UNMOD_SUCCESS"
	EventUnraidSuccess      = "UNRAID_SUCCESS"
)

// commandConfirmations maps a slash-command to the event names that resolve
// it. The second return is true for commands with no reliable confirmation;
// those resolve as soon as the line is queued. Plain chat resolves on the
// channel's USERSTATE echo.
func commandConfirmations(message string) (names []string, onSend bool) {
	if !strings.HasPrefix(message, "/") {
		return []string{CmdUserState}, false
	}

	command, _, _ := strings.Cut(message[1:], " ")

	notice := func(events ...string) []string {
		names := make([]string, 0, len(events))
		for _, event := range events {
			names = append(names, CmdNotice+"/"+event)
		}
		return names
	}

	switch strings.ToLower(command) {
	case "ban":
		return notice(EventBanSuccess, EventAlreadyBanned), false
	case "clear":
		return []string{CmdClearChat}, false
	case "color":
		return notice(EventColorChanged), false
	case "commercial":
		return notice(EventCommercialSuccess), false
	case "emoteonly":
		return notice(EventEmoteOnlyOn, EventAlreadyEmoteOnlyOn), false
	case "emoteonlyoff":
		return notice(EventEmoteOnlyOff, EventAlreadyEmoteOff), false
	case "followers":
		return notice(EventFollowersOn, EventFollowersOnZero), false
	case "followersoff":
		return notice(EventFollowersOff), false
	case "host":
		return notice(EventHostOn), false
	case "unhost":
		return notice(EventHostOff), false
	case "mod":
		return notice(EventModSuccess, EventBadModMod), false
	case "unmod":
		return notice(EventUnmodSuccess, EventBadUnmodMod), false
	case "mods":
		return notice(EventRoomMods), false
	case "r9kbeta":
		return notice(EventR9KOn, EventAlreadyR9KOn), false
	case "r9kbetaoff":
		return notice(EventR9KOff, EventAlreadyR9KOff), false
	case "slow":
		return notice(EventSlowOn), false
	case "slowoff":
		return notice(EventSlowOff), false
	case "subscribers":
		return notice(EventSubsOn, EventAlreadySubsOn), false
	case "subscribersoff":
		return notice(EventSubsOff, EventAlreadySubsOff), false
	case "timeout":
		return notice(EventTimeoutSuccess), false
	case "unban":
		return notice(EventUnbanSuccess, EventBadUnbanNoBan), false
	case "unraid":
		return notice(EventUnraidSuccess), false
	case "marker", "raid", "delete", "w":
		// No confirmation the server reliably sends back.
		return nil, true
	default:
		return []string{CmdUserState}, false
	}
}

// Ban permanently bans a user from the channel.
func (c *Client) Ban(ctx context.Context, channel, username string) (*Event, error) {
	return c.Say(ctx, channel, "/ban", username)
}

// Unban lifts a permanent ban.
func (c *Client) Unban(ctx context.Context, channel, username string) (*Event, error) {
	return c.Say(ctx, channel, "/unban", username)
}

// Timeout times a user out. A zero duration uses the server default.
func (c *Client) Timeout(ctx context.Context, channel, username string, duration time.Duration) (*Event, error) {
	if duration > 0 {
		seconds := int(duration / time.Second)
		return c.Say(ctx, channel, "/timeout", username, strconv.Itoa(seconds))
	}

	return c.Say(ctx, channel, "/timeout", username)
}

// Clear wipes the channel's chat history.
func (c *Client) Clear(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/clear")
}

// Color changes the client's username color.
func (c *Client) Color(ctx context.Context, channel, color string) (*Event, error) {
	return c.Say(ctx, channel, "/color", color)
}

// Commercial starts a commercial break of the given length in seconds.
func (c *Client) Commercial(ctx context.Context, channel string, seconds int) (*Event, error) {
	return c.Say(ctx, channel, "/commercial", strconv.Itoa(seconds))
}

// EmoteOnly restricts chat to emote-only messages.
func (c *Client) EmoteOnly(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/emoteonly")
}

// EmoteOnlyOff lifts emote-only mode.
func (c *Client) EmoteOnlyOff(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/emoteonlyoff")
}

// FollowersOnly restricts chat to followers of the given minimum age,
// e.g. "30m" or "1w". An empty age uses the server default.
func (c *Client) FollowersOnly(ctx context.Context, channel, age string) (*Event, error) {
	if age != "" {
		return c.Say(ctx, channel, "/followers", age)
	}

	return c.Say(ctx, channel, "/followers")
}

// FollowersOnlyOff lifts followers-only mode.
func (c *Client) FollowersOnlyOff(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/followersoff")
}

// Host hosts another channel.
func (c *Client) Host(ctx context.Context, channel, target string) (*Event, error) {
	return c.Say(ctx, channel, "/host", strings.TrimPrefix(sanitizeChannel(target), "#"))
}

// Unhost stops hosting.
func (c *Client) Unhost(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/unhost")
}

// Marker adds a stream marker at the current timestamp.
func (c *Client) Marker(ctx context.Context, channel, description string) (*Event, error) {
	if description != "" {
		return c.Say(ctx, channel, "/marker", description)
	}

	return c.Say(ctx, channel, "/marker")
}

// Me sends an action message ("/me slaps...").
func (c *Client) Me(ctx context.Context, channel, message string) (*Event, error) {
	return c.Say(ctx, channel, "/me", message)
}

// Mod grants moderator status to a user.
func (c *Client) Mod(ctx context.Context, channel, username string) (*Event, error) {
	return c.Say(ctx, channel, "/mod", username)
}

// Unmod revokes moderator status.
func (c *Client) Unmod(ctx context.Context, channel, username string) (*Event, error) {
	return c.Say(ctx, channel, "/unmod", username)
}

// Mods requests the channel's moderator list; the confirmation event
// carries it in Usernames.
func (c *Client) Mods(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/mods")
}

// R9K enables unique-message mode.
func (c *Client) R9K(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/r9kbeta")
}

// R9KOff lifts unique-message mode.
func (c *Client) R9KOff(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/r9kbetaoff")
}

// Raid raids another channel. There is no confirmation event.
func (c *Client) Raid(ctx context.Context, channel, target string) error {
	_, err := c.Say(ctx, channel, "/raid", strings.TrimPrefix(sanitizeChannel(target), "#"))
	return err
}

// Unraid cancels a pending raid.
func (c *Client) Unraid(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/unraid")
}

// Slow enables slow mode with the given per-message delay in seconds.
func (c *Client) Slow(ctx context.Context, channel string, seconds int) (*Event, error) {
	if seconds > 0 {
		return c.Say(ctx, channel, "/slow", strconv.Itoa(seconds))
	}

	return c.Say(ctx, channel, "/slow")
}

// SlowOff lifts slow mode.
func (c *Client) SlowOff(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/slowoff")
}

// Subscribers restricts chat to subscribers.
func (c *Client) Subscribers(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/subscribers")
}

// SubscribersOff lifts subscribers-only mode.
func (c *Client) SubscribersOff(ctx context.Context, channel string) (*Event, error) {
	return c.Say(ctx, channel, "/subscribersoff")
}

// Delete removes a single message by its id tag. There is no confirmation
// event.
func (c *Client) Delete(ctx context.Context, channel, messageID string) error {
	_, err := c.Say(ctx, channel, "/delete", messageID)
	return err
}
