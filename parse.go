package tmi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/gissleh/tmi/twitch"
)

// ParseLine parses a raw tokenized chat line into an Event using the default
// NAMES classification threshold. The tokenizer (ircmsg) handles the line
// grammar; this function handles the per-command semantics.
func ParseLine(raw string) (*Event, error) {
	return parseLine(raw, DefaultNamesModsThreshold)
}

func parseLine(raw string, namesThreshold int) (*Event, error) {
	msg, err := ircmsg.ParseLine(raw)
	if err != nil {
		return nil, err
	}

	event := &Event{
		Raw:     raw,
		Time:    time.Now(),
		Command: msg.Command,
		Tags:    twitch.NewSet(msg.AllTags()),
	}

	if ts, ok := event.Tags.Int("tmi-sent-ts"); ok {
		event.Time = time.UnixMilli(int64(ts))
	}

	nick, _, _ := strings.Cut(msg.Source, "!")
	params := msg.Params

	if len(params) > 0 && strings.HasPrefix(params[0], "#") {
		event.Channel = params[0]
	}

	switch msg.Command {
	case CmdJoin, CmdPart:
		if nick == "" || event.Channel == "" {
			return nil, errors.New("missing sender or channel")
		}
		event.Username = nick

	case numericNames:
		// :x.tmi.twitch.tv 353 me = #channel :name1 name2
		if len(params) < 4 {
			return nil, errors.New("short NAMES reply")
		}

		names := params[len(params)-1]
		event.Command = CmdNames
		event.Channel = params[2]
		event.Username = params[0]
		event.Usernames = strings.Fields(names)
		if len(names) > namesThreshold {
			event.ListType = ListTypeMods
		} else {
			event.ListType = ListTypeChatters
		}

	case numericNamesEnd:
		if len(params) < 3 {
			return nil, errors.New("short NAMES end reply")
		}

		event.Command = CmdNamesEnd
		event.Username = params[0]
		event.Channel = params[1]
		event.Message = params[2]

	case CmdMode:
		// :jtv MODE #channel +o username
		if len(params) < 3 || len(params[1]) != 2 || params[1][1] != 'o' {
			return nil, errors.New("unexpected MODE shape")
		}

		event.Username = params[2]
		event.IsModerator = params[1][0] == '+'
		if event.IsModerator {
			event.Event = EventModGained
		} else {
			event.Event = EventModLost
		}

	case CmdGlobalUserState:
		// Tag pass-through; establishes the client's own identity.
		event.Channel = ""

	case CmdClearChat:
		if len(params) > 1 {
			event.Event = EventUserBanned
			event.Username = params[1]
			event.BanReason = event.Tags.String("ban-reason")
			event.BanDuration, _ = event.Tags.Int("ban-duration")
		}

	case CmdHostTarget:
		// :tmi.twitch.tv HOSTTARGET #channel :target [viewers]
		if len(params) < 2 {
			return nil, errors.New("short HOSTTARGET")
		}

		fields := strings.Fields(params[1])
		if len(fields) == 0 {
			return nil, errors.New("empty HOSTTARGET target")
		}

		if fields[0] == "-" {
			event.Event = EventHostOff
		} else {
			event.Event = EventHostOn
			event.Username = fields[0]
		}
		if len(fields) > 1 {
			event.NumberOfViewers, _ = strconv.Atoi(fields[1])
		}

	case CmdRoomState, CmdUserState:
		// Tag pass-through; the client merges these into channel state.

	case CmdNotice:
		if len(params) > 1 {
			event.Message = params[len(params)-1]
		}

		msgID := event.Tags.String("msg-id")
		if msgID == "" && isAuthenticationFailure(event.Message) {
			msgID = EventAuthenticationFailed
		}
		event.Event = strings.ToUpper(msgID)

		if msgID == msgIDRoomMods {
			mods, err := parseRoomMods(event.Message)
			if err != nil {
				return nil, err
			}
			event.Mods = mods
		}

	case CmdUserNotice:
		if len(params) > 1 {
			event.Message = params[len(params)-1]
		}
		parseUserNotice(event)

	case CmdPrivmsg:
		if len(params) > 1 {
			event.Message = params[len(params)-1]
		}
		event.Username = nick

		if bits, ok := event.Tags.Int("bits"); ok {
			event.Event = EventCheer
			event.Bits = bits
		}

	case CmdPing, CmdPong, CmdReconnect:
		if len(params) > 0 {
			event.Message = params[len(params)-1]
		}

	default:
		// Unrecognized command: route by the raw command token, unscoped
		// when no channel parameter is present.
		event.Username = nick
		if len(params) > 1 {
			event.Message = params[len(params)-1]
		}
	}

	return event, nil
}

// parseUserNotice fills the msg-id specific fields of a USERNOTICE. An
// unrecognized msg-id passes through with tags only.
func parseUserNotice(event *Event) {
	event.Username = event.Tags.String("login")
	event.SystemMessage = event.Tags.String("system-msg")

	switch event.Tags.String("msg-id") {
	case msgIDSubscription, msgIDResubscription:
		if event.Tags.String("msg-id") == msgIDSubscription {
			event.Event = EventSubscription
		} else {
			event.Event = EventResubscription
		}
		event.Months, _ = event.Tags.Int("msg-param-months")
		event.SubPlan = event.Tags.String("msg-param-sub-plan")
		event.SubPlanName = event.Tags.String("msg-param-sub-plan-name")

	case msgIDSubscriptionGift:
		event.Event = EventSubscriptionGift
		event.RecipientDisplayName = event.Tags.String("msg-param-recipient-display-name")
		event.RecipientID = event.Tags.String("msg-param-recipient-id")
		event.RecipientUsername = event.Tags.String("msg-param-recipient-user-name")

	case msgIDRaid:
		event.Event = EventRaid
		event.RaiderDisplayName = event.Tags.String("msg-param-displayName")
		event.RaiderUsername = event.Tags.String("msg-param-login")
		event.RaiderViewerCount, _ = event.Tags.Int("msg-param-viewerCount")

	case msgIDRitual:
		event.Event = EventRitual
		event.RitualName = event.Tags.String("msg-param-ritual-name")

	default:
		event.SystemMessage = ""
	}
}

// parseRoomMods extracts the moderator list from a room_mods NOTICE body,
// e.g. "The moderators of this room are: user1, user2, user3".
func parseRoomMods(message string) ([]string, error) {
	_, list, ok := strings.Cut(message, ":")
	if !ok {
		return nil, errors.New("unexpected room_mods shape")
	}

	var mods []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			mods = append(mods, name)
		}
	}

	return mods, nil
}

// isAuthenticationFailure recognizes the login rejection NOTICEs, which
// carry no msg-id tag.
func isAuthenticationFailure(message string) bool {
	return message == "Login authentication failed" ||
		message == "Improperly formatted auth" ||
		message == "Login unsuccessful"
}
