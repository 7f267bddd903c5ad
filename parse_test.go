package tmi_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gissleh/tmi"
)

type parseTestRow struct {
	Raw      string
	Command  string
	Event    string
	Channel  string
	Username string
	Message  string
	Name     string
}

var parseTestTable = []parseTestRow{
	{
		":ronni!ronni@ronni.tmi.twitch.tv JOIN #dallas",
		"JOIN", "", "#dallas", "ronni", "",
		"JOIN/#dallas",
	},
	{
		":ronni!ronni@ronni.tmi.twitch.tv PART #dallas",
		"PART", "", "#dallas", "ronni", "",
		"PART/#dallas",
	},
	{
		"@badges=broadcaster/1;color=#0000FF;display-name=Dallas;mod=0;user-id=12345 :dallas!dallas@dallas.tmi.twitch.tv PRIVMSG #dallas :Hi everyone",
		"PRIVMSG", "", "#dallas", "dallas", "Hi everyone",
		"PRIVMSG/#dallas",
	},
	{
		"@badges=;bits=100;display-name=Ronni :ronni!ronni@ronni.tmi.twitch.tv PRIVMSG #dallas :cheer100 nice one",
		"PRIVMSG", "CHEER", "#dallas", "ronni", "cheer100 nice one",
		"PRIVMSG/CHEER/#dallas",
	},
	{
		":ronni.tmi.twitch.tv 353 ronni = #dallas :ronni fred wilma",
		"NAMES", "", "#dallas", "ronni", "",
		"NAMES/#dallas",
	},
	{
		":ronni.tmi.twitch.tv 366 ronni #dallas :End of /NAMES list",
		"NAMES_END", "", "#dallas", "ronni", "End of /NAMES list",
		"NAMES_END/#dallas",
	},
	{
		":jtv MODE #dallas +o ronni",
		"MODE", "MOD_GAINED", "#dallas", "ronni", "",
		"MODE/MOD_GAINED/#dallas",
	},
	{
		":jtv MODE #dallas -o ronni",
		"MODE", "MOD_LOST", "#dallas", "ronni", "",
		"MODE/MOD_LOST/#dallas",
	},
	{
		"@ban-duration=600;ban-reason=spam :tmi.twitch.tv CLEARCHAT #dallas :ronni",
		"CLEARCHAT", "USER_BANNED", "#dallas", "ronni", "",
		"CLEARCHAT/USER_BANNED/#dallas",
	},
	{
		":tmi.twitch.tv CLEARCHAT #dallas",
		"CLEARCHAT", "", "#dallas", "", "",
		"CLEARCHAT/#dallas",
	},
	{
		":tmi.twitch.tv HOSTTARGET #hosting :targetchannel 100",
		"HOSTTARGET", "HOST_ON", "#hosting", "targetchannel", "",
		"HOSTTARGET/HOST_ON/#hosting",
	},
	{
		":tmi.twitch.tv HOSTTARGET #hosting :- 0",
		"HOSTTARGET", "HOST_OFF", "#hosting", "", "",
		"HOSTTARGET/HOST_OFF/#hosting",
	},
	{
		"@msg-id=slow_on :tmi.twitch.tv NOTICE #dallas :This room is now in slow mode. You may send messages every 120 seconds.",
		"NOTICE", "SLOW_ON", "#dallas", "", "This room is now in slow mode. You may send messages every 120 seconds.",
		"NOTICE/SLOW_ON/#dallas",
	},
	{
		":tmi.twitch.tv NOTICE * :Login authentication failed",
		"NOTICE", "AUTHENTICATION_FAILED", "", "", "Login authentication failed",
		"NOTICE/AUTHENTICATION_FAILED",
	},
	{
		"@badge-info=;badges=;color=#0D4200;display-name=Ronni;emote-sets=0;user-id=66 :tmi.twitch.tv GLOBALUSERSTATE",
		"GLOBALUSERSTATE", "", "", "", "",
		"GLOBALUSERSTATE",
	},
	{
		"@emote-only=0;followers-only=-1;r9k=0;room-id=1234;slow=0;subs-only=0 :tmi.twitch.tv ROOMSTATE #dallas",
		"ROOMSTATE", "", "#dallas", "", "",
		"ROOMSTATE/#dallas",
	},
	{
		"@badges=moderator/1;color=;display-name=Ronni;emote-sets=0;mod=1;subscriber=0 :tmi.twitch.tv USERSTATE #dallas",
		"USERSTATE", "", "#dallas", "", "",
		"USERSTATE/#dallas",
	},
	{
		"PING :tmi.twitch.tv",
		"PING", "", "", "", "tmi.twitch.tv",
		"PING",
	},
	{
		":tmi.twitch.tv RECONNECT",
		"RECONNECT", "", "", "", "",
		"RECONNECT",
	},
	{
		// Unrecognized commands fall through as generic, unscoped events.
		"FOO",
		"FOO", "", "", "", "",
		"FOO",
	},
}

func TestParseLine(t *testing.T) {
	for _, row := range parseTestTable {
		t.Run(row.Raw, func(t *testing.T) {
			event, err := tmi.ParseLine(row.Raw)
			if err != nil {
				t.Error("Parse failed:", err)
				return
			}

			assert.Equal(t, row.Command, event.Command, "command")
			assert.Equal(t, row.Event, event.Event, "event")
			assert.Equal(t, row.Channel, event.Channel, "channel")
			assert.Equal(t, row.Username, event.Username, "username")
			assert.Equal(t, row.Message, event.Message, "message")
			assert.Equal(t, row.Name, event.Name(), "name")
			assert.Equal(t, row.Raw, event.Raw, "raw")
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, raw := range []string{
		"JOIN #dallas",
		":ronni!ronni@ronni.tmi.twitch.tv JOIN",
		":jtv MODE #dallas +v ronni",
		":jtv MODE #dallas",
		":ronni.tmi.twitch.tv 353 ronni #dallas",
		"@msg-id=room_mods :tmi.twitch.tv NOTICE #dallas :There are no moderators of this room",
		"",
	} {
		t.Run(raw, func(t *testing.T) {
			event, err := tmi.ParseLine(raw)
			assert.Error(t, err)
			assert.Nil(t, event)
		})
	}
}

func TestParseLineCheer(t *testing.T) {
	event, err := tmi.ParseLine("@bits=250;display-name=Ronni :ronni!ronni@ronni.tmi.twitch.tv PRIVMSG #dallas :cheer250")
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, tmi.EventCheer, event.Event)
	assert.Equal(t, 250, event.Bits)
}

func TestParseLineBan(t *testing.T) {
	event, err := tmi.ParseLine("@ban-duration=600;ban-reason=spam :tmi.twitch.tv CLEARCHAT #dallas :ronni")
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, tmi.EventUserBanned, event.Event)
	assert.Equal(t, "ronni", event.Username)
	assert.Equal(t, "spam", event.BanReason)
	assert.Equal(t, 600, event.BanDuration)
}

func TestParseLineServerTimestamp(t *testing.T) {
	event, err := tmi.ParseLine("@tmi-sent-ts=1550868292494 :ronni!ronni@ronni.tmi.twitch.tv PRIVMSG #dallas :hello")
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, int64(1550868292494), event.Time.UnixMilli())
}

func TestParseLineRoomMods(t *testing.T) {
	event, err := tmi.ParseLine("@msg-id=room_mods :tmi.twitch.tv NOTICE #dallas :The moderators of this room are: mod1, mod2, mod3")
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, tmi.EventRoomMods, event.Event)
	assert.Equal(t, []string{"mod1", "mod2", "mod3"}, event.Mods)
}

func TestParseLineUserNotice(t *testing.T) {
	t.Run("resub", func(t *testing.T) {
		event, err := tmi.ParseLine(`@badges=staff/1;login=ronni;msg-id=resub;msg-param-months=6;msg-param-sub-plan=Prime;msg-param-sub-plan-name=Prime;system-msg=ronni\shas\ssubscribed\sfor\s6\smonths! :tmi.twitch.tv USERNOTICE #dallas :Great stream`)
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, tmi.EventResubscription, event.Event)
		assert.Equal(t, "ronni", event.Username)
		assert.Equal(t, 6, event.Months)
		assert.Equal(t, "Prime", event.SubPlan)
		assert.Equal(t, "ronni has subscribed for 6 months!", event.SystemMessage)
		assert.Equal(t, "Great stream", event.Message)
	})

	t.Run("subgift", func(t *testing.T) {
		event, err := tmi.ParseLine(`@login=gifter;msg-id=subgift;msg-param-recipient-display-name=Lucky;msg-param-recipient-id=55;msg-param-recipient-user-name=lucky :tmi.twitch.tv USERNOTICE #dallas`)
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, tmi.EventSubscriptionGift, event.Event)
		assert.Equal(t, "gifter", event.Username)
		assert.Equal(t, "Lucky", event.RecipientDisplayName)
		assert.Equal(t, "55", event.RecipientID)
		assert.Equal(t, "lucky", event.RecipientUsername)
	})

	t.Run("raid", func(t *testing.T) {
		event, err := tmi.ParseLine(`@login=raider;msg-id=raid;msg-param-displayName=Raider;msg-param-login=raider;msg-param-viewerCount=42 :tmi.twitch.tv USERNOTICE #dallas`)
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, tmi.EventRaid, event.Event)
		assert.Equal(t, "Raider", event.RaiderDisplayName)
		assert.Equal(t, "raider", event.RaiderUsername)
		assert.Equal(t, 42, event.RaiderViewerCount)
	})

	t.Run("ritual", func(t *testing.T) {
		event, err := tmi.ParseLine(`@login=newbie;msg-id=ritual;msg-param-ritual-name=new_chatter :tmi.twitch.tv USERNOTICE #dallas :HeyGuys`)
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, tmi.EventRitual, event.Event)
		assert.Equal(t, "new_chatter", event.RitualName)
	})
}

// The server sends moderator and chatter lists through the same numeric;
// list length is the only available signal.
func TestParseLineNamesClassification(t *testing.T) {
	short, err := tmi.ParseLine(":ronni.tmi.twitch.tv 353 ronni = #dallas :ronni fred wilma")
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, tmi.ListTypeChatters, short.ListType)
	assert.Equal(t, []string{"ronni", "fred", "wilma"}, short.Usernames)

	long, err := tmi.ParseLine(":ronni.tmi.twitch.tv 353 ronni = #dallas :" + strings.TrimSpace(strings.Repeat("someuser123 ", 100)))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, tmi.ListTypeMods, long.ListType)
	assert.Len(t, long.Usernames, 100)
}
