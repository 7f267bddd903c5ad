package twitch

import "strings"

// RoomState holds the channel-wide settings carried by ROOMSTATE tags. The
// server sends the full set on join and only the changed keys afterwards,
// so updates are applied with Apply rather than by replacement.
type RoomState struct {
	BroadcasterLang string
	EmoteOnly       bool
	FollowersOnly   int // -1 disabled, 0 all followers, >0 minimum minutes.
	R9K             bool
	Slow            int // seconds between messages, 0 when off.
	SubsOnly        bool

	Tags Set
}

// ParseRoomState builds a RoomState from a full ROOMSTATE tag set.
func ParseRoomState(set Set) RoomState {
	state := RoomState{FollowersOnly: -1, Tags: set}
	state.Apply(set)
	return state
}

// Apply merges a (possibly partial) ROOMSTATE tag set into the state.
func (state *RoomState) Apply(set Set) {
	if set == nil {
		return
	}

	if lang, ok := set.Get("broadcaster-lang"); ok {
		state.BroadcasterLang = lang
	}
	if set.Has("emote-only") {
		state.EmoteOnly = set.Bool("emote-only")
	}
	if minutes, ok := set.Int("followers-only"); ok {
		state.FollowersOnly = minutes
	}
	if set.Has("r9k") {
		state.R9K = set.Bool("r9k")
	}
	if seconds, ok := set.Int("slow"); ok {
		state.Slow = seconds
	}
	if set.Has("subs-only") {
		state.SubsOnly = set.Bool("subs-only")
	}

	if state.Tags == nil {
		state.Tags = make(Set, len(set))
	}
	for key, value := range set {
		state.Tags[key] = value
	}
}

// UserState holds one identity's attributes within a channel (USERSTATE) or
// globally (GLOBALUSERSTATE). Badge and emote raw encodings are kept next to
// the decoded values so they survive a round trip.
type UserState struct {
	Badges     []Badge
	BadgesRaw  string
	Color      string
	Display    string
	EmoteSets  []string
	Mod        bool
	Subscriber bool
	Turbo      bool
	UserID     string
	UserType   string

	Tags Set
}

// ParseUserState builds a UserState from a USERSTATE or GLOBALUSERSTATE
// tag set.
func ParseUserState(set Set) UserState {
	state := UserState{Tags: set}
	state.Apply(set)
	return state
}

// Apply merges a (possibly partial) user state tag set into the state.
func (state *UserState) Apply(set Set) {
	if set == nil {
		return
	}

	if badges, ok := set.Get("badges"); ok {
		state.Badges = ParseBadges(badges)
		state.BadgesRaw = badges
	}
	if color, ok := set.Get("color"); ok {
		state.Color = color
	}
	if display, ok := set.Get("display-name"); ok {
		state.Display = display
	}
	if sets, ok := set.Get("emote-sets"); ok && sets != "" {
		state.EmoteSets = strings.Split(sets, ",")
	}
	if set.Has("mod") {
		state.Mod = set.Bool("mod")
	}
	if set.Has("subscriber") {
		state.Subscriber = set.Bool("subscriber")
	}
	if set.Has("turbo") {
		state.Turbo = set.Bool("turbo")
	}
	if id, ok := set.Get("user-id"); ok {
		state.UserID = id
	}
	if userType, ok := set.Get("user-type"); ok {
		state.UserType = userType
	}

	if state.Tags == nil {
		state.Tags = make(Set, len(set))
	}
	for key, value := range set {
		state.Tags[key] = value
	}
}
