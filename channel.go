package tmi

import (
	"sort"
	"sync"

	"github.com/gissleh/tmi/twitch"
)

// ChannelState is the tracked state of one joined channel, rebuilt from the
// JOIN/ROOMSTATE/USERSTATE sequence on every (re)join.
type ChannelState struct {
	Name      string
	RoomState twitch.RoomState

	// UserState is nil for anonymous clients, which receive no USERSTATE.
	UserState *twitch.UserState
}

// The channelStore keeps one ChannelState per joined channel, keyed by the
// canonical channel name. It is mutated only from the dispatch path and on
// join/part, so readers never observe a half-updated record.
type channelStore struct {
	mu       sync.RWMutex
	channels map[string]*ChannelState
}

func newChannelStore() *channelStore {
	return &channelStore{channels: make(map[string]*ChannelState)}
}

// Get returns a copy of the channel's state.
func (store *channelStore) Get(channel string) (state ChannelState, ok bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	existing, ok := store.channels[channel]
	if !ok {
		return ChannelState{}, false
	}

	state = *existing
	if existing.UserState != nil {
		userState := *existing.UserState
		state.UserState = &userState
	}

	return state, true
}

// Set creates or replaces a channel record. Called when a join completes.
func (store *channelStore) Set(state ChannelState) {
	store.mu.Lock()
	copied := state
	store.channels[state.Name] = &copied
	store.mu.Unlock()
}

// Remove deletes a channel record. Called optimistically on part.
func (store *channelStore) Remove(channel string) {
	store.mu.Lock()
	delete(store.channels, channel)
	store.mu.Unlock()
}

// Clear drops every record. Called on disconnect; state is rebuilt from the
// fresh join sequence after a reconnect.
func (store *channelStore) Clear() {
	store.mu.Lock()
	store.channels = make(map[string]*ChannelState)
	store.mu.Unlock()
}

// Names lists the joined channels in stable order.
func (store *channelStore) Names() []string {
	store.mu.RLock()
	names := make([]string, 0, len(store.channels))
	for name := range store.channels {
		names = append(names, name)
	}
	store.mu.RUnlock()

	sort.Strings(names)
	return names
}

// ApplyRoomState merges a ROOMSTATE tag set into an existing record. Lines
// for channels that were never joined are dropped.
func (store *channelStore) ApplyRoomState(channel string, tags twitch.Set) {
	store.mu.Lock()
	if state, ok := store.channels[channel]; ok {
		state.RoomState.Apply(tags)
	}
	store.mu.Unlock()
}

// ApplyUserState merges a USERSTATE tag set into an existing record.
func (store *channelStore) ApplyUserState(channel string, tags twitch.Set) {
	store.mu.Lock()
	if state, ok := store.channels[channel]; ok {
		if state.UserState == nil {
			state.UserState = &twitch.UserState{}
		}
		state.UserState.Apply(tags)
	}
	store.mu.Unlock()
}

// SetModerator flips the tracked moderator flag. Called synchronously while
// handling a MODE line for the client's own identity.
func (store *channelStore) SetModerator(channel string, isModerator bool) {
	store.mu.Lock()
	if state, ok := store.channels[channel]; ok {
		if state.UserState == nil {
			state.UserState = &twitch.UserState{}
		}
		state.UserState.Mod = isModerator
	}
	store.mu.Unlock()
}

// IsModerator reports the tracked moderator flag for the client in channel.
func (store *channelStore) IsModerator(channel string) bool {
	store.mu.RLock()
	defer store.mu.RUnlock()

	state, ok := store.channels[channel]
	return ok && state.UserState != nil && state.UserState.Mod
}
