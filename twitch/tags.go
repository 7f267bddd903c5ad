// Package twitch coerces the raw tag collection attached to a chat line into
// typed values: boolean flags, numbers, badge and emote structures, and the
// room/user state views kept per channel. The raw encodings are preserved so
// every decoded value can be re-encoded byte for byte.
package twitch

import (
	"strconv"

	"github.com/ergochat/irc-go/ircmsg"
)

// A Set is the coerced tag collection of a single line. Keys are the wire
// tag names; values are unescaped per the IRCv3 rules. A nil Set means the
// line carried no tags.
type Set map[string]string

// NewSet copies tags into a Set, dropping nothing. Empty collections become
// nil so "no tags" and "empty tags" read the same.
func NewSet(tags map[string]string) Set {
	if len(tags) == 0 {
		return nil
	}

	set := make(Set, len(tags))
	for key, value := range tags {
		set[key] = value
	}

	return set
}

// Get returns the raw (unescaped) value of a tag.
func (set Set) Get(key string) (value string, ok bool) {
	value, ok = set[key]
	return
}

// String returns the tag value, or "" if absent.
func (set Set) String(key string) string {
	return set[key]
}

// Bool coerces "1"/"0" flag tags. Anything else is false.
func (set Set) Bool(key string) bool {
	return set[key] == "1"
}

// Int coerces a numeric tag. ok is false when the tag is absent or not
// syntactically a number.
func (set Set) Int(key string) (value int, ok bool) {
	raw, present := set[key]
	if !present {
		return 0, false
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return value, true
}

// Has returns true if the tag is present, even with an empty value.
func (set Set) Has(key string) bool {
	_, ok := set[key]
	return ok
}

// EscapeTag applies the IRCv3 tag value escape rules. It is the inverse of
// UnescapeTag; the tokenizer already unescapes inbound values.
func EscapeTag(value string) string {
	return ircmsg.EscapeTagValue(value)
}

// UnescapeTag reverses EscapeTag.
func UnescapeTag(value string) string {
	return ircmsg.UnescapeTagValue(value)
}
