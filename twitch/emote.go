package twitch

import (
	"sort"
	"strconv"
	"strings"
)

// A Badge is one entry of the slash/comma badges tag, e.g. "subscriber/12".
type Badge struct {
	Name    string
	Version int
}

// An Emote is one occurrence range of an emote in a message, from the
// colon/comma/slash emotes tag, e.g. "25:0-4,12-16".
type Emote struct {
	ID    string
	Start int
	End   int
}

// ParseBadges decodes a badges tag value, e.g. "subscriber/12,premium/1".
// Malformed entries are skipped; an empty value yields nil.
func ParseBadges(raw string) []Badge {
	if raw == "" {
		return nil
	}

	var badges []Badge
	for _, token := range strings.Split(raw, ",") {
		name, version, ok := strings.Cut(token, "/")
		if !ok || name == "" {
			continue
		}

		n, err := strconv.Atoi(version)
		if err != nil {
			continue
		}

		badges = append(badges, Badge{Name: name, Version: n})
	}

	return badges
}

// EncodeBadges is the inverse of ParseBadges.
func EncodeBadges(badges []Badge) string {
	tokens := make([]string, 0, len(badges))
	for _, badge := range badges {
		tokens = append(tokens, badge.Name+"/"+strconv.Itoa(badge.Version))
	}

	return strings.Join(tokens, ",")
}

// ParseEmotes decodes an emotes tag value, e.g. "25:0-4,12-16/1902:6-10".
// One Emote is produced per occurrence range. Malformed ranges are skipped.
func ParseEmotes(raw string) []Emote {
	if raw == "" {
		return nil
	}

	var emotes []Emote
	for _, group := range strings.Split(raw, "/") {
		id, ranges, ok := strings.Cut(group, ":")
		if !ok || id == "" {
			continue
		}

		for _, span := range strings.Split(ranges, ",") {
			startRaw, endRaw, ok := strings.Cut(span, "-")
			if !ok {
				continue
			}

			start, err := strconv.Atoi(startRaw)
			if err != nil {
				continue
			}
			end, err := strconv.Atoi(endRaw)
			if err != nil {
				continue
			}

			emotes = append(emotes, Emote{ID: id, Start: start, End: end})
		}
	}

	return emotes
}

// EncodeEmotes is the inverse of ParseEmotes. Occurrences of the same emote
// are regrouped in first-seen order, so a value decoded by ParseEmotes
// re-encodes to the original tag string.
func EncodeEmotes(emotes []Emote) string {
	order := make([]string, 0, len(emotes))
	ranges := make(map[string][]Emote, len(emotes))

	for _, emote := range emotes {
		if _, seen := ranges[emote.ID]; !seen {
			order = append(order, emote.ID)
		}
		ranges[emote.ID] = append(ranges[emote.ID], emote)
	}

	groups := make([]string, 0, len(order))
	for _, id := range order {
		spans := make([]string, 0, len(ranges[id]))
		for _, emote := range ranges[id] {
			spans = append(spans, strconv.Itoa(emote.Start)+"-"+strconv.Itoa(emote.End))
		}

		groups = append(groups, id+":"+strings.Join(spans, ","))
	}

	return strings.Join(groups, "/")
}

// SortEmotes orders emotes by their position in the message.
func SortEmotes(emotes []Emote) {
	sort.Slice(emotes, func(i, j int) bool {
		return emotes[i].Start < emotes[j].Start
	})
}
