// Copyright 2024-2026 Aiku AI

// Package slackfmt rewrites message text between the Slack wire syntax and
// plain human-readable text. Decode turns inline references like <@U123>
// into @name mentions; Encode does the reverse for outbound sends. Both are
// best-effort: anything that cannot be resolved passes through unchanged.
package slackfmt

import (
	"html"
	"regexp"
	"strings"

	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// DecodeResolver supplies entity lookups during decode. A nil or empty
// return means the reference stays in its wire form.
type DecodeResolver interface {
	UserByID(id string) *slackapi.User
	ChannelByID(id string) *slackapi.Channel
	UsergroupHandleByID(id string) string
}

// EncodeResolver supplies name-to-ID lookups during encode. An empty
// return leaves the human-readable token untouched.
type EncodeResolver interface {
	UserIDByName(name string) string
	UsergroupIDByHandle(handle string) string
	ChannelIDByName(name string) string
}

var (
	userMentionRe = regexp.MustCompile(`<@([0-9A-Z]+)(?:\|([^>]+))?>`)
	subteamRe     = regexp.MustCompile(`<!subteam\^([0-9A-Z]+)(?:\|([^>]+))?>`)
	// The broadcast pass must not consume subteam tokens left unresolved
	// by the previous pass, hence the ^ exclusion.
	broadcastRe   = regexp.MustCompile(`<!([^>|@^]+)(\|@[^>]+)?>`)
	linkRe        = regexp.MustCompile(`<([^>|]+)(?:\|([^>]*))?>`)
	channelIDRe   = regexp.MustCompile(`#([A-Z0-9]+)`)
	atTokenRe     = regexp.MustCompile(`@([0-9a-z._-]+)`)
	atBroadcastRe = regexp.MustCompile(`@(everyone|group|channel|here)\b`)
	channelNameRe = regexp.MustCompile(`#([a-z0-9_-]+)`)
)

// Decode converts wire text to human-readable text and returns the users
// mentioned without an inline fallback name, in first-occurrence order.
// The passes run in a fixed sequence: user mentions, subteam references,
// broadcast tokens, generic links, raw channel IDs, HTML unescape. Later
// passes must not reinterpret the output of earlier ones, and the channel
// pass has to run after every angle-bracket form has been consumed.
func Decode(text string, r DecodeResolver) (string, []*slackapi.User) {
	var mentions []*slackapi.User

	text = userMentionRe.ReplaceAllStringFunc(text, func(match string) string {
		m := userMentionRe.FindStringSubmatch(match)
		id, name := m[1], m[2]
		if name == "" {
			user := r.UserByID(id)
			if user == nil {
				return match
			}
			mentions = append(mentions, user)
			name = user.Name
		}
		return "@" + name
	})

	text = subteamRe.ReplaceAllStringFunc(text, func(match string) string {
		m := subteamRe.FindStringSubmatch(match)
		id, handle := m[1], strings.TrimPrefix(m[2], "@")
		if handle == "" {
			handle = r.UsergroupHandleByID(id)
			if handle == "" {
				return match
			}
		}
		return "@" + handle
	})

	text = broadcastRe.ReplaceAllStringFunc(text, func(match string) string {
		m := broadcastRe.FindStringSubmatch(match)
		return "@" + m[1]
	})

	text = linkRe.ReplaceAllStringFunc(text, func(match string) string {
		m := linkRe.FindStringSubmatch(match)
		if m[2] != "" {
			return m[2]
		}
		return m[1]
	})

	text = channelIDRe.ReplaceAllStringFunc(text, func(match string) string {
		m := channelIDRe.FindStringSubmatch(match)
		if channel := r.ChannelByID(m[1]); channel != nil {
			return "#" + channel.Name
		}
		return match
	})

	return html.UnescapeString(text), mentions
}

// Encode converts human-readable text to wire text for an outbound send.
// Unmatched tokens pass through verbatim.
func Encode(text string, r EncodeResolver) string {
	text = atTokenRe.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimPrefix(match, "@")
		if id := r.UserIDByName(name); id != "" {
			return "<@" + id + ">"
		}
		return match
	})

	text = atBroadcastRe.ReplaceAllString(text, "<!$1>")

	text = atTokenRe.ReplaceAllStringFunc(text, func(match string) string {
		handle := strings.TrimPrefix(match, "@")
		if id := r.UsergroupIDByHandle(handle); id != "" {
			return "<!subteam^" + id + ">"
		}
		return match
	})

	text = channelNameRe.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimPrefix(match, "#")
		if id := r.ChannelIDByName(name); id != "" {
			return "<#" + id + "|" + name + ">"
		}
		return match
	})

	return text
}
