// Copyright 2024-2026 Aiku AI

package slackfmt

import (
	"strings"
	"testing"

	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// fakeResolver backs both resolver interfaces with plain maps.
type fakeResolver struct {
	users    map[string]*slackapi.User
	channels map[string]*slackapi.Channel
	handles  map[string]string
}

func (f *fakeResolver) UserByID(id string) *slackapi.User {
	return f.users[id]
}

func (f *fakeResolver) ChannelByID(id string) *slackapi.Channel {
	return f.channels[id]
}

func (f *fakeResolver) UsergroupHandleByID(id string) string {
	return f.handles[id]
}

func (f *fakeResolver) UserIDByName(name string) string {
	lower := strings.ToLower(name)
	for id, u := range f.users {
		if strings.ToLower(u.Name) == lower || strings.ToLower(u.Profile.DisplayName) == lower {
			return id
		}
	}
	return ""
}

func (f *fakeResolver) UsergroupIDByHandle(handle string) string {
	for id, h := range f.handles {
		if h == handle {
			return id
		}
	}
	return ""
}

func (f *fakeResolver) ChannelIDByName(name string) string {
	for id, ch := range f.channels {
		if ch.Name == name {
			return id
		}
	}
	return ""
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		users: map[string]*slackapi.User{
			"U1": {ID: "U1", Name: "alice"},
			"U2": {ID: "U2", Name: "carol", Profile: slackapi.Profile{DisplayName: "cc"}},
		},
		channels: map[string]*slackapi.Channel{
			"C1": {ID: "C1", Name: "general"},
		},
		handles: map[string]string{
			"S1": "backend",
		},
	}
}

func TestDecodePlainTextOnlyUnescapes(t *testing.T) {
	t.Parallel()
	text, mentions := Decode("ham &amp; eggs &lt;3", newFakeResolver())
	if text != "ham & eggs <3" {
		t.Errorf("got %q, want %q", text, "ham & eggs <3")
	}
	if len(mentions) != 0 {
		t.Errorf("plain text should produce no mentions, got %d", len(mentions))
	}
}

func TestDecodeMentionWithInlineName(t *testing.T) {
	t.Parallel()
	text, mentions := Decode("hi <@U1|Bob>", newFakeResolver())
	if text != "hi @Bob" {
		t.Errorf("got %q, want %q", text, "hi @Bob")
	}
	// The inline name means no cache lookup and no mention entry.
	if len(mentions) != 0 {
		t.Errorf("inline-name mention should not be collected, got %d entries", len(mentions))
	}
}

func TestDecodeMentionResolvesAndCollects(t *testing.T) {
	t.Parallel()
	text, mentions := Decode("hi <@U2>", newFakeResolver())
	if text != "hi @carol" {
		t.Errorf("got %q, want %q", text, "hi @carol")
	}
	if len(mentions) != 1 || mentions[0].Name != "carol" {
		t.Fatalf("want exactly one mention of carol, got %v", mentions)
	}
}

func TestDecodeMentionOrderAndDuplicates(t *testing.T) {
	t.Parallel()
	text, mentions := Decode("<@U2> <@U1> <@U2>", newFakeResolver())
	if text != "@carol @alice @carol" {
		t.Errorf("got %q", text)
	}
	want := []string{"carol", "alice", "carol"}
	if len(mentions) != len(want) {
		t.Fatalf("want %d mentions, got %d", len(want), len(mentions))
	}
	for i, name := range want {
		if mentions[i].Name != name {
			t.Errorf("mention %d: got %q, want %q", i, mentions[i].Name, name)
		}
	}
}

func TestDecodeUnresolvedMentionDegrades(t *testing.T) {
	t.Parallel()
	text, mentions := Decode("hi <@U9>", newFakeResolver())
	// The unresolved token is left for the link pass, which unwraps the
	// brackets so the reader still sees the raw reference.
	if text != "hi @U9" {
		t.Errorf("got %q, want %q", text, "hi @U9")
	}
	if len(mentions) != 0 {
		t.Errorf("unresolved mention should not be collected, got %d", len(mentions))
	}
}

func TestDecodeSubteamInlineHandle(t *testing.T) {
	t.Parallel()
	text, _ := Decode("ping <!subteam^S9|@infra>", newFakeResolver())
	if text != "ping @infra" {
		t.Errorf("got %q, want %q", text, "ping @infra")
	}
}

func TestDecodeSubteamResolvedHandle(t *testing.T) {
	t.Parallel()
	text, _ := Decode("ping <!subteam^S1>", newFakeResolver())
	if text != "ping @backend" {
		t.Errorf("got %q, want %q", text, "ping @backend")
	}
}

func TestDecodeUnresolvedSubteamDegrades(t *testing.T) {
	t.Parallel()
	// S9 is not in the cache and stays unresolved after the refetch. The
	// token must not be rewritten as a broadcast; it degrades to literal
	// text via the link pass.
	text, _ := Decode("ping <!subteam^S9>", newFakeResolver())
	if text != "ping !subteam^S9" {
		t.Errorf("got %q, want %q", text, "ping !subteam^S9")
	}
}

func TestDecodeBroadcastTokens(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"<!everyone>":     "@everyone",
		"<!here>":         "@here",
		"<!here|@here>":   "@here",
		"<!channel>":      "@channel",
		"<!group>":        "@group",
		"<!custom-thing>": "@custom-thing",
	}
	for in, want := range cases {
		text, _ := Decode(in, newFakeResolver())
		if text != want {
			t.Errorf("Decode(%q): got %q, want %q", in, text, want)
		}
	}
}

func TestDecodeLinks(t *testing.T) {
	t.Parallel()
	text, _ := Decode("see <http://example.com|the site> or <http://other.example>", newFakeResolver())
	want := "see the site or http://other.example"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestDecodeChannelReference(t *testing.T) {
	t.Parallel()
	text, _ := Decode("join #C1 not #C9", newFakeResolver())
	if text != "join #general not #C9" {
		t.Errorf("got %q", text)
	}
}

func TestEncodePlainTextUnchanged(t *testing.T) {
	t.Parallel()
	in := "nothing to rewrite here"
	if out := Encode(in, newFakeResolver()); out != in {
		t.Errorf("got %q, want %q", out, in)
	}
}

func TestEncodeUserMention(t *testing.T) {
	t.Parallel()
	out := Encode("hi @alice", newFakeResolver())
	if !strings.Contains(out, "<@U1>") {
		t.Errorf("got %q, want to contain <@U1>", out)
	}
}

func TestEncodeUserByDisplayName(t *testing.T) {
	t.Parallel()
	out := Encode("hi @cc", newFakeResolver())
	if out != "hi <@U2>" {
		t.Errorf("got %q, want %q", out, "hi <@U2>")
	}
}

func TestEncodeBroadcast(t *testing.T) {
	t.Parallel()
	out := Encode("@everyone @here", newFakeResolver())
	if out != "<!everyone> <!here>" {
		t.Errorf("got %q", out)
	}
}

func TestEncodeSubteamHandle(t *testing.T) {
	t.Parallel()
	out := Encode("cc @backend", newFakeResolver())
	if out != "cc <!subteam^S1>" {
		t.Errorf("got %q", out)
	}
}

func TestEncodeChannelName(t *testing.T) {
	t.Parallel()
	out := Encode("meet in #general", newFakeResolver())
	if out != "meet in <#C1|general>" {
		t.Errorf("got %q", out)
	}
}

func TestEncodeUnmatchedTokensPassThrough(t *testing.T) {
	t.Parallel()
	in := "@nobody #nowhere"
	if out := Encode(in, newFakeResolver()); out != in {
		t.Errorf("got %q, want %q", out, in)
	}
}
