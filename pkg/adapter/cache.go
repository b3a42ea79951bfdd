// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// entityCache maps entity IDs to user, channel and usergroup snapshots. It
// lives for one session. Miss-filling and event-driven updates all happen
// on the dispatch goroutine, but outbound sends resolve names from the
// caller's goroutine, so every map access goes through the RWMutex. Lookup
// misses trigger exactly one remote fetch per ID; the result is cached
// even when empty so a permanently missing ID never causes repeated remote
// calls. Records are replaced wholesale on refresh, never edited in place.
type entityCache struct {
	api *slackapi.Client
	log zerolog.Logger

	mu         sync.RWMutex
	users      map[string]*slackapi.User
	channels   map[string]*slackapi.Channel
	usergroups map[string]*slackapi.Usergroup
	// usergroupMiss marks IDs that stayed unresolved after a bulk refresh.
	usergroupMiss map[string]bool
}

func newEntityCache(api *slackapi.Client, log zerolog.Logger) *entityCache {
	return &entityCache{
		api:           api,
		log:           log.With().Str("component", "entity_cache").Logger(),
		users:         make(map[string]*slackapi.User),
		channels:      make(map[string]*slackapi.Channel),
		usergroups:    make(map[string]*slackapi.Usergroup),
		usergroupMiss: make(map[string]bool),
	}
}

// refreshUsers bulk-loads the user mapping. A failed listing leaves the
// existing cache untouched.
func (c *entityCache) refreshUsers(ctx context.Context) {
	users, err := c.api.ListUsers(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("user list refresh failed, keeping cache")
		return
	}
	c.mu.Lock()
	for i := range users {
		u := users[i]
		c.users[u.ID] = &u
	}
	c.mu.Unlock()
	c.log.Debug().Int("count", len(users)).Msg("refreshed user cache")
}

// refreshChannels bulk-loads the channel mapping, fail-soft.
func (c *entityCache) refreshChannels(ctx context.Context) {
	channels, err := c.api.ListChannels(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("channel list refresh failed, keeping cache")
		return
	}
	c.mu.Lock()
	for i := range channels {
		ch := channels[i]
		c.channels[ch.ID] = &ch
	}
	c.mu.Unlock()
	c.log.Debug().Int("count", len(channels)).Msg("refreshed channel cache")
}

// refreshUsergroups bulk-loads the usergroup mapping, fail-soft.
func (c *entityCache) refreshUsergroups(ctx context.Context) {
	groups, err := c.api.ListUsergroups(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("usergroup list refresh failed, keeping cache")
		return
	}
	c.mu.Lock()
	for i := range groups {
		g := groups[i]
		c.usergroups[g.ID] = &g
	}
	c.mu.Unlock()
	c.log.Debug().Int("count", len(groups)).Msg("refreshed usergroup cache")
}

// user returns the cached record for an ID, fetching it once on a miss.
// Returns nil for an empty ID or an unresolvable one.
func (c *entityCache) user(ctx context.Context, id string) *slackapi.User {
	if id == "" {
		return nil
	}
	c.mu.RLock()
	u, ok := c.users[id]
	c.mu.RUnlock()
	if ok {
		return u
	}
	// Miss-fills only ever run on the dispatch goroutine, so dropping the
	// lock around the remote call cannot double-fetch.
	u, err := c.api.GetUser(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("user lookup failed")
		u = nil
	}
	c.mu.Lock()
	c.users[id] = u
	c.mu.Unlock()
	return u
}

// channel returns the cached record for an ID, fetching it once on a miss.
// IDs that don't look like channel IDs (DM origins) cache a nil record
// without a remote call.
func (c *entityCache) channel(ctx context.Context, id string) *slackapi.Channel {
	if id == "" {
		return nil
	}
	c.mu.RLock()
	ch, ok := c.channels[id]
	c.mu.RUnlock()
	if ok {
		return ch
	}
	if strings.HasPrefix(id, "C") {
		var err error
		ch, err = c.api.GetChannel(ctx, id)
		if err != nil {
			c.log.Warn().Err(err).Str("channel_id", id).Msg("channel lookup failed")
			ch = nil
		}
	}
	c.mu.Lock()
	c.channels[id] = ch
	c.mu.Unlock()
	return ch
}

// usergroupHandle resolves a usergroup ID to its handle. On a miss it
// refetches the usergroup list once; IDs still missing afterwards are
// negative-cached.
func (c *entityCache) usergroupHandle(ctx context.Context, id string) string {
	c.mu.RLock()
	g, ok := c.usergroups[id]
	miss := c.usergroupMiss[id]
	c.mu.RUnlock()
	if ok && g != nil {
		return g.Handle
	}
	if miss {
		return ""
	}
	c.refreshUsergroups(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.usergroups[id]; ok && g != nil {
		return g.Handle
	}
	c.usergroupMiss[id] = true
	return ""
}

// invalidateChannel drops one cached channel record. Needed because
// refreshes merge into the mapping and never remove entries on their own.
func (c *entityCache) invalidateChannel(id string) {
	c.mu.Lock()
	delete(c.channels, id)
	c.mu.Unlock()
}

// upsertUser replaces the cached record for one user.
func (c *entityCache) upsertUser(u *slackapi.User) {
	if u == nil || u.ID == "" {
		return
	}
	c.mu.Lock()
	c.users[u.ID] = u
	c.mu.Unlock()
}

// channelIDByName returns the ID of the first cached channel with the
// given name, or "".
func (c *entityCache) channelIDByName(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, ch := range c.channels {
		if ch != nil && ch.Name == name {
			return id
		}
	}
	return ""
}

// userIDByName returns the ID of the first cached user whose name or
// display name matches case-insensitively, or "".
func (c *entityCache) userIDByName(name string) string {
	lower := strings.ToLower(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, u := range c.users {
		if u == nil {
			continue
		}
		if strings.ToLower(u.Name) == lower || strings.ToLower(u.Profile.DisplayName) == lower {
			return id
		}
	}
	return ""
}

// usergroupIDByHandle returns the ID of the cached usergroup with the
// given handle (case-sensitive), or "".
func (c *entityCache) usergroupIDByHandle(handle string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, g := range c.usergroups {
		if g != nil && g.Handle == handle {
			return id
		}
	}
	return ""
}

// cacheResolver adapts the cache to the slackfmt resolver interfaces for
// one dispatch call.
type cacheResolver struct {
	ctx   context.Context
	cache *entityCache
}

func (r cacheResolver) UserByID(id string) *slackapi.User {
	return r.cache.user(r.ctx, id)
}

func (r cacheResolver) ChannelByID(id string) *slackapi.Channel {
	return r.cache.channel(r.ctx, id)
}

func (r cacheResolver) UsergroupHandleByID(id string) string {
	return r.cache.usergroupHandle(r.ctx, id)
}

func (r cacheResolver) UserIDByName(name string) string {
	return r.cache.userIDByName(name)
}

func (r cacheResolver) UsergroupIDByHandle(handle string) string {
	return r.cache.usergroupIDByHandle(handle)
}

func (r cacheResolver) ChannelIDByName(name string) string {
	return r.cache.channelIDByName(name)
}
