// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// buildHandlers returns the event-type dispatch table. Types absent from
// the table are ignored, which keeps the bridge forward-compatible with
// event types the server adds later.
func (a *Adapter) buildHandlers() map[string]func(ctx context.Context, raw json.RawMessage) {
	return map[string]func(ctx context.Context, raw json.RawMessage){
		"message":           a.handleMessage,
		"channel_created":   a.handleChannelChange,
		"channel_deleted":   a.handleChannelRemoved,
		"channel_rename":    a.handleChannelChange,
		"channel_archive":   a.handleChannelRemoved,
		"channel_unarchive": a.handleChannelChange,
		"user_change":       a.handleUserChange,
		"bot_added":         a.handleUserChange,
		"bot_changed":       a.handleUserChange,
	}
}

// dispatch routes one inbound data frame by its type field.
func (a *Adapter) dispatch(ctx context.Context, raw json.RawMessage) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		a.log.Warn().Err(err).Msg("dropping undecodable event")
		return
	}
	if handler, ok := a.handlers[head.Type]; ok {
		handler(ctx, raw)
	}
}

// messageEvent is the inbound message frame shape.
type messageEvent struct {
	Subtype     string                `json:"subtype"`
	Channel     string                `json:"channel"`
	User        string                `json:"user"`
	Text        string                `json:"text"`
	TS          string                `json:"ts"`
	Attachments []slackapi.Attachment `json:"attachments"`
}

func (a *Adapter) handleMessage(ctx context.Context, raw json.RawMessage) {
	var ev messageEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		a.log.Warn().Err(err).Msg("dropping undecodable message event")
		return
	}

	user := a.cache.user(ctx, ev.User)
	if user == nil {
		user = &slackapi.User{}
	}

	if a.cfg.IgnoreBotMessages && (ev.Subtype == "bot_message" || user.IsBot) {
		return
	}

	channel := a.cache.channel(ctx, ev.Channel)
	to := ev.Channel // direct message: no channel record, reply to the DM channel
	if channel != nil {
		if a.cfg.IgnoreGeneral && channel.Name == a.cfg.GeneralName {
			return
		}
		if a.cfg.ExposeChannelName {
			to = "#" + channel.Name
		} else {
			to = channel.ID
		}
	}

	envelope := Message{
		From:     ev.Channel,
		FromName: user.Name,
		To:       to,
		Channel:  channel,
		User:     user,
		Time:     parseTS(ev.TS),
	}

	resolver := cacheResolver{ctx: ctx, cache: a.cache}

	body, mentions := slackfmtDecode(ev.Text, resolver)
	msg := envelope
	msg.Body = body
	msg.MentionTo = mentions
	a.robot.Receive(msg)

	// Every attachment with non-empty decoded text becomes one additional
	// message sharing the parent's envelope.
	for _, att := range ev.Attachments {
		source := att.Fallback
		if source == "" {
			source = strings.TrimSpace(att.Text + " " + att.Pretext)
		}
		body, mentions := slackfmtDecode(source, resolver)
		if body == "" {
			continue
		}
		sub := envelope
		sub.Body = body
		sub.MentionTo = mentions
		a.robot.Receive(sub)
	}
}

// handleChannelChange collapses every channel lifecycle event into a full
// channel cache refresh.
func (a *Adapter) handleChannelChange(ctx context.Context, _ json.RawMessage) {
	a.cache.refreshChannels(ctx)
}

// handleChannelRemoved drops the affected record immediately, then
// refreshes. The explicit invalidation matters because refreshes merge
// and would otherwise keep serving the removed channel.
func (a *Adapter) handleChannelRemoved(ctx context.Context, raw json.RawMessage) {
	var ev struct {
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(raw, &ev); err == nil && ev.Channel != "" {
		a.cache.invalidateChannel(ev.Channel)
	}
	a.cache.refreshChannels(ctx)
}

// handleUserChange upserts the single user (or bot) record carried by
// user_change, bot_added and bot_changed events.
func (a *Adapter) handleUserChange(_ context.Context, raw json.RawMessage) {
	var ev struct {
		User *slackapi.User `json:"user"`
		Bot  *slackapi.User `json:"bot"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		a.log.Warn().Err(err).Msg("dropping undecodable user change event")
		return
	}
	record := ev.User
	if record == nil {
		record = ev.Bot
	}
	if record == nil || record.ID == "" {
		a.log.Warn().Msg("user change event without a user record")
		return
	}
	a.cache.upsertUser(record)
}

// parseTS converts a Slack "seconds.fraction" timestamp string to a
// time.Time. Unparseable timestamps yield the zero time.
func parseTS(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
