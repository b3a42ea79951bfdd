// Copyright 2024-2026 Aiku AI

package adapter

import (
	"time"

	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// Robot is the narrow surface of the bot framework the bridge feeds.
// Receive is fire-and-forget; the bridge never consults a return value.
type Robot interface {
	Receive(msg Message)
}

// Message is a normalized inbound chat message. Entity records are shared
// snapshots from the cache and must not be mutated by receivers.
type Message struct {
	Body     string
	From     string // origin channel ID
	FromName string
	// To is the reply destination: the raw channel ID, or "#name" when
	// channel-name exposure is configured. For DMs it is the DM channel ID.
	To        string
	Channel   *slackapi.Channel // nil when the origin is a direct message
	User      *slackapi.User
	MentionTo []*slackapi.User
	Time      time.Time
}

// OutboundMessage is a message submitted through Say.
type OutboundMessage struct {
	// To is a channel ID, or "#name" to be resolved against the cache.
	To   string
	Body string
	// Code wraps the body in a fenced block and skips mention encoding.
	Code        bool
	Parse       string
	Attachments []slackapi.Attachment
	File        *OutboundFile
}

// OutboundFile describes a local file to upload instead of posting text.
type OutboundFile struct {
	Path        string
	ContentType string
	Title       string
}
