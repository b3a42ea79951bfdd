// Copyright 2024-2026 Aiku AI

// Package adapter bridges a robot framework to the Slack real-time
// messaging stream. It owns the session lifecycle and the entity caches,
// and translates between wire events and normalized messages.
//
// # Core Types
//
// [Adapter] is the session engine: it obtains a fresh session URL, dials
// the websocket through [github.com/aiku/slack-rtm-bridge/pkg/rtm], routes
// inbound events through an explicit type-to-handler table, and applies
// the reconnect policy. Outbound messages go through [Adapter.Say], which
// resolves "#name" destinations against the channel cache and picks the
// right Web API call for plain text, attachments or file uploads.
//
// [Message] is the normalized inbound message handed to the [Robot]
// collaborator. Entity records attached to it are cache snapshots shared
// by reference; they are replaced on refresh, never mutated.
//
// The entity caches are session-scoped and memory-only: they are built
// from bulk listings at connect time, backfilled one entity at a time on
// lookup misses (misses are cached too, so an unknown ID is fetched at
// most once), and rebuilt on channel lifecycle events.
//
// # Sub-packages
//
//   - slackfmt converts between Slack wire mention syntax and plain text.
package adapter
