// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/slack-rtm-bridge/pkg/rtm"
	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// presenceInterval is how often the bot is marked active via the Web API.
const presenceInterval = 5 * time.Second

// reconnectDelay is the pause before a reconnect attempt after a failed
// session URL fetch or handshake.
const reconnectDelay = 5 * time.Second

// Adapter bridges the robot framework to the Slack real-time stream. It
// owns the session lifecycle: URL acquisition, connection, event dispatch,
// and the reconnect policy.
type Adapter struct {
	cfg   Config
	api   *slackapi.Client
	robot Robot
	log   zerolog.Logger

	cache    *entityCache
	handlers map[string]func(ctx context.Context, raw json.RawMessage)

	// botName is the authenticated bot user name, seeded from auth.test.
	botName string

	// dialRTM is a seam for tests; defaults to rtm.Dial.
	dialRTM func(ctx context.Context, url string, log zerolog.Logger) (*rtm.Client, error)
}

// New creates an adapter wired to the given Web API client and robot.
func New(cfg Config, api *slackapi.Client, robot Robot, log zerolog.Logger) *Adapter {
	a := &Adapter{
		cfg:     cfg,
		api:     api,
		robot:   robot,
		log:     log.With().Str("component", "adapter").Logger(),
		cache:   newEntityCache(api, log),
		dialRTM: rtm.Dial,
	}
	a.handlers = a.buildHandlers()
	return a
}

// BotName returns the authenticated bot user name. Valid after Run has
// completed its initial auth test.
func (a *Adapter) BotName() string {
	return a.botName
}

// Run is the blocking entry point. It authenticates, builds the entity
// caches, starts the presence ticker, and then drives connect/dispatch
// cycles until the connection drops (and auto-reconnect is off) or the
// context is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	auth, err := a.api.AuthTest(ctx)
	if err != nil {
		return err
	}
	a.botName = auth.User
	a.log.Info().Str("bot_user", auth.User).Str("team", auth.Team).Msg("authenticated")

	a.cache.refreshUsers(ctx)
	a.cache.refreshChannels(ctx)
	a.cache.refreshUsergroups(ctx)

	go a.presenceLoop(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := a.connectOnce(ctx)
		if err != nil && !errors.Is(err, rtm.ErrClosed) {
			// Session URL fetch or handshake failure.
			if !a.cfg.AutoReconnect {
				return err
			}
			a.log.Warn().Err(err).Msg("connect failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if !a.cfg.AutoReconnect {
			return err
		}
		a.log.Info().Msg("disconnected, reconnecting with a fresh session URL")
	}
}

// connectOnce obtains a fresh session URL, dials, binds the dispatcher and
// blocks in the client run loop until the connection is lost.
func (a *Adapter) connectOnce(ctx context.Context) error {
	url, err := a.api.ConnectURL(ctx)
	if err != nil {
		return err
	}

	client, err := a.dialRTM(ctx, url, a.log)
	if err != nil {
		return err
	}

	client.OnEvent(func(raw json.RawMessage) {
		a.dispatch(ctx, raw)
	})
	return client.Run()
}

// presenceLoop pings the Web API presence endpoint on an independent timer
// for the lifetime of the process.
func (a *Adapter) presenceLoop(ctx context.Context) {
	ticker := time.NewTicker(presenceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.api.SetActive(ctx); err != nil {
				a.log.Debug().Err(err).Msg("presence ping failed")
			}
		}
	}
}

// Say renders and sends an outbound message. A "#name" destination that
// cannot be resolved drops the send silently.
func (a *Adapter) Say(ctx context.Context, msg OutboundMessage) error {
	channel := msg.To
	if strings.HasPrefix(channel, "#") {
		channel = a.cache.channelIDByName(channel[1:])
		if channel == "" {
			a.log.Debug().Str("to", msg.To).Msg("dropping send to unresolvable channel name")
			return nil
		}
	}
	if channel == "" {
		return nil
	}

	switch {
	case len(msg.Attachments) > 0:
		parse := msg.Parse
		if parse == "" {
			parse = "full"
		}
		return a.api.PostMessage(ctx, slackapi.PostMessageOptions{
			Channel:     channel,
			Text:        a.renderBody(msg, false),
			Parse:       parse,
			UnfurlLinks: true,
			Attachments: msg.Attachments,
		})
	case msg.File != nil:
		title := msg.File.Title
		if title == "" {
			title = msg.File.Path
		}
		return a.api.UploadFile(ctx, slackapi.UploadFileOptions{
			Channel:        channel,
			Path:           msg.File.Path,
			ContentType:    msg.File.ContentType,
			Title:          title,
			InitialComment: msg.Body,
		})
	default:
		return a.api.PostMessage(ctx, slackapi.PostMessageOptions{
			Channel:  channel,
			Text:     a.renderBody(msg, true),
			Markdown: true,
		})
	}
}

// renderBody produces the wire text for an outbound body: fenced verbatim
// when the code flag is set, otherwise the mention-encoded text (only on
// the plain-message path).
func (a *Adapter) renderBody(msg OutboundMessage, encode bool) string {
	if msg.Code {
		return "```\n" + msg.Body + "\n```"
	}
	if !encode {
		return msg.Body
	}
	return slackfmtEncode(msg.Body, cacheResolver{ctx: context.Background(), cache: a.cache})
}

// AddReaction adds an emoji reaction to the message identified by channel
// and timestamp.
func (a *Adapter) AddReaction(ctx context.Context, reaction, channelID, timestamp string) error {
	return a.api.AddReaction(ctx, reaction, channelID, timestamp)
}
