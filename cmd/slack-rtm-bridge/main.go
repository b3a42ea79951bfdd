// Copyright 2024-2026 Aiku AI

// Command slack-rtm-bridge connects a robot framework to a Slack workspace
// over the real-time messaging stream. It keeps one persistent websocket
// session alive, normalizes inbound events into plain-text messages, and
// posts outbound messages through the Web API.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aiku/slack-rtm-bridge/pkg/adapter"
	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// logRobot is a stand-in robot that logs every normalized message. A real
// deployment wires the adapter into a message bus instead.
type logRobot struct {
	log zerolog.Logger
}

func (r *logRobot) Receive(msg adapter.Message) {
	r.log.Info().
		Str("from", msg.From).
		Str("from_name", msg.FromName).
		Str("to", msg.To).
		Int("mentions", len(msg.MentionTo)).
		Msg(msg.Body)
}

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := adapter.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	api := slackapi.New(cfg.Token, log)
	a := adapter.New(cfg, api, &logRobot{log: log}, log)

	if err := a.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("bridge exited")
	}
	log.Info().Msg("bridge exited cleanly")
}
