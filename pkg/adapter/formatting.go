// Copyright 2024-2026 Aiku AI

package adapter

import (
	"github.com/aiku/slack-rtm-bridge/pkg/adapter/slackfmt"
	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// slackfmtDecode rewrites inbound wire text to human-readable text.
func slackfmtDecode(text string, r slackfmt.DecodeResolver) (string, []*slackapi.User) {
	return slackfmt.Decode(text, r)
}

// slackfmtEncode rewrites outbound human-readable text to wire text.
func slackfmtEncode(text string, r slackfmt.EncodeResolver) string {
	return slackfmt.Encode(text, r)
}
