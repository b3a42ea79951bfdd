// Copyright 2024-2026 Aiku AI

package slackapi

// User is a Slack user record as returned by users.list and users.info.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	IsBot   bool    `json:"is_bot"`
	Deleted bool    `json:"deleted"`
	Profile Profile `json:"profile"`
}

// Profile holds the subset of the user profile the bridge cares about.
type Profile struct {
	DisplayName string `json:"display_name"`
	RealName    string `json:"real_name"`
}

// Channel is a Slack conversation record (public channel, private channel
// or DM) as returned by conversations.list and conversations.info.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsArchived bool   `json:"is_archived"`
	IsIM       bool   `json:"is_im"`
	IsGeneral  bool   `json:"is_general"`
}

// Usergroup is a Slack usergroup (subteam) record from usergroups.list.
type Usergroup struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

// AuthTestResponse is the payload of auth.test.
type AuthTestResponse struct {
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// Attachment is a Slack message attachment. Inbound attachments carry the
// fallback/text/pretext fields used to derive sub-messages; outbound
// attachments are passed through to chat.postMessage as-is.
type Attachment struct {
	Fallback string `json:"fallback,omitempty"`
	Text     string `json:"text,omitempty"`
	Pretext  string `json:"pretext,omitempty"`
	Color    string `json:"color,omitempty"`
	Title    string `json:"title,omitempty"`
}
