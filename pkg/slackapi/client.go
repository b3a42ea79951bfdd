// Copyright 2024-2026 Aiku AI

// Package slackapi is a minimal Slack Web API client covering the methods
// the bridge needs: session URL acquisition, entity listing and lookup,
// message posting, file upload, reactions and presence.
package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production Slack Web API endpoint.
const DefaultBaseURL = "https://slack.com/api"

// APIError is a non-ok response from the Web API. Code is the machine
// readable error string from the envelope (e.g. "channel_not_found").
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api %s: %s", e.Method, e.Code)
}

// Client calls the Slack Web API. The zero value is not usable; use New.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Web API client authenticated with the given token.
func New(token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "slack_api").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the common {ok, error} wrapper around every response.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// call POSTs a form-encoded Web API method and decodes the response into
// out (which must embed the envelope fields via its own ok/error tags, or
// be nil to only check the envelope).
func (c *Client) call(ctx context.Context, method string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack api %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("slack api %s: %w", method, err)
	}
	return c.decode(method, body, out)
}

func (c *Client) decode(method string, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("slack api %s: %w", method, err)
	}
	if !env.OK {
		code := env.Error
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("slack api %s: %w", method, err)
	}
	return nil
}

// AuthTest verifies the token and returns the authenticated identity.
func (c *Client) AuthTest(ctx context.Context) (*AuthTestResponse, error) {
	var resp AuthTestResponse
	if err := c.call(ctx, "auth.test", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConnectURL requests a fresh real-time session URL via rtm.connect.
// The URL is single-use and expires quickly, so it must be fetched
// immediately before dialing.
func (c *Client) ConnectURL(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.call(ctx, "rtm.connect", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ListUsers returns all workspace members.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp struct {
		Members []User `json:"members"`
	}
	if err := c.call(ctx, "users.list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// ListChannels returns all conversations visible to the bot.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var resp struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.call(ctx, "conversations.list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// ListUsergroups returns all usergroups (subteams) in the workspace.
func (c *Client) ListUsergroups(ctx context.Context) ([]Usergroup, error) {
	var resp struct {
		Usergroups []Usergroup `json:"usergroups"`
	}
	if err := c.call(ctx, "usergroups.list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Usergroups, nil
}

// GetUser fetches a single user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	form := url.Values{"user": {userID}}
	if err := c.call(ctx, "users.info", form, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// GetChannel fetches a single conversation by ID.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var resp struct {
		Channel *Channel `json:"channel"`
	}
	form := url.Values{"channel": {channelID}}
	if err := c.call(ctx, "conversations.info", form, &resp); err != nil {
		return nil, err
	}
	return resp.Channel, nil
}

// PostMessageOptions are the chat.postMessage parameters the bridge uses.
type PostMessageOptions struct {
	Channel     string
	Text        string
	Parse       string
	Markdown    bool
	UnfurlLinks bool
	Attachments []Attachment
}

// PostMessage posts a message as the authenticated bot user.
func (c *Client) PostMessage(ctx context.Context, opts PostMessageOptions) error {
	form := url.Values{
		"channel": {opts.Channel},
		"text":    {opts.Text},
		"as_user": {"true"},
	}
	if opts.Parse != "" {
		form.Set("parse", opts.Parse)
	}
	if opts.Markdown {
		form.Set("mrkdwn", "true")
	}
	if opts.UnfurlLinks {
		form.Set("unfurl_links", "true")
	}
	if len(opts.Attachments) > 0 {
		encoded, err := json.Marshal(opts.Attachments)
		if err != nil {
			return fmt.Errorf("slack api chat.postMessage: %w", err)
		}
		form.Set("attachments", string(encoded))
	}
	return c.call(ctx, "chat.postMessage", form, nil)
}

// UploadFileOptions are the files.upload parameters the bridge uses.
type UploadFileOptions struct {
	Channel        string
	Path           string
	ContentType    string
	Title          string
	InitialComment string
}

// UploadFile uploads a local file to a channel via multipart files.upload.
func (c *Client) UploadFile(ctx context.Context, opts UploadFileOptions) error {
	f, err := os.Open(opts.Path)
	if err != nil {
		return fmt.Errorf("slack api files.upload: %w", err)
	}
	defer f.Close()

	title := opts.Title
	if title == "" {
		title = opts.Path
	}

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(opts.Path))
	if err != nil {
		return fmt.Errorf("slack api files.upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("slack api files.upload: %w", err)
	}
	fields := map[string]string{
		"channels":        opts.Channel,
		"as_user":         "true",
		"title":           title,
		"filename":        filepath.Base(opts.Path),
		"initial_comment": opts.InitialComment,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("slack api files.upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("slack api files.upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files.upload", strings.NewReader(buf.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack api files.upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("slack api files.upload: %w", err)
	}
	return c.decode("files.upload", body, nil)
}

// AddReaction adds an emoji reaction to the message identified by channel
// and timestamp.
func (c *Client) AddReaction(ctx context.Context, name, channelID, timestamp string) error {
	form := url.Values{
		"name":      {name},
		"channel":   {channelID},
		"timestamp": {timestamp},
	}
	return c.call(ctx, "reactions.add", form, nil)
}

// SetActive marks the bot user as active. Used as a periodic presence ping.
func (c *Client) SetActive(ctx context.Context) error {
	return c.call(ctx, "users.setActive", nil, nil)
}
