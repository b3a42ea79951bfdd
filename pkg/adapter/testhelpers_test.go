// Copyright 2024-2026 Aiku AI

package adapter

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aiku/slack-rtm-bridge/pkg/slackapi"
)

// fakeSlack emulates the Web API: canned JSON per method, every call
// recorded. Responses can be swapped mid-test to simulate outages.
type fakeSlack struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []recordedCall
}

type recordedCall struct {
	method string
	form   url.Values
}

func newFakeSlack(t *testing.T, responses map[string]string) (*fakeSlack, *slackapi.Client) {
	t.Helper()
	fake := &fakeSlack{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			_ = r.ParseForm()
		}
		method := r.URL.Path[1:]

		fake.mu.Lock()
		fake.calls = append(fake.calls, recordedCall{method: method, form: r.Form})
		body, ok := fake.responses[method]
		fake.mu.Unlock()

		if !ok {
			body = `{"ok":false,"error":"unknown_method"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := slackapi.New("xoxb-test", zerolog.Nop(), slackapi.WithBaseURL(srv.URL))
	return fake, client
}

func (f *fakeSlack) setResponse(method, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = body
}

func (f *fakeSlack) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeSlack) lastCall(t *testing.T, method string) recordedCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}
	t.Fatalf("no recorded call to %s", method)
	return recordedCall{}
}

// mockRobot records every delivered message.
type mockRobot struct {
	mu       sync.Mutex
	messages []Message
}

func (r *mockRobot) Receive(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *mockRobot) received() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// newTestAdapter builds an adapter against a fake Web API with an empty
// cache. Tests seed the cache directly or via the fake's list responses.
func newTestAdapter(t *testing.T, cfg Config, responses map[string]string) (*Adapter, *fakeSlack, *mockRobot) {
	t.Helper()
	if responses == nil {
		responses = map[string]string{}
	}
	fake, client := newFakeSlack(t, responses)
	robot := &mockRobot{}
	a := New(cfg, client, robot, zerolog.Nop())
	return a, fake, robot
}

func seedUser(a *Adapter, u *slackapi.User) {
	a.cache.users[u.ID] = u
}

func seedChannel(a *Adapter, ch *slackapi.Channel) {
	a.cache.channels[ch.ID] = ch
}

func seedUsergroup(a *Adapter, g *slackapi.Usergroup) {
	a.cache.usergroups[g.ID] = g
}
