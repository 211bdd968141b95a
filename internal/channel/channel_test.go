package channel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

var testJob = webhook.Job{
	ID:          "42",
	Title:       "Backend Engineer",
	CompanyName: "Acme",
	Status:      webhook.StatusOpen,
	Locations:   []string{"Stockholm"},
}

var testPost = RenderedPost{
	Body:      "We are hiring a Backend Engineer.",
	TargetURL: "https://jobs.example.com/careers/acme/42",
}

func TestLinkedInPost(t *testing.T) {
	t.Parallel()

	var got ugcPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ugcPosts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q", auth)
		}
		if v := r.Header.Get("X-Restli-Protocol-Version"); v != "2.0.0" {
			t.Errorf("X-Restli-Protocol-Version = %q", v)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode share: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:1"}`))
	}))
	defer srv.Close()

	l := NewLinkedIn(LinkedInConfig{
		AccessToken:    "tok",
		OrganizationID: "123",
		BaseURL:        srv.URL,
	}, logx.Nop())

	out := l.Post(context.Background(), testPost, testJob)
	if !out.Succeeded {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Detail != "urn:li:share:1" {
		t.Fatalf("Detail = %q", out.Detail)
	}
	if got.Author != "urn:li:organization:123" {
		t.Fatalf("author = %q", got.Author)
	}
	if got.LifecycleState != "PUBLISHED" {
		t.Fatalf("lifecycleState = %q", got.LifecycleState)
	}
}

func TestLinkedInPostUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"expired token"}`))
	}))
	defer srv.Close()

	l := NewLinkedIn(LinkedInConfig{AccessToken: "tok", OrganizationID: "123", BaseURL: srv.URL}, logx.Nop())
	out := l.Post(context.Background(), testPost, testJob)
	if out.Succeeded {
		t.Fatal("expected failure on 401")
	}
	if !strings.Contains(out.Error, "401") || !strings.Contains(out.Error, "expired token") {
		t.Fatalf("Error = %q", out.Error)
	}
}

func TestLinkedInCheck(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l := NewLinkedIn(LinkedInConfig{AccessToken: "tok", OrganizationID: "123", BaseURL: srv.URL}, logx.Nop())
	if err := l.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestFacebookPost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page1/feed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if msg := r.PostFormValue("message"); msg != testPost.Body {
			t.Errorf("message = %q", msg)
		}
		if link := r.PostFormValue("link"); link != testPost.TargetURL {
			t.Errorf("link = %q", link)
		}
		if tok := r.PostFormValue("access_token"); tok != "tok" {
			t.Errorf("access_token = %q", tok)
		}
		_, _ = w.Write([]byte(`{"id":"page1_99"}`))
	}))
	defer srv.Close()

	f := NewFacebook(FacebookConfig{AccessToken: "tok", PageID: "page1", BaseURL: srv.URL}, logx.Nop())
	out := f.Post(context.Background(), testPost, testJob)
	if !out.Succeeded || out.Detail != "page1_99" {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestFacebookPostGraphError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	f := NewFacebook(FacebookConfig{AccessToken: "tok", PageID: "page1", BaseURL: srv.URL}, logx.Nop())
	out := f.Post(context.Background(), testPost, testJob)
	if out.Succeeded {
		t.Fatal("expected failure on 400")
	}
	if !strings.Contains(out.Error, "Invalid OAuth access token") {
		t.Fatalf("Error = %q", out.Error)
	}
}

func TestGoogleChatPost(t *testing.T) {
	t.Parallel()

	var card map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &card); err != nil {
			t.Errorf("decode card: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGoogleChat(GoogleChatConfig{WebhookURL: srv.URL}, logx.Nop())
	out := g.Post(context.Background(), testPost, testJob)
	if !out.Succeeded {
		t.Fatalf("outcome = %+v", out)
	}

	cards, ok := card["cards"].([]any)
	if !ok || len(cards) != 1 {
		t.Fatalf("cards = %v", card["cards"])
	}
	first := cards[0].(map[string]any)
	header := first["header"].(map[string]any)
	if header["title"] != testJob.Title {
		t.Fatalf("card title = %v", header["title"])
	}
}

func TestGoogleChatSendText(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGoogleChat(GoogleChatConfig{WebhookURL: srv.URL}, logx.Nop())
	if err := g.SendText(context.Background(), "[WARN] something happened"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got["text"] != "[WARN] something happened" {
		t.Fatalf("text = %v", got["text"])
	}
}

func TestGoogleChatCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://chat.googleapis.com/v1/spaces/x/messages?key=k", false},
		{"plain http", "http://chat.googleapis.com/v1/spaces/x", true},
		{"no host", "https://", true},
		{"garbage", "://not-a-url", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := NewGoogleChat(GoogleChatConfig{WebhookURL: tc.url}, logx.Nop())
			err := g.Check(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("Check(%q) err = %v, wantErr %v", tc.url, err, tc.wantErr)
			}
		})
	}
}

func TestNewTelegramValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTelegram(TelegramConfig{Token: "", ChatID: 1, Offline: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewTelegram(TelegramConfig{Token: "t", ChatID: 0, Offline: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for zero chat id")
	}
	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: 1, Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	if tg.Platform() != PlatformTelegram {
		t.Fatalf("Platform() = %q", tg.Platform())
	}
}

func TestTelegramPostCanceledContext(t *testing.T) {
	t.Parallel()

	tg, err := NewTelegram(TelegramConfig{Token: "t", ChatID: 1, Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := tg.Post(ctx, testPost, testJob)
	if out.Succeeded {
		t.Fatal("expected failure with canceled context")
	}
}
