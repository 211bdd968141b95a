package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

const defaultFacebookBaseURL = "https://graph.facebook.com/v18.0"

// FacebookConfig configures the page-feed poster.
type FacebookConfig struct {
	AccessToken string
	PageID      string
	BaseURL     string        // override for tests
	Timeout     time.Duration // 0 means 30s
}

// Facebook posts announcements to a page feed via the Graph API.
type Facebook struct {
	cfg  FacebookConfig
	http *http.Client
	log  logx.Logger
}

func NewFacebook(cfg FacebookConfig, log logx.Logger) *Facebook {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultFacebookBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Facebook{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With(logx.String("channel", PlatformFacebook)),
	}
}

func (f *Facebook) Platform() string { return PlatformFacebook }

func (f *Facebook) Post(ctx context.Context, post RenderedPost, _ webhook.Job) Outcome {
	form := url.Values{}
	form.Set("message", post.Body)
	form.Set("link", post.TargetURL)
	form.Set("access_token", f.cfg.AccessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", f.cfg.BaseURL, f.cfg.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(PlatformFacebook, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.http.Do(req)
	if err != nil {
		return failure(PlatformFacebook, fmt.Errorf("post to page feed: %w", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(PlatformFacebook, fmt.Errorf("facebook responded %d: %s",
			resp.StatusCode, graphErrorMessage(respBody)))
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(respBody, &out)
	f.log.Debug("feed post created", logx.String("post_id", out.ID))
	return success(PlatformFacebook, out.ID)
}

// Check validates the page token against /me.
func (f *Facebook) Check(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/me?access_token=%s", f.cfg.BaseURL, url.QueryEscape(f.cfg.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("facebook token check: status %d", resp.StatusCode)
	}
	return nil
}

// graphErrorMessage pulls the human-readable message out of a Graph API error
// body, falling back to the raw (compacted) body.
func graphErrorMessage(b []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return compactBody(b)
}
