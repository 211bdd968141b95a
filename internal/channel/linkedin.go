package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

const defaultLinkedInBaseURL = "https://api.linkedin.com/v2"

// LinkedInConfig configures the organization-page poster.
type LinkedInConfig struct {
	AccessToken    string
	OrganizationID string
	BaseURL        string        // override for tests
	Timeout        time.Duration // 0 means 30s
}

// LinkedIn posts UGC shares to a company page.
type LinkedIn struct {
	cfg  LinkedInConfig
	http *http.Client
	log  logx.Logger
}

func NewLinkedIn(cfg LinkedInConfig, log logx.Logger) *LinkedIn {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultLinkedInBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LinkedIn{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With(logx.String("channel", PlatformLinkedIn)),
	}
}

func (l *LinkedIn) Platform() string { return PlatformLinkedIn }

// ugcPost is the /v2/ugcPosts request shape (ARTICLE share against the
// organization URN).
type ugcPost struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

func (l *LinkedIn) Post(ctx context.Context, post RenderedPost, job webhook.Job) Outcome {
	payload := ugcPost{
		Author:         "urn:li:organization:" + l.cfg.OrganizationID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": post.Body},
				"shareMediaCategory": "ARTICLE",
				"media": []map[string]any{
					{
						"status":      "READY",
						"media":       post.TargetURL,
						"title":       map[string]any{"text": job.Title},
						"description": map[string]any{"text": "View the full job posting"},
					},
				},
			},
		},
		Visibility: map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failure(PlatformLinkedIn, fmt.Errorf("encode share: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.BaseURL+"/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return failure(PlatformLinkedIn, err)
	}
	req.Header.Set("Authorization", "Bearer "+l.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.http.Do(req)
	if err != nil {
		return failure(PlatformLinkedIn, fmt.Errorf("post share: %w", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(PlatformLinkedIn, fmt.Errorf("linkedin responded %d: %s",
			resp.StatusCode, compactBody(respBody)))
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(respBody, &out)
	l.log.Debug("share posted", logx.String("post_id", out.ID))
	return success(PlatformLinkedIn, out.ID)
}

// Check validates the access token against /me.
func (l *LinkedIn) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.BaseURL+"/me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+l.cfg.AccessToken)

	resp, err := l.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("linkedin token check: status %d", resp.StatusCode)
	}
	return nil
}

// compactBody squeezes an error response onto one log-friendly line.
func compactBody(b []byte) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
