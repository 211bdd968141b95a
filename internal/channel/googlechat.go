package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// GoogleChatConfig configures the incoming-webhook notifier.
type GoogleChatConfig struct {
	WebhookURL string
	Timeout    time.Duration // 0 means 10s
}

// GoogleChat notifies a chat room about the announcement via an
// incoming-webhook card. It doubles as the logx chat sink (SendText).
type GoogleChat struct {
	cfg  GoogleChatConfig
	http *http.Client
	log  logx.Logger
}

func NewGoogleChat(cfg GoogleChatConfig, log logx.Logger) *GoogleChat {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &GoogleChat{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With(logx.String("channel", PlatformGoogleChat)),
	}
}

func (g *GoogleChat) Platform() string { return PlatformGoogleChat }

func (g *GoogleChat) Post(ctx context.Context, post RenderedPost, job webhook.Job) Outcome {
	card := buildJobCard(post, job)
	if err := g.send(ctx, card); err != nil {
		return failure(PlatformGoogleChat, err)
	}
	g.log.Debug("card sent", logx.String("job_id", job.ID))
	return success(PlatformGoogleChat, "card delivered")
}

// SendText delivers a plain-text message; this is the logx.Sender used for
// mirroring warn+ log lines into the room.
func (g *GoogleChat) SendText(ctx context.Context, text string) error {
	return g.send(ctx, map[string]any{"text": text})
}

func (g *GoogleChat) send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("post chat message: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<14))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat webhook responded %d: %s", resp.StatusCode, compactBody(respBody))
	}
	return nil
}

// Check only validates the webhook URL shape: posting a probe message would
// spam the room.
func (g *GoogleChat) Check(_ context.Context) error {
	u, err := url.Parse(g.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("chat webhook url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return errors.New("chat webhook url must be https")
	}
	return nil
}

// buildJobCard renders the announcement as a chat card: header with title and
// company, a detail widget, and a link button to the posting.
func buildJobCard(post RenderedPost, job webhook.Job) map[string]any {
	subtitle := job.CompanyName
	if job.Department != "" {
		subtitle = strings.TrimSpace(subtitle + " · " + job.Department)
	}

	var details strings.Builder
	if loc := job.Location(); loc != "" {
		fmt.Fprintf(&details, "<b>Location:</b> %s<br>", loc)
	}
	if job.EmploymentType != "" {
		fmt.Fprintf(&details, "<b>Employment:</b> %s<br>", job.EmploymentType)
	}
	if job.RemoteStatus != "" {
		fmt.Fprintf(&details, "<b>Remote:</b> %s<br>", job.RemoteStatus)
	}
	fmt.Fprintf(&details, "<b>Status:</b> %s", job.Status)

	widgets := []map[string]any{
		{"textParagraph": map[string]any{"text": details.String()}},
	}
	if post.Body != "" {
		widgets = append(widgets, map[string]any{
			"textParagraph": map[string]any{"text": post.Body},
		})
	}
	widgets = append(widgets, map[string]any{
		"buttons": []map[string]any{
			{
				"textButton": map[string]any{
					"text": "View job posting",
					"onClick": map[string]any{
						"openLink": map[string]any{"url": post.TargetURL},
					},
				},
			},
		},
	})

	return map[string]any{
		"text": "New job posting published",
		"cards": []map[string]any{
			{
				"header": map[string]any{
					"title":    job.Title,
					"subtitle": subtitle,
				},
				"sections": []map[string]any{
					{"widgets": widgets},
				},
			},
		},
	}
}
