package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// TelegramConfig configures the announcement-channel notifier.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// Offline skips Telegram API validation at construction (tests).
	Offline bool
	Timeout time.Duration // 0 means 15s
}

// Telegram posts announcements into a Telegram channel or group.
type Telegram struct {
	cfg TelegramConfig
	bot *tele.Bot
	log logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{
		cfg: cfg,
		bot: b,
		log: log.With(logx.String("channel", PlatformTelegram)),
	}, nil
}

func (t *Telegram) Platform() string { return PlatformTelegram }

// Post sends the announcement text with the job link appended. telebot has no
// context plumbing; the bounded HTTP client keeps the call from hanging, and
// an already-canceled ctx short-circuits before sending.
func (t *Telegram) Post(ctx context.Context, post RenderedPost, job webhook.Job) Outcome {
	if err := ctx.Err(); err != nil {
		return failure(PlatformTelegram, err)
	}

	text := post.Body
	if post.TargetURL != "" {
		text += "\n\n" + post.TargetURL
	}

	msg, err := t.bot.Send(tele.ChatID(t.cfg.ChatID), text)
	if err != nil {
		return failure(PlatformTelegram, fmt.Errorf("send announcement: %w", err))
	}
	t.log.Debug("announcement sent", logx.String("job_id", job.ID), logx.Int("message_id", msg.ID))
	return success(PlatformTelegram, strconv.Itoa(msg.ID))
}

// Check probes the bot API with getMe.
func (t *Telegram) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Raw("getMe", nil); err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	return nil
}
