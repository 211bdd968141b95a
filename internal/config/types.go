package config

// Config is the on-disk configuration for the jobcaster daemon.
//
// Files may be JSON or YAML (see yaml.go); decoding is strict, unknown keys
// are rejected so typos fail loudly at startup instead of silently at 3am.
//
// All duration fields are Go duration strings (e.g. "500ms", "15s", "1m").
type Config struct {
	Server    ServerConfig    `json:"server"`
	Site      SiteConfig      `json:"site"`
	Signature SignatureConfig `json:"signature"`
	Ledger    LedgerConfig    `json:"ledger,omitempty"`
	Generator GeneratorConfig `json:"generator"`
	Channels  ChannelsConfig  `json:"channels"`
	Logging   LoggingConfig   `json:"logging"`
	Health    HealthConfig    `json:"health,omitempty"`
	Debug     DebugConfig     `json:"debug,omitempty"`
}

type ServerConfig struct {
	// Address to listen on, e.g. ":8080" or "127.0.0.1:8080".
	Address string `json:"address"`

	// WebhookPath is the inbound webhook route. Defaults to "/webhook/ats".
	WebhookPath string `json:"webhook_path,omitempty"`

	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

// SiteConfig describes the careers site announcements link back to.
type SiteConfig struct {
	BaseURL string `json:"base_url"`

	// Brand is the employer-brand name worked into generated copy.
	Brand string `json:"brand,omitempty"`

	// DefaultCompanySlug is used when the webhook payload carries no slug.
	DefaultCompanySlug string `json:"default_company_slug,omitempty"`
}

// SignatureConfig controls inbound webhook authentication.
// Verification is always enforced; there is deliberately no off switch.
type SignatureConfig struct {
	Secret string `json:"secret"`

	// Headers is the ordered list of header names checked for the signature
	// token; first present wins. Defaults cover the known sender variants.
	Headers []string `json:"headers,omitempty"`

	// MaxAge optionally rejects tokens whose embedded timestamp is older
	// than this window. Empty/zero disables the freshness check.
	MaxAge string `json:"max_age,omitempty"`
}

// LedgerConfig selects the publish-ledger backend.
//
// Driver values:
//   - "" or "memory": in-process map (publish state lost on restart)
//   - "sqlite": durable single-file database
//   - "redis": shared store, suitable for multiple replicas
type LedgerConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`      // sqlite only
	RedisURL    string `json:"redis_url,omitempty"` // redis only
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type GeneratorConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// ChannelsConfig holds one block per destination. A nil/disabled block means
// the channel is not built; dispatch order follows the field order here.
type ChannelsConfig struct {
	LinkedIn   *LinkedInConfig   `json:"linkedin,omitempty"`
	Facebook   *FacebookConfig   `json:"facebook,omitempty"`
	GoogleChat *GoogleChatConfig `json:"google_chat,omitempty"`
	Telegram   *TelegramConfig   `json:"telegram,omitempty"`
}

type LinkedInConfig struct {
	Enabled        bool   `json:"enabled"`
	AccessToken    string `json:"access_token"`
	OrganizationID string `json:"organization_id"`
	BaseURL        string `json:"base_url,omitempty"`
	Timeout        string `json:"timeout,omitempty"`
}

type FacebookConfig struct {
	Enabled     bool   `json:"enabled"`
	AccessToken string `json:"access_token"`
	PageID      string `json:"page_id"`
	BaseURL     string `json:"base_url,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
}

type GoogleChatConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
	Timeout    string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
	Timeout string `json:"timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
	Chat    ChatLogConfig `json:"chat,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// ChatLogConfig mirrors warn+ log lines into the Google Chat room.
type ChatLogConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// DebugConfig controls the optional pprof listener. Binding beyond
// loopback requires a token or allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Address       string `json:"address,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}

// HealthConfig controls the periodic channel reachability prober.
type HealthConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a cron spec ("*/5 * * * *") or an @every descriptor
	// ("@every 5m"). Defaults to "@every 5m".
	Schedule string `json:"schedule,omitempty"`

	Timeout string `json:"timeout,omitempty"`
}
