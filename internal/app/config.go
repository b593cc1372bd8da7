package app

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/combogate/core/config"
	coredatabase "github.com/m3rciful/combogate/core/database"
	"github.com/m3rciful/combogate/internal/combo"
	"github.com/m3rciful/combogate/internal/payment"
	"github.com/m3rciful/combogate/internal/refresh"
)

const (
	// StorageFile keeps the state document in a JSON file.
	StorageFile = "file"
	// StoragePostgres keeps the state document in a jsonb row.
	StoragePostgres = "postgres"
	// StorageRedis keeps the state document under one redis key.
	StorageRedis = "redis"

	// SourcePlain takes the whole response body as content.
	SourcePlain = "plain"
	// SourceCards extracts cards from an HTML page.
	SourceCards = "cards"

	defaultStatePath = "data/combo_state.json"
	defaultAsset     = "USDT"
	defaultAmount    = "1"
	defaultInvoice   = "Access to the daily combo"
)

// StorageConfig selects and configures the state backend.
type StorageConfig struct {
	Backend  string              `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	Path     string              `yaml:"path" envconfig:"STORAGE_PATH"`
	Redis    RedisConfig         `yaml:"redis"`
	Database coredatabase.Config `yaml:"database"`
}

// RedisConfig holds the redis connection and key.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Key      string `yaml:"key" envconfig:"REDIS_KEY"`
}

// RefreshConfig controls the content refresh scheduler.
type RefreshConfig struct {
	Source string `yaml:"source" envconfig:"REFRESH_SOURCE"`
	// Schedule is a cron spec or descriptor, e.g. "@every 3h" or "0 9 * * *".
	Schedule       string `yaml:"schedule" envconfig:"REFRESH_SCHEDULE"`
	SkipInitialRun bool   `yaml:"skip_initial_run" envconfig:"REFRESH_SKIP_INITIAL_RUN"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"REFRESH_TIMEOUT_SECONDS"`
	CardClass      string `yaml:"card_class"`
	CardLimit      int    `yaml:"card_limit"`
	// Timezone names the IANA zone used for dates and cron specs; empty is local time.
	Timezone string `yaml:"timezone" envconfig:"REFRESH_TIMEZONE"`
	// SourceURL seeds the stored source URL when none is set yet.
	SourceURL string `yaml:"source_url" envconfig:"REFRESH_SOURCE_URL"`
}

// PaymentConfig configures the invoice provider and the price.
type PaymentConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"CRYPTO_PAY_BASE_URL"`
	Token          string `yaml:"token" envconfig:"CRYPTO_PAY_TOKEN"`
	Asset          string `yaml:"asset" envconfig:"PAYMENT_ASSET"`
	Amount         string `yaml:"amount" envconfig:"PAYMENT_AMOUNT"`
	Description    string `yaml:"description"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ContentConfig overrides user facing texts.
type ContentConfig struct {
	Texts        combo.Texts `yaml:"texts"`
	CancelButton string      `yaml:"cancel_button"`
	Cancelled    string      `yaml:"cancelled"`
	// PromptTTLMinutes drops unanswered admin prompts; 0 means 15.
	PromptTTLMinutes int `yaml:"prompt_ttl_minutes"`
}

// PromptTTL is how long a prompt waits for its answer; zero lets the
// adapter pick its default.
func (c ContentConfig) PromptTTL() time.Duration {
	return time.Duration(c.PromptTTLMinutes) * time.Minute
}

// MetricsConfig enables the prometheus endpoint; an empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"METRICS_ADDR"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage StorageConfig `yaml:"storage"`
	Refresh RefreshConfig `yaml:"refresh"`
	Payment PaymentConfig `yaml:"payment"`
	Content ContentConfig `yaml:"content"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CoreConfig exposes the embedded transport and logging configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads the YAML file, overlays the environment and normalizes.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	st := &cfg.Storage
	st.Backend = strings.ToLower(strings.TrimSpace(st.Backend))
	switch st.Backend {
	case "", StorageFile:
		st.Backend = StorageFile
		if strings.TrimSpace(st.Path) == "" {
			st.Path = defaultStatePath
		}
	case StoragePostgres:
		db := st.Database
		if strings.TrimSpace(db.DSN) == "" && (db.Host == "" || db.Name == "") {
			return fmt.Errorf("storage.database needs dsn or host and name when storage.backend is 'postgres'")
		}
	case StorageRedis:
		if strings.TrimSpace(st.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required when storage.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: file, postgres, redis", st.Backend)
	}

	rf := &cfg.Refresh
	rf.Source = strings.ToLower(strings.TrimSpace(rf.Source))
	switch rf.Source {
	case "":
		rf.Source = SourcePlain
	case SourcePlain, SourceCards:
	default:
		return fmt.Errorf("invalid refresh.source %q; allowed: plain, cards", rf.Source)
	}
	if rf.TimeoutSeconds < 0 || rf.CardLimit < 0 {
		return fmt.Errorf("refresh timeouts and limits must be >= 0")
	}
	if _, err := rf.Location(); err != nil {
		return err
	}
	if _, err := refresh.ParseSchedule(rf.ScheduleSpec()); err != nil {
		return err
	}
	if u := strings.TrimSpace(rf.SourceURL); u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("refresh.source_url must be an http(s) URL")
		}
		rf.SourceURL = u
	}

	pc := &cfg.Payment
	if strings.TrimSpace(pc.Token) == "" {
		return fmt.Errorf("payment.token is required")
	}
	if pc.BaseURL == "" {
		pc.BaseURL = payment.DefaultBaseURL
	}
	if pc.Asset == "" {
		pc.Asset = defaultAsset
	}
	if pc.Amount == "" {
		pc.Amount = defaultAmount
	}
	if pc.Description == "" {
		pc.Description = defaultInvoice
	}
	if pc.TimeoutSeconds < 0 {
		return fmt.Errorf("payment.timeout_seconds must be >= 0")
	}
	return nil
}

// Location resolves the configured timezone.
func (r RefreshConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(r.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// ScheduleSpec returns the cron spec with the configured timezone applied,
// unless the spec already names one.
func (r RefreshConfig) ScheduleSpec() string {
	spec := strings.TrimSpace(r.Schedule)
	if spec == "" {
		spec = refresh.DefaultSchedule
	}
	tz := strings.TrimSpace(r.Timezone)
	if tz == "" || strings.HasPrefix(spec, "TZ=") || strings.HasPrefix(spec, "CRON_TZ=") {
		return spec
	}
	return "CRON_TZ=" + tz + " " + spec
}
