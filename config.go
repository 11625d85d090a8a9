package reviewpress

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/reviewpress/reviewpress/ingest"
	"github.com/reviewpress/reviewpress/store"
	"github.com/reviewpress/reviewpress/views"
)

// SiteConfig holds all configuration for a reviewpress site.
type SiteConfig struct {
	Name        string `toml:"name"`        // Site name
	URL         string `toml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `toml:"description"` // Site description for RSS and meta tags
	Author      string `toml:"author"`      // Byline of generated posts and JSON-LD author
	Tagline     string `toml:"tagline"`

	Addr      string `toml:"addr"`       // Listen address (default ":3000")
	StaticDir string `toml:"static_dir"` // default "public"

	Store     store.Config    `toml:"store"`
	Cache     CacheConfig     `toml:"cache"`
	AI        ingest.AIConfig `toml:"ai"`
	Functions FunctionsConfig `toml:"functions"`
	Ingest    IngestConfig    `toml:"ingest"`
}

// CacheConfig controls the post list cache. A zero TTL disables it.
type CacheConfig struct {
	TTLSeconds int    `toml:"ttl_seconds"`
	RedisURL   string `toml:"redis_url"`
}

// TTL returns the cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// FunctionsConfig secures the webhook and generator endpoints.
type FunctionsConfig struct {
	WebhookSecret string `toml:"webhook_secret"` // HMAC key for X-Hub-Signature-256; empty skips the check
	JWTSecret     string `toml:"jwt_secret"`     // HS256 key for the generator endpoint; empty leaves it open
	RateLimit     int    `toml:"rate_limit"`     // requests per minute per IP (default 30)
}

// IngestConfig shapes the webhook pipeline.
type IngestConfig struct {
	ImagePrefix   string `toml:"image_prefix"`   // default "images/"
	ImageBaseURL  string `toml:"image_base_url"` // prefix that turns repository paths into URLs
	GroupByCommit bool   `toml:"group_by_commit"`
	Async         bool   `toml:"async"`
	// GeneratorURL sends webhook work to a remote generator instead of
	// running it in-process.
	GeneratorURL   string `toml:"generator_url"`
	GeneratorToken string `toml:"generator_token"`
	RunLogPath     string `toml:"run_log_path"`   // default "data/ingest.db"
	RetentionDays  int    `toml:"retention_days"` // default 90
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "팍술의 골프공 블로그"
	}
	if c.Description == "" {
		c.Description = "직접 라운드에서 테스트한 골프공 리뷰. 디자인, 비거리, 타구감을 비교합니다."
	}
	if c.Author == "" {
		c.Author = ingest.DefaultAuthor
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "data/blog.db"
	}
	if c.Functions.RateLimit == 0 {
		c.Functions.RateLimit = 30
	}
	if c.Ingest.ImagePrefix == "" {
		c.Ingest.ImagePrefix = ingest.DefaultImagePrefix
	}
	if c.Ingest.RunLogPath == "" {
		c.Ingest.RunLogPath = "data/ingest.db"
	}
	if c.Ingest.RetentionDays == 0 {
		c.Ingest.RetentionDays = 90
	}
}

// Validate reports configuration that cannot work.
func (c SiteConfig) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must not be negative")
	}
	if c.Functions.RateLimit < 0 {
		return errors.New("functions.rate_limit must not be negative")
	}
	if !strings.HasSuffix(c.Ingest.ImagePrefix, "/") {
		return fmt.Errorf("ingest.image_prefix %q must end with /", c.Ingest.ImagePrefix)
	}
	return nil
}

// Warnings reports settings that load fine but leave a feature unusable.
func (c SiteConfig) Warnings() []string {
	var w []string
	if c.Ingest.ImageBaseURL == "" && c.Ingest.GeneratorURL == "" {
		w = append(w, "ingest.image_base_url (IMAGE_BASE_URL) is empty: repository image paths cannot be sent to the completion API and generation will fail")
	}
	if c.AI.APIKey == "" && c.Ingest.GeneratorURL == "" {
		w = append(w, "ai.api_key (OPENAI_API_KEY) is empty: generation will fail")
	}
	return w
}

// View returns the subset of the configuration the templates need.
func (c SiteConfig) View() views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
		Tagline:     c.Tagline,
	}
}

// LoadConfig builds a configuration from, in increasing precedence: defaults,
// the TOML file at path (skipped when empty or missing), and environment
// variables, which may come from a .env file in the working directory.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays the environment variables the hosted deployment uses.
func applyEnv(cfg *SiteConfig) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.Name, "SITE_NAME")
	setString(&cfg.URL, "SITE_URL", "NEXT_PUBLIC_SITE_URL")
	setString(&cfg.Description, "SITE_DESCRIPTION")
	setString(&cfg.Author, "SITE_AUTHOR")
	setString(&cfg.Addr, "ADDR")

	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.Path, "DATABASE_PATH")
	setString(&cfg.Store.DSN, "DATABASE_URL")
	setString(&cfg.Store.URL, "SUPABASE_URL")
	setString(&cfg.Store.APIKey, "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ANON_KEY")
	if cfg.Store.Driver == "" {
		switch {
		case cfg.Store.DSN != "":
			cfg.Store.Driver = "postgres"
		case cfg.Store.URL != "":
			cfg.Store.Driver = "rest"
		}
	}

	setString(&cfg.Cache.RedisURL, "REDIS_URL")
	if v := os.Getenv("POST_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTLSeconds = int(d / time.Second)
		}
	}

	setString(&cfg.AI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.AI.Model, "OPENAI_MODEL")
	setString(&cfg.AI.BaseURL, "OPENAI_BASE_URL")

	setString(&cfg.Functions.WebhookSecret, "GITHUB_WEBHOOK_SECRET")
	setString(&cfg.Functions.JWTSecret, "FUNCTIONS_JWT_SECRET")
	if v := os.Getenv("FUNCTIONS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Functions.RateLimit = n
		}
	}

	setString(&cfg.Ingest.ImageBaseURL, "IMAGE_BASE_URL")
	setString(&cfg.Ingest.GeneratorURL, "GENERATOR_URL")
	setString(&cfg.Ingest.GeneratorToken, "GENERATOR_TOKEN")
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore uses s instead of opening the configured backend.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithCompleter replaces the completion API client.
func WithCompleter(c ingest.Completer) Option {
	return func(a *App) {
		a.completer = c
	}
}
