package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"coursesched/internal/model"
)

const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultScheduleURL = "https://www.cs.northwestern.edu/academics/courses/394/data/cs-courses.php"
	DefaultRefreshCron = "0 */6 * * *"
	DefaultCacheDir    = "./var/schedule-cache"
	DefaultTimezone    = "America/Chicago"

	// EnvPrefix prefixes environment overrides, e.g. COURSESCHED_LISTEN.
	EnvPrefix = "COURSESCHED_"
)

// FetchConfig tunes the schedule download.
type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=1"`
	// Retries is the number of extra attempts at start-up.
	Retries        int `yaml:"retries" json:"retries" validate:"gte=0,lte=10"`
	BackoffSeconds int `yaml:"backoff_seconds" json:"backoff_seconds" validate:"gte=1"`
}

func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

func (f FetchConfig) Backoff() time.Duration {
	return time.Duration(f.BackoffSeconds) * time.Second
}

// TermDates holds the first and last day of a term as YYYY-MM-DD.
type TermDates struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// TermsConfig gives the calendar dates used by the iCalendar export.
type TermsConfig struct {
	Fall   TermDates `yaml:"fall" json:"fall"`
	Winter TermDates `yaml:"winter" json:"winter"`
	Spring TermDates `yaml:"spring" json:"spring"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the whole service.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// ScheduleURL is the JSON endpoint serving { title, courses }.
	ScheduleURL string `yaml:"schedule_url" json:"schedule_url" validate:"required,url"`

	// DefaultTerm is the term a new session starts on: Fall, Winter or Spring.
	DefaultTerm string `yaml:"default_term" json:"default_term" validate:"oneof=Fall Winter Spring"`

	// RefreshCron is a standard 5-field cron spec for reloading the schedule.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir stores the last fetched payload and its ETag. Empty disables it.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// SessionIdleMinutes is how long an untouched session is kept in memory.
	SessionIdleMinutes int `yaml:"session_idle_minutes" json:"session_idle_minutes" validate:"gte=1"`

	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=console json"`

	// AllowedOrigins enables CORS on /api for the listed origins.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// RateLimitPerMinute caps mutating requests per client IP. 0 disables.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute" validate:"gte=0"`

	// Timezone anchors term dates and class times in the calendar export.
	Timezone string `yaml:"timezone" json:"timezone"`

	Terms TermsConfig `yaml:"terms" json:"terms"`

	// BasicAuth, if set, guards every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      DefaultListen,
		ScheduleURL: DefaultScheduleURL,
		DefaultTerm: model.TermFall.String(),
		RefreshCron: DefaultRefreshCron,
		CacheDir:    DefaultCacheDir,
		Fetch: FetchConfig{
			TimeoutSeconds: 15,
			Retries:        3,
			BackoffSeconds: 2,
		},
		SessionIdleMinutes: 120,
		LogLevel:           "info",
		LogFormat:          "console",
		AllowedOrigins:     []string{},
		RateLimitPerMinute: 120,
		Timezone:           DefaultTimezone,
		Terms: TermsConfig{
			Fall:   TermDates{Start: "2024-09-24", End: "2024-12-06"},
			Winter: TermDates{Start: "2025-01-06", End: "2025-03-14"},
			Spring: TermDates{Start: "2025-03-31", End: "2025-06-06"},
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.ScheduleURL == "" {
		c.ScheduleURL = def.ScheduleURL
	}
	if t, ok := model.ParseTerm(c.DefaultTerm); ok {
		c.DefaultTerm = t.String()
	} else {
		c.DefaultTerm = def.DefaultTerm
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if c.Fetch.Retries < 0 {
		c.Fetch.Retries = 0
	}
	if c.Fetch.BackoffSeconds <= 0 {
		c.Fetch.BackoffSeconds = def.Fetch.BackoffSeconds
	}
	if c.SessionIdleMinutes <= 0 {
		c.SessionIdleMinutes = def.SessionIdleMinutes
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{}
	}
	if c.RateLimitPerMinute < 0 {
		c.RateLimitPerMinute = 0
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
}

// Validate checks field constraints and the cron spec.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("invalid config: refresh %q: %w", c.RefreshCron, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := c.TermRanges(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Term returns DefaultTerm as a model.Term.
func (c *Config) Term() model.Term {
	t, ok := model.ParseTerm(c.DefaultTerm)
	if !ok {
		return model.TermFall
	}
	return t
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TermRanges parses the configured term dates. Terms with both dates empty
// are omitted.
func (c *Config) TermRanges() (map[model.Term]model.DateRange, error) {
	out := make(map[model.Term]model.DateRange, 3)
	for term, d := range map[model.Term]TermDates{
		model.TermFall:   c.Terms.Fall,
		model.TermWinter: c.Terms.Winter,
		model.TermSpring: c.Terms.Spring,
	} {
		if d.Start == "" && d.End == "" {
			continue
		}
		start, err := time.Parse(time.DateOnly, d.Start)
		if err != nil {
			return nil, fmt.Errorf("terms.%s.start: %w", strings.ToLower(term.String()), err)
		}
		end, err := time.Parse(time.DateOnly, d.End)
		if err != nil {
			return nil, fmt.Errorf("terms.%s.end: %w", strings.ToLower(term.String()), err)
		}
		r := model.DateRange{Start: start, End: end}
		if !r.Valid() {
			return nil, fmt.Errorf("terms.%s: end before start", strings.ToLower(term.String()))
		}
		out[term] = r
	}
	return out, nil
}

// ApplyEnv overrides fields from COURSESCHED_* environment variables, after
// loading a .env file from the working directory if one exists.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	setString("LISTEN", &c.Listen)
	setString("SCHEDULE_URL", &c.ScheduleURL)
	setString("DEFAULT_TERM", &c.DefaultTerm)
	setString("REFRESH", &c.RefreshCron)
	setString("CACHE_DIR", &c.CacheDir)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)
	setString("TIMEZONE", &c.Timezone)

	if v := os.Getenv(EnvPrefix + "RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 permissions and returned.
//   - Otherwise the YAML is read and unmarshaled.
//   - Environment overrides are applied, defaults filled in, and the result
//     validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursesched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
