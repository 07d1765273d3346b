package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"calview/internal/view"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS endpoint. file:// URLs and plain paths are read from disk.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DayViewConfig is the day timeline geometry.
type DayViewConfig struct {
	StartHour  int     `yaml:"start_hour" json:"start_hour"`
	EndHour    int     `yaml:"end_hour" json:"end_hour"`
	HourHeight float64 `yaml:"hour_height" json:"hour_height"`
	LaneWidth  float64 `yaml:"lane_width" json:"lane_width"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone views are computed in (e.g. "Europe/London").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first day of the week in month and week views, as an
	// English weekday name ("sunday" by default).
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Language is the locale code month and weekday names are translated
	// into, such as "en_US" or "fr_FR".
	Language string `yaml:"language" json:"language"`

	// MonthNames and WeekdayNames override the translated labels. WeekdayNames
	// starts at Sunday. Empty entries keep the default name.
	MonthNames   []string `yaml:"month_names,omitempty" json:"month_names,omitempty"`
	WeekdayNames []string `yaml:"weekday_names,omitempty" json:"weekday_names,omitempty"`

	// RefreshCron is a standard 5-field cron schedule for ICS refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// HorizonDays / BackfillDays bound the /api/events listing around now.
	// Views expand recurrences over their own window instead.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// BadgeKeywords marks events whose summary contains any keyword
	// (case-insensitive) as counting toward cell badge totals.
	BadgeKeywords []string `yaml:"badge_keywords" json:"badge_keywords"`

	DayView DayViewConfig `yaml:"day_view" json:"day_view"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultWeekStart    = "sunday"
	defaultLanguage     = "en_US"
	defaultRefreshCron  = "*/15 * * * *"
	defaultHorizonDays  = 7
	defaultBackfillDays = 1
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	day := view.DefaultDayOptions()
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		WeekStart:     defaultWeekStart,
		Language:      defaultLanguage,
		RefreshCron:   defaultRefreshCron,
		LogLevel:      "info",
		HorizonDays:   defaultHorizonDays,
		BackfillDays:  defaultBackfillDays,
		BadgeKeywords: []string{},
		DayView: DayViewConfig{
			StartHour:  day.StartHour,
			EndHour:    day.EndHour,
			HourHeight: day.HourHeight,
			LaneWidth:  day.LaneWidth,
		},
		ICS:       []ICSConfig{},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart == "" {
		c.WeekStart = defaultWeekStart
	}
	c.Language = strings.TrimSpace(c.Language)
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.DayView.HourHeight <= 0 {
		c.DayView.HourHeight = view.DefaultDayOptions().HourHeight
	}
	if c.DayView.LaneWidth <= 0 {
		c.DayView.LaneWidth = view.DefaultDayOptions().LaneWidth
	}
	if c.BadgeKeywords == nil {
		c.BadgeKeywords = []string{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := ParseWeekday(c.WeekStart); err != nil {
		return err
	}
	if !view.KnownLocale(c.Language) {
		return fmt.Errorf("config: unknown language %q", c.Language)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	if len(c.MonthNames) > 12 {
		return fmt.Errorf("config: %d month names, at most 12", len(c.MonthNames))
	}
	if len(c.WeekdayNames) > 7 {
		return fmt.Errorf("config: %d weekday names, at most 7", len(c.WeekdayNames))
	}
	if err := c.DayOptions().Validate(); err != nil {
		return fmt.Errorf("config: day_view: %w", err)
	}
	return nil
}

// ParseWeekday maps an English weekday name or its three-letter prefix to a
// time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("config: invalid week_start %q", s)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Locale builds the view locale from the configured language, week start
// and name overrides. Call Validate first; an invalid week start reads as
// Sunday here.
func (c *Config) Locale() view.Locale {
	first, _ := ParseWeekday(c.WeekStart)
	l := view.LocaleFor(c.Language, first)
	for i, name := range c.MonthNames {
		if i < len(l.MonthNames) {
			l.MonthNames[i] = name
			if r := []rune(name); len(r) >= 3 {
				l.ShortMonthNames[i] = string(r[:3])
			}
		}
	}
	for i, name := range c.WeekdayNames {
		if i < len(l.WeekdayNames) {
			l.WeekdayNames[i] = name
		}
	}
	return l
}

// DayOptions maps the day_view section to view.DayOptions.
func (c *Config) DayOptions() view.DayOptions {
	return view.DayOptions{
		StartHour:  c.DayView.StartHour,
		EndHour:    c.DayView.EndHour,
		HourHeight: c.DayView.HourHeight,
		LaneWidth:  c.DayView.LaneWidth,
	}
}

// Builder returns a view.Builder configured from c.
func (c *Config) Builder() (*view.Builder, error) {
	return view.NewBuilder(view.Options{
		Locale:   c.Locale(),
		Location: c.Location(),
		Day:      c.DayOptions(),
	})
}

// Environment overrides applied by ApplyEnv.
const (
	EnvListen    = "CALVIEW_LISTEN"
	EnvTimezone  = "CALVIEW_TIMEZONE"
	EnvWeekStart = "CALVIEW_WEEK_START"
	EnvLanguage  = "CALVIEW_LANGUAGE"
	EnvLogLevel  = "CALVIEW_LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding ones already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from CALVIEW_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvWeekStart); v != "" {
		c.WeekStart = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.Language = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	c.Normalize()
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML over DefaultConfig, so omitted keys keep their defaults
//     and explicit values (including zero hours) are kept as written
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions, creating the parent directory
// with 0700 if needed.
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

	tmp, err := os.CreateTemp(dir, ".calview-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
