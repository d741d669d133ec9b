// Package config loads the workspace settings from .cadence/config.yaml.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/felixgeelhaar/cadence/pkg/storage"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CADENCE_LOG_LEVEL.
const EnvPrefix = "CADENCE"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the workspace settings.
type Config struct {
	Calendar   CalendarConfig           `mapstructure:"calendar"`
	ReportDate string                   `mapstructure:"report_date"`
	Log        LogConfig                `mapstructure:"log"`
	Watch      WatchConfig              `mapstructure:"watch"`
	Output     string                   `mapstructure:"output"`
	Webhooks   []events.WebhookEndpoint `mapstructure:"webhooks"`
}

// CalendarConfig describes the calendar used when a task or resource names
// none.
type CalendarConfig struct {
	HoursPerDay float64  `mapstructure:"hours_per_day"`
	StartHour   int      `mapstructure:"start_hour"`
	WorkingDays []string `mapstructure:"working_days"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Defaults returns the settings used when no file is present.
func Defaults() *Config {
	return &Config{
		Calendar: CalendarConfig{
			HoursPerDay: calendar.DefaultHoursPerDay,
			StartHour:   calendar.DefaultStartHour,
			WorkingDays: []string{"mon", "tue", "wed", "thu", "fri"},
		},
		Log:    LogConfig{Level: "warn", Format: "text"},
		Watch:  WatchConfig{Debounce: 500 * time.Millisecond},
		Output: "text",
	}
}

func newViper(root string) *viper.Viper {
	d := Defaults()
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(storage.ConfigFile, filepath.Ext(storage.ConfigFile)))
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(root, storage.CadenceDir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default for environment overrides to reach Unmarshal.
	v.SetDefault("calendar.hours_per_day", d.Calendar.HoursPerDay)
	v.SetDefault("calendar.start_hour", d.Calendar.StartHour)
	v.SetDefault("calendar.working_days", d.Calendar.WorkingDays)
	v.SetDefault("report_date", d.ReportDate)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("output", d.Output)
	return v
}

// Load reads the workspace config under root. A missing file yields the
// defaults with any environment overrides applied.
func Load(root string) (*Config, error) {
	v := newViper(root)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", storage.ConfigFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		timeToStringHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", storage.ConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// timeToStringHook turns the timestamps YAML makes of unquoted dates back
// into text for string fields. Midnight UTC is written as a bare date so
// ParseReportDate still reads it as the whole day.
func timeToStringHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	t, ok := data.(time.Time)
	if !ok || to.Kind() != reflect.String {
		return data, nil
	}
	if t.Equal(t.UTC().Truncate(24 * time.Hour)) {
		return t.UTC().Format(time.DateOnly), nil
	}
	return t.Format(time.RFC3339), nil
}

// WriteDefault writes the default settings to root/.cadence/config.yaml
// unless the file already exists.
func WriteDefault(root string) error {
	v := newViper(root)
	path := filepath.Join(root, storage.CadenceDir, storage.ConfigFile)
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("writing %s: %w", storage.ConfigFile, err)
	}
	return nil
}

// Validate checks the settings that are not validated elsewhere.
func (c *Config) Validate() error {
	var errs []string
	if _, err := c.DefaultCalendar(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := c.ParsedReportDate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	switch c.Output {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("output %q must be text or json", c.Output))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, "watch.debounce must not be negative")
	}
	for i, ep := range c.Webhooks {
		if ep.URL == "" {
			errs = append(errs, fmt.Sprintf("webhooks[%d] (%s) has no url", i, ep.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// DefaultCalendar builds the fallback calendar from the settings.
func (c *Config) DefaultCalendar() (calendar.Calendar, error) {
	cal := calendar.Default()
	cal.HoursPerDay = c.Calendar.HoursPerDay
	cal.StartHour = c.Calendar.StartHour
	cal.WorkingDays = cal.WorkingDays[:0:0]
	for _, s := range c.Calendar.WorkingDays {
		d, ok := calendar.ParseWeekday(s)
		if !ok {
			return calendar.Calendar{}, fmt.Errorf("%w: unknown weekday %q", calendar.ErrInvalidCalendar, s)
		}
		cal.WorkingDays = append(cal.WorkingDays, calendar.Weekday(d))
	}
	if err := cal.Validate(); err != nil {
		return calendar.Calendar{}, err
	}
	return cal, nil
}

// ParsedReportDate returns the configured report date, zero when unset.
func (c *Config) ParsedReportDate() (time.Time, error) {
	return ParseReportDate(c.ReportDate)
}

// ParseReportDate parses an earned value report date. A bare date means the
// end of that day, so the whole day counts as elapsed.
func ParseReportDate(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil || t.IsZero() {
		return t, err
	}
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err == nil {
		return t.AddDate(0, 0, 1), nil
	}
	return t, nil
}

// ParseDate parses a date given on the command line or in the config.
// Both 2006-01-02 and RFC 3339 are accepted; a bare date is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
