package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/username/custody-schedule/internal/custody"
)

// Config represents application configuration
type Config struct {
	Child     ChildConfig      `mapstructure:"child"`
	Guardians []GuardianConfig `mapstructure:"guardians"`
	Schedule  ScheduleConfig   `mapstructure:"schedule"`
	Holidays  HolidaysConfig   `mapstructure:"holidays"`
	Vacations VacationsConfig  `mapstructure:"vacations"`
	Server    ServerConfig     `mapstructure:"server"`
	Daemon    DaemonConfig     `mapstructure:"daemon"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// ChildConfig describes the child the schedule is for
type ChildConfig struct {
	Name     string `mapstructure:"name"`
	Timezone string `mapstructure:"timezone"` // IANA name, default Europe/Paris
}

// GuardianConfig is one of the two custody-sharing parties.
// The first entry is the guardian the schedule rules are written for.
type GuardianConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// ScheduleConfig holds the custody rules
type ScheduleConfig struct {
	EndDay        string `mapstructure:"end_day"`        // weekday name, e.g. "sunday"
	ArrivalTime   string `mapstructure:"arrival_time"`   // HH:MM, default 08:00
	DepartureTime string `mapstructure:"departure_time"` // HH:MM, default 19:00
	ReferenceYear string `mapstructure:"reference_year"` // "even" or "odd"
	SummerRule    string `mapstructure:"summer_rule"`
	VacationFill  string `mapstructure:"vacation_fill"` // "complement" (default) or "base"
	Country       string `mapstructure:"country"`
	Zone          string `mapstructure:"zone"`
	HorizonMonths int    `mapstructure:"horizon_months"`
	Anchor        string `mapstructure:"anchor"` // YYYY-MM-DD the first guardian's alternation starts, default first end_day of 2024
}

// HolidaysConfig selects the public holiday provider
type HolidaysConfig struct {
	Provider     string `mapstructure:"provider"` // "gouv", "computed" or "file"
	APIURL       string `mapstructure:"api_url"`
	Region       string `mapstructure:"region"` // overrides the school zone for regional holidays
	CacheTTL     string `mapstructure:"cache_ttl"`
	FallbackFile string `mapstructure:"fallback_file"`
}

// VacationsConfig selects the school vacation provider
type VacationsConfig struct {
	Provider     string `mapstructure:"provider"` // "school", "ics", "file" or "none"
	APIURL       string `mapstructure:"api_url"`
	ICSURL       string `mapstructure:"ics_url"`
	CacheTTL     string `mapstructure:"cache_ttl"`
	FallbackFile string `mapstructure:"fallback_file"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DaemonConfig represents daemon mode configuration
type DaemonConfig struct {
	Refresh   string `mapstructure:"refresh"`    // cron expression
	ICSOutput string `mapstructure:"ics_output"` // file rewritten on every refresh
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.custody-schedule")
		v.AddConfigPath("/etc/custody-schedule")
	}

	// Read environment variables, e.g. CUSTODY_SCHEDULE_ZONE
	v.SetEnvPrefix("custody")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Guardians) != 2 {
		return fmt.Errorf("exactly two guardians are required, got %d", len(c.Guardians))
	}
	for i, g := range c.Guardians {
		if g.ID == "" {
			return fmt.Errorf("guardians[%d].id is required", i)
		}
	}
	if c.Guardians[0].ID == c.Guardians[1].ID {
		return fmt.Errorf("guardian ids must differ, got '%s' twice", c.Guardians[0].ID)
	}

	if c.Schedule.EndDay == "" {
		return fmt.Errorf("schedule.end_day is required")
	}
	if c.Schedule.ReferenceYear == "" {
		return fmt.Errorf("schedule.reference_year is required")
	}
	if c.Schedule.HorizonMonths < 0 {
		return fmt.Errorf("schedule.horizon_months must not be negative")
	}

	loc, err := c.Location()
	if err != nil {
		return err
	}
	if _, err := c.Schedule.GetAnchor(loc); err != nil {
		return err
	}

	// Validate Holidays config
	switch c.Holidays.GetProvider() {
	case "gouv", "computed":
	case "file":
		if c.Holidays.FallbackFile == "" {
			return fmt.Errorf("holidays.fallback_file is required for file provider")
		}
	default:
		return fmt.Errorf("holidays.provider must be 'gouv', 'computed' or 'file', got '%s'", c.Holidays.Provider)
	}

	// Validate Vacations config
	switch c.Vacations.GetProvider() {
	case "school", "none":
	case "ics":
		if c.Vacations.ICSURL == "" {
			return fmt.Errorf("vacations.ics_url is required for ics provider")
		}
	case "file":
		if c.Vacations.FallbackFile == "" {
			return fmt.Errorf("vacations.fallback_file is required for file provider")
		}
	default:
		return fmt.Errorf("vacations.provider must be 'school', 'ics', 'file' or 'none', got '%s'", c.Vacations.Provider)
	}

	if _, err := c.ToEngineConfig(); err != nil {
		return err
	}

	return nil
}

// ToEngineConfig converts the schedule section into the engine's rule record
func (c *Config) ToEngineConfig() (custody.Config, error) {
	var out custody.Config
	if len(c.Guardians) != 2 {
		return out, fmt.Errorf("%w: exactly two guardians are required", custody.ErrInvalidConfiguration)
	}

	endDay, err := custody.ParseWeekday(c.Schedule.EndDay)
	if err != nil {
		return out, err
	}
	arrival, err := custody.ParseTimeOfDay(withDefault(c.Schedule.ArrivalTime, "08:00"))
	if err != nil {
		return out, err
	}
	departure, err := custody.ParseTimeOfDay(withDefault(c.Schedule.DepartureTime, "19:00"))
	if err != nil {
		return out, err
	}
	parity, err := custody.ParseParity(c.Schedule.ReferenceYear)
	if err != nil {
		return out, err
	}
	summer, err := custody.ParseSummerRule(c.Schedule.SummerRule)
	if err != nil {
		return out, err
	}
	fill, err := custody.ParseVacationFill(c.Schedule.VacationFill)
	if err != nil {
		return out, err
	}
	loc, err := c.Location()
	if err != nil {
		return out, fmt.Errorf("%w: %v", custody.ErrInvalidConfiguration, err)
	}

	out = custody.Config{
		Guardian:      custody.GuardianID(c.Guardians[0].ID),
		Partner:       custody.GuardianID(c.Guardians[1].ID),
		ArrivalTime:   arrival,
		DepartureTime: departure,
		EndDay:        endDay,
		ReferenceYear: parity,
		SummerRule:    summer,
		VacationFill:  fill,
		Country:       strings.ToUpper(withDefault(c.Schedule.Country, "FR")),
		Zone:          c.Schedule.Zone,
		Location:      loc,
	}
	return out, out.Validate()
}

// Location returns the child's timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(withDefault(c.Child.Timezone, "Europe/Paris"))
	if err != nil {
		return nil, fmt.Errorf("invalid child.timezone: %w", err)
	}
	return loc, nil
}

// GuardianName returns the display name for a guardian id, falling back to the id
func (c *Config) GuardianName(id custody.GuardianID) string {
	for _, g := range c.Guardians {
		if g.ID == string(id) && g.Name != "" {
			return g.Name
		}
	}
	return string(id)
}

// HolidayZone returns the zone passed to the holiday provider
func (c *Config) HolidayZone() string {
	return withDefault(c.Holidays.Region, c.Schedule.Zone)
}

// GetHorizonMonths returns how far ahead the daemon plans. Default: 12
func (c *ScheduleConfig) GetHorizonMonths() int {
	if c.HorizonMonths <= 0 {
		return 12
	}
	return c.HorizonMonths
}

// GetAnchor returns the anchor date at midnight in loc, or the zero time when unset
func (c *ScheduleConfig) GetAnchor(loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(c.Anchor) == "" {
		return time.Time{}, nil
	}
	anchor, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(c.Anchor), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule.anchor: %w", err)
	}
	return anchor, nil
}

// GetProvider returns the holiday provider name. Default: gouv
func (c *HolidaysConfig) GetProvider() string {
	return strings.ToLower(withDefault(c.Provider, "gouv"))
}

// GetCacheTTL returns cache TTL duration
func (c *HolidaysConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetProvider returns the vacation provider name. Default: school
func (c *VacationsConfig) GetProvider() string {
	return strings.ToLower(withDefault(c.Provider, "school"))
}

// GetCacheTTL returns cache TTL duration
func (c *VacationsConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetAddr returns the listen address. Default: :8080
func (c *ServerConfig) GetAddr() string {
	return withDefault(c.Addr, ":8080")
}

// GetRefresh returns the refresh cron expression. Default: every day at 03:00
func (c *DaemonConfig) GetRefresh() string {
	return withDefault(c.Refresh, "0 3 * * *")
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Holidays.APIURL = os.ExpandEnv(c.Holidays.APIURL)
	c.Holidays.FallbackFile = os.ExpandEnv(c.Holidays.FallbackFile)
	c.Vacations.APIURL = os.ExpandEnv(c.Vacations.APIURL)
	c.Vacations.ICSURL = os.ExpandEnv(c.Vacations.ICSURL)
	c.Vacations.FallbackFile = os.ExpandEnv(c.Vacations.FallbackFile)
	c.Daemon.ICSOutput = os.ExpandEnv(c.Daemon.ICSOutput)
	c.Logging.File = os.ExpandEnv(c.Logging.File)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return duration
}

func withDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
