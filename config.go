package f1bot

import (
	"os"
	"time"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"justapengu.in/f1bot/pkg/minisectors"
	"justapengu.in/f1bot/pkg/openf1"
)

type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Data      DataConfig      `yaml:"data"`
	OpenF1    OpenF1Config    `yaml:"openf1"`
	Cache     CacheConfig     `yaml:"cache"`
	Standings StandingsConfig `yaml:"standings"`
	Analysis  AnalysisConfig  `yaml:"analysis"`

	CommandTimeout time.Duration `yaml:"command_timeout"`
	ArtifactDir    string        `yaml:"artifact_dir"`

	HTTP      HTTPConfig `yaml:"http"`
	Log       LogConfig  `yaml:"log"`
	SentryDSN string     `yaml:"sentry_dsn"`
}

type DiscordConfig struct {
	Token         string `yaml:"token"`
	TokenEnv      string `yaml:"token_env"`
	CommandPrefix string `yaml:"command_prefix"`
	Status        string `yaml:"status"`
}

type DataConfig struct {
	ScheduleFile   string `yaml:"schedule_file"`
	FlagsFile      string `yaml:"flags_file"`
	DefaultFlagURL string `yaml:"default_flag_url"`
}

type OpenF1Config struct {
	BaseURL               string        `yaml:"base_url"`
	RequestTimeout        time.Duration `yaml:"request_timeout"`
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests"`
}

type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

type StandingsConfig struct {
	BaseURL string `yaml:"base_url"`
}

type AnalysisConfig struct {
	MiniSectors       int              `yaml:"mini_sectors"`
	MiniSectorAxis    minisectors.Axis `yaml:"mini_sector_axis"`
	QuickLapThreshold float64          `yaml:"quick_lap_threshold"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

const (
	DefaultCommandPrefix     = "+"
	DefaultMiniSectors       = 20
	DefaultQuickLapThreshold = 1.07
	DefaultCommandTimeout    = 2 * time.Minute
)

var (
	ErrNoToken            = errors.New("f1bot: no discord token configured")
	ErrInvalidMiniSectors = errors.New("f1bot: analysis.mini_sectors must be positive")
	ErrInvalidThreshold   = errors.New("f1bot: analysis.quick_lap_threshold must be at least 1")
)

// ReadConfig reads a YAML config file, fills in defaults and validates it.
func ReadConfig(path string) (*Config, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	var conf Config

	if err := yaml.NewDecoder(utfbom.SkipOnly(f)).Decode(&conf); err != nil {
		return nil, errors.Wrapf(err, "f1bot: could not parse config %s", path)
	}

	conf.setDefaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) setDefaults() {
	if c.Discord.TokenEnv == "" {
		c.Discord.TokenEnv = "F1BOT_TOKEN"
	}

	if c.Discord.CommandPrefix == "" {
		c.Discord.CommandPrefix = DefaultCommandPrefix
	}

	if c.Discord.Status == "" {
		c.Discord.Status = "F1 telemetry | " + c.Discord.CommandPrefix + "bhelp"
	}

	if c.Data.ScheduleFile == "" {
		c.Data.ScheduleFile = "data/sched.csv"
	}

	if c.Data.FlagsFile == "" {
		c.Data.FlagsFile = "data/country_flags.json"
	}

	if c.Data.DefaultFlagURL == "" {
		c.Data.DefaultFlagURL = "https://example.com/default_flag.png"
	}

	if c.OpenF1.BaseURL == "" {
		c.OpenF1.BaseURL = openf1.DefaultBaseURL
	}

	if c.OpenF1.RequestTimeout == 0 {
		c.OpenF1.RequestTimeout = 30 * time.Second
	}

	if c.OpenF1.MaxConcurrentRequests == 0 {
		c.OpenF1.MaxConcurrentRequests = 4
	}

	if c.Cache.Dir == "" {
		c.Cache.Dir = ".f1bot_cache"
	}

	if c.Standings.BaseURL == "" {
		c.Standings.BaseURL = DefaultStandingsURL
	}

	if c.Analysis.MiniSectors == 0 {
		c.Analysis.MiniSectors = DefaultMiniSectors
	}

	if c.Analysis.QuickLapThreshold == 0 {
		c.Analysis.QuickLapThreshold = DefaultQuickLapThreshold
	}

	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Analysis.MiniSectors <= 0 {
		return errors.Wrapf(ErrInvalidMiniSectors, "got %d", c.Analysis.MiniSectors)
	}

	if _, err := minisectors.ParseAxis(c.Analysis.MiniSectorAxis.String()); err != nil {
		return err
	}

	if c.Analysis.QuickLapThreshold < 1 {
		return errors.Wrapf(ErrInvalidThreshold, "got %f", c.Analysis.QuickLapThreshold)
	}

	return nil
}

// Token returns the configured bot token, falling back to the token_env
// environment variable.
func (c *Config) Token() (string, error) {
	if c.Discord.Token != "" {
		return c.Discord.Token, nil
	}

	if token := os.Getenv(c.Discord.TokenEnv); token != "" {
		return token, nil
	}

	return "", errors.Wrapf(ErrNoToken, "set discord.token or the %s environment variable", c.Discord.TokenEnv)
}
