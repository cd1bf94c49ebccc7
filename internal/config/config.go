package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bradleysepos/aws-ddns/internal/provider"
)

// ErrInvalidConfiguration is raised before any disk or network activity.
var ErrInvalidConfiguration = errors.New("invalid configuration")

const (
	defaultTTL          = int64(300)
	defaultPollCount    = 30
	defaultPollInterval = 10 * time.Second
	defaultComment      = "aws-ddns"
	defaultBackend      = "route53"
	defaultLogLevel     = "info"
	defaultLogEnv       = "prod"
	defaultInterval     = 5 * time.Minute
	defaultMetricsAddr  = ":9090"
)

// Services queried for the external address when no override is given.
var defaultLookupServices = []string{
	"https://checkip.amazonaws.com",
	"https://icanhazip.com",
	"https://ifconfig.co",
}

type Config struct {
	Record    Record    `yaml:"record"`
	Resolve   Resolve   `yaml:"resolve"`
	Update    Update    `yaml:"update"`
	Authority Authority `yaml:"authority"`
	CacheDir  string    `yaml:"cacheDir"`
	Log       Log       `yaml:"log"`
	Daemon    Daemon    `yaml:"daemon"`
}

type Record struct {
	ZoneID string `yaml:"zoneId"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	TTL    int64  `yaml:"ttl"`
}

type Resolve struct {
	Services []string `yaml:"services"`
	Override string   `yaml:"override"`
}

type Update struct {
	ForceRemote  bool          `yaml:"forceRemote"`
	PollCount    int           `yaml:"pollCount"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Comment      string        `yaml:"comment"`
}

type Authority struct {
	Backend string `yaml:"backend"` // route53 or cloudflare
	Profile string `yaml:"profile"` // AWS shared config profile
	Token   string `yaml:"token"`   // cloudflare API token
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type Daemon struct {
	Interval    time.Duration `yaml:"interval"`
	MetricsAddr string        `yaml:"metricsAddr"`
}

// Identity builds the record identity the engine operates on.
func (c *Config) Identity() provider.Identity {
	return provider.NewIdentity(c.Record.ZoneID, c.Record.Name, provider.RRType(c.Record.Type))
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Record.Type == "" {
		c.Record.Type = string(provider.TypeA)
	}
	if c.Record.TTL == 0 {
		c.Record.TTL = defaultTTL
	}
	if len(c.Resolve.Services) == 0 {
		c.Resolve.Services = defaultLookupServices
	}
	if c.Update.PollCount == 0 {
		c.Update.PollCount = defaultPollCount
	}
	if c.Update.PollInterval == 0 {
		c.Update.PollInterval = defaultPollInterval
	}
	if c.Update.Comment == "" {
		c.Update.Comment = defaultComment
	}
	if c.Authority.Backend == "" {
		c.Authority.Backend = defaultBackend
	}
	if c.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.CacheDir = filepath.Join(home, ".aws-ddns")
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Env == "" {
		c.Log.Env = defaultLogEnv
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = defaultInterval
	}
	if c.Daemon.MetricsAddr == "" {
		c.Daemon.MetricsAddr = defaultMetricsAddr
	}
}

func (c *Config) applyEnv() {
	if zone := os.Getenv("AWS_DDNS_ZONE_ID"); zone != "" {
		c.Record.ZoneID = zone
	}
	if name := os.Getenv("AWS_DDNS_RECORD_NAME"); name != "" {
		c.Record.Name = name
	}
	if rtype := os.Getenv("AWS_DDNS_RECORD_TYPE"); rtype != "" {
		c.Record.Type = rtype
	}
	if ttl := os.Getenv("AWS_DDNS_TTL"); ttl != "" {
		if v, err := strconv.ParseInt(ttl, 10, 64); err == nil {
			c.Record.TTL = v
		} else {
			slog.Default().Warn("fail parse ttl from env", "ttl", ttl, "error", err)
		}
	}
	if services := os.Getenv("AWS_DDNS_LOOKUP_SERVICES"); services != "" {
		c.Resolve.Services = strings.Split(services, ",")
	}
	if override := os.Getenv("AWS_DDNS_OVERRIDE_IP"); override != "" {
		c.Resolve.Override = override
	}
	if force := os.Getenv("AWS_DDNS_FORCE_REMOTE"); force != "" {
		switch strings.ToLower(force) {
		case "true":
			c.Update.ForceRemote = true
		case "false":
			c.Update.ForceRemote = false
		default:
			slog.Default().Warn("fail parse force remote from env", "value", force)
		}
	}
	if polls := os.Getenv("AWS_DDNS_POLL_COUNT"); polls != "" {
		if v, err := strconv.Atoi(polls); err == nil {
			c.Update.PollCount = v
		} else {
			slog.Default().Warn("fail parse poll count from env", "value", polls, "error", err)
		}
	}
	if comment := os.Getenv("AWS_DDNS_COMMENT"); comment != "" {
		c.Update.Comment = comment
	}
	if dir := os.Getenv("AWS_DDNS_CACHE_DIR"); dir != "" {
		c.CacheDir = dir
	}
	if backend := os.Getenv("AWS_DDNS_BACKEND"); backend != "" {
		c.Authority.Backend = backend
	}
	if profile := os.Getenv("AWS_DDNS_PROFILE"); profile != "" {
		c.Authority.Profile = profile
	}
	if token := os.Getenv("AWS_DDNS_CLOUDFLARE_TOKEN"); token != "" {
		c.Authority.Token = token
	}
	if level := os.Getenv("AWS_DDNS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if env := os.Getenv("AWS_DDNS_LOG_ENV"); env != "" {
		c.Log.Env = env
	}
}

// Validate rejects configuration the engine cannot act on. It runs before
// the cache is opened or any network call is made.
func (c *Config) Validate() error {
	if c.Record.ZoneID == "" {
		return fmt.Errorf("%w: zone id is required", ErrInvalidConfiguration)
	}
	if c.Record.Name == "" {
		return fmt.Errorf("%w: record name is required", ErrInvalidConfiguration)
	}
	if !provider.RRType(c.Record.Type).Valid() {
		return fmt.Errorf("%w: record type %q is not A or AAAA", ErrInvalidConfiguration, c.Record.Type)
	}
	if c.Record.TTL < 0 {
		return fmt.Errorf("%w: ttl %d is negative", ErrInvalidConfiguration, c.Record.TTL)
	}
	if c.Update.PollCount < 0 {
		return fmt.Errorf("%w: poll count %d is negative", ErrInvalidConfiguration, c.Update.PollCount)
	}
	switch c.Authority.Backend {
	case "route53", "cloudflare":
	default:
		return fmt.Errorf("%w: unknown authority backend %q", ErrInvalidConfiguration, c.Authority.Backend)
	}
	return nil
}
