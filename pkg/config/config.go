package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pojntfx/storage-throughput/pkg/speedtest"
	"github.com/pojntfx/storage-throughput/pkg/telemetry"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "THROUGHPUT"

	FormatTable = "table"
	FormatJSON  = "json"
)

const (
	KeyTarget      = "target"
	KeySizes       = "sizes"
	KeyMinDuration = "min-duration"
	KeySync        = "sync"
	KeyMmap        = "mmap"
	KeyDropCache   = "drop-cache"
	KeyRTT         = "rtt"
	KeyVerbose     = "verbose"
	KeyLogFile     = "log-file"
	KeyLogFormat   = "log-format"
	KeyFormat      = "format"
	KeyMetricsAddr = "metrics-addr"
)

var (
	ErrNoTargets     = errors.New("no targets configured")
	ErrInvalidTarget = errors.New("invalid target")
)

type Target struct {
	Name     string
	Location string
}

type Config struct {
	Targets     []Target
	Sizes       []int
	MinDuration time.Duration
	Sync        bool
	Mmap        bool
	DropCache   bool
	RTT         time.Duration
	Verbose     bool
	LogFile     string
	LogFormat   string
	Format      string
	MetricsAddr string
}

const defaultFolder = "SdSpeedTest"

// DefaultTargets are measured when no target is configured: removable storage
// announced through EXTERNAL_STORAGE, if any, then the temporary directory.
func DefaultTargets() []Target {
	targets := []Target{}
	if external := os.Getenv("EXTERNAL_STORAGE"); external != "" {
		targets = append(targets, Target{
			Name:     "external",
			Location: filepath.Join(external, defaultFolder),
		})
	}

	return append(targets, Target{
		Name:     "internal",
		Location: filepath.Join(os.TempDir(), defaultFolder),
	})
}

func SetDefaults(v *viper.Viper) {
	sizes := []string{}
	for _, size := range speedtest.DefaultSizes {
		sizes = append(sizes, strconv.Itoa(size))
	}

	v.SetDefault(KeySizes, sizes)
	v.SetDefault(KeyMinDuration, speedtest.DefaultMinDuration)
	v.SetDefault(KeySync, false)
	v.SetDefault(KeyMmap, false)
	v.SetDefault(KeyDropCache, false)
	v.SetDefault(KeyRTT, time.Duration(0))
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyLogFormat, telemetry.FormatText)
	v.SetDefault(KeyFormat, FormatTable)
}

// Load reads the configuration from .env, the config file, THROUGHPUT_*
// environment variables and any flags already bound to v, in increasing order
// of precedence. Without cfgFile, throughput.yaml in the working directory is
// used if present.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("throughput")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	targets, err := ParseTargets(v.GetStringSlice(KeyTarget))
	if err != nil {
		return nil, err
	}

	sizes, err := parseSizes(v.GetStringSlice(KeySizes))
	if err != nil {
		return nil, err
	}

	c := &Config{
		Targets:     targets,
		Sizes:       sizes,
		MinDuration: v.GetDuration(KeyMinDuration),
		Sync:        v.GetBool(KeySync),
		Mmap:        v.GetBool(KeyMmap),
		DropCache:   v.GetBool(KeyDropCache),
		RTT:         v.GetDuration(KeyRTT),
		Verbose:     v.GetBool(KeyVerbose),
		LogFile:     v.GetString(KeyLogFile),
		LogFormat:   v.GetString(KeyLogFormat),
		Format:      v.GetString(KeyFormat),
		MetricsAddr: v.GetString(KeyMetricsAddr),
	}

	return c, nil
}

// ParseTargets parses target specs of the form name=location or a bare
// location, which is named after its position. Each spec may hold several
// comma-separated targets.
func ParseTargets(specs []string) ([]Target, error) {
	targets := []Target{}
	for i, spec := range splitList(specs) {
		target := Target{
			Name:     fmt.Sprintf("target-%v", i+1),
			Location: spec,
		}

		if idx := strings.Index(spec, "="); idx > 0 && !strings.ContainsAny(spec[:idx], "/:?\\") {
			target.Name = spec[:idx]
			target.Location = spec[idx+1:]
		}

		if target.Location == "" {
			return nil, fmt.Errorf("%w: %q has no location", ErrInvalidTarget, spec)
		}

		targets = append(targets, target)
	}

	return targets, nil
}

// splitList flattens comma-separated entries, which is how list values
// arrive from environment variables.
func splitList(raw []string) []string {
	fields := []string{}
	for _, s := range raw {
		for _, field := range strings.Split(s, ",") {
			if field = strings.TrimSpace(field); field != "" {
				fields = append(fields, field)
			}
		}
	}

	return fields
}

func parseSizes(raw []string) ([]int, error) {
	sizes := []int{}
	for _, field := range splitList(raw) {
		size, err := strconv.ParseInt(field, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", field, err)
		}

		sizes = append(sizes, int(size))
	}

	return sizes, nil
}

func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}

	names := map[string]struct{}{}
	for _, target := range c.Targets {
		if _, ok := names[target.Name]; ok {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidTarget, target.Name)
		}

		names[target.Name] = struct{}{}
	}

	if len(c.Sizes) == 0 {
		return fmt.Errorf("%w: no sizes", speedtest.ErrInvalidArgument)
	}

	for _, size := range c.Sizes {
		if size <= 0 {
			return fmt.Errorf("%w: payload size %v", speedtest.ErrInvalidArgument, size)
		}
	}

	if c.MinDuration < 0 {
		return fmt.Errorf("%w: negative min duration %v", speedtest.ErrInvalidArgument, c.MinDuration)
	}

	if c.RTT < 0 {
		return fmt.Errorf("%w: negative rtt %v", speedtest.ErrInvalidArgument, c.RTT)
	}

	switch c.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown output format %q", speedtest.ErrInvalidArgument, c.Format)
	}

	switch c.LogFormat {
	case telemetry.FormatText, telemetry.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", speedtest.ErrInvalidArgument, c.LogFormat)
	}

	return nil
}
