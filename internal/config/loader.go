package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/youcefh/backsnap/internal/retention"
)

// ErrLoadConfig indicates a failure to read or parse the configuration file.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Policy names accepted in the retention section.
const (
	PolicyFixed = "fixed"
	PolicyGFS   = "gfs"
)

// DefaultLogMaxSizeKB is the log size threshold that triggers rotation.
const DefaultLogMaxSizeKB = 50000

// Config represents the top-level configuration file (JSON, or YAML by
// file extension).
type Config struct {
	Log       LogConfig       `mapstructure:"log"       json:"log"`
	Retention RetentionConfig `mapstructure:"retention" json:"retention"`
	Backups   []Job           `mapstructure:"backups"   json:"backups"`
}

// LogConfig controls the log file sink.
type LogConfig struct {
	File      string `mapstructure:"file"        json:"file,omitempty"`
	Level     string `mapstructure:"level"       json:"level,omitempty"`
	MaxSizeKB int    `mapstructure:"max-size-kb" json:"max-size-kb,omitempty"`
}

// RetentionConfig selects and parameterizes the retention policy.
type RetentionConfig struct {
	Policy   string    `mapstructure:"policy"    json:"policy"`
	KeepLast int       `mapstructure:"keep-last" json:"keep-last,omitempty"`
	GFS      GFSConfig `mapstructure:"gfs"       json:"gfs,omitempty"`

	// ArchiveStale packs a stale snapshot to a zstd tarball in ArchiveDir
	// before its directory is removed.
	ArchiveStale bool   `mapstructure:"archive-stale" json:"archive-stale,omitempty"`
	ArchiveDir   string `mapstructure:"archive-dir"   json:"archive-dir,omitempty"`
}

// GFSConfig holds the tier counts for grandfather-father-son retention.
type GFSConfig struct {
	Years        int    `mapstructure:"years"         json:"years"`
	Months       int    `mapstructure:"months"        json:"months"`
	Weeks        int    `mapstructure:"weeks"         json:"weeks"`
	Days         int    `mapstructure:"days"          json:"days"`
	FirstWeekday string `mapstructure:"first-weekday" json:"first-weekday,omitempty"`
}

// Job is one configured backup target. Immutable once loaded.
type Job struct {
	SrcDir      string   `mapstructure:"src-dir"      json:"src-dir"`
	DestDir     string   `mapstructure:"dest-dir"     json:"dest-dir"`
	ExcludeDirs []string `mapstructure:"exclude-dirs" json:"exclude-dirs,omitempty"`
}

// Load reads the configuration at path using Viper and unmarshals it into
// the Config struct. Files without a recognized extension are treated as
// JSON.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if !hasKnownExtension(path) {
		v.SetConfigType("json")
	}
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max-size-kb", DefaultLogMaxSizeKB)
	v.SetDefault("retention.policy", PolicyFixed)
	v.SetDefault("retention.gfs.first-weekday", "mon")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
	}
	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}
	return c.Validate()
}

// Validate checks the loaded configuration for structural errors.
func (c *Config) Validate() error {
	if len(c.Backups) == 0 {
		return fmt.Errorf("%w: no backups configured", ErrValidateConfig)
	}
	for i, job := range c.Backups {
		if job.SrcDir == "" {
			return fmt.Errorf("%w: backups[%d]: src-dir is required", ErrValidateConfig, i)
		}
		if job.DestDir == "" {
			return fmt.Errorf("%w: backups[%d]: dest-dir is required", ErrValidateConfig, i)
		}
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Retention.ArchiveStale && c.Retention.ArchiveDir == "" {
		return fmt.Errorf("%w: retention.archive-dir is required when archive-stale is set", ErrValidateConfig)
	}
	return nil
}

// Policy materializes the configured retention policy.
func (c *Config) Policy() (retention.Policy, error) {
	r := c.Retention
	switch r.Policy {
	case PolicyFixed, "":
		if r.KeepLast < 0 {
			return nil, fmt.Errorf("%w: retention.keep-last must be >= 0", ErrValidateConfig)
		}
		return retention.FixedCount{Max: r.KeepLast}, nil
	case PolicyGFS:
		if r.GFS.Years < 0 || r.GFS.Months < 0 || r.GFS.Weeks < 0 || r.GFS.Days < 0 {
			return nil, fmt.Errorf("%w: retention.gfs tier counts must be >= 0", ErrValidateConfig)
		}
		weekday, err := ParseWeekday(r.GFS.FirstWeekday)
		if err != nil {
			return nil, fmt.Errorf("%w: retention.gfs.first-weekday: %v", ErrValidateConfig, err)
		}
		return retention.GFS{
			Years:        r.GFS.Years,
			Months:       r.GFS.Months,
			Weeks:        r.GFS.Weeks,
			Days:         r.GFS.Days,
			FirstWeekday: weekday,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown retention.policy %q", ErrValidateConfig, r.Policy)
	}
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseWeekday resolves a weekday name; three-letter abbreviations and full
// names are accepted, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	if wd, ok := weekdays[key]; ok {
		return wd, nil
	}
	return time.Monday, fmt.Errorf("unknown weekday %q", name)
}

func hasKnownExtension(path string) bool {
	for _, ext := range viper.SupportedExts {
		if strings.HasSuffix(path, "."+ext) {
			return true
		}
	}
	return false
}
