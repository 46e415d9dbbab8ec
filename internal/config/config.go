// Package config holds the settings of rosbag2csv. Values come from flags, the
// ROSBAG2CSV_* environment and an optional YAML file, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const EnvPrefix = "ROSBAG2CSV"

// Keys understood by Load.
const (
	KeyBagsDir            = "bags_dir"
	KeyDocsDir            = "docs_dir"
	KeyProcessedDir       = "processed_dir"
	KeyMsgPaths           = "msg_paths"
	KeyLogLevel           = "log.level"
	KeyMetricsEnabled     = "metrics.enabled"
	KeyWatch              = "watch"
	KeySchedule           = "schedule"
	KeyImageDirPerChannel = "image.dir_per_channel"
)

var errWatchAndSchedule = errors.New("watch and schedule can't be used together")

type Config struct {
	BagsDir      string
	DocsDir      string
	ProcessedDir string
	// MsgPaths are extra roots of <pkg>/msg/<Type>.msg definitions.
	MsgPaths []string

	LogLevel       string
	MetricsEnabled bool

	Watch    bool
	Schedule string

	ImageDirPerChannel bool
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBagsDir, "./bags")
	v.SetDefault(KeyDocsDir, "./docs")
	v.SetDefault(KeyProcessedDir, "./processed")
	v.SetDefault(KeyMsgPaths, []string{})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetricsEnabled, false)
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeySchedule, "")
	v.SetDefault(KeyImageDirPerChannel, false)
}

// BindEnv makes every key overridable through ROSBAG2CSV_<KEY>, dots become
// underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration out of v.
func Load(v *viper.Viper) *Config {
	return &Config{
		BagsDir:            v.GetString(KeyBagsDir),
		DocsDir:            v.GetString(KeyDocsDir),
		ProcessedDir:       v.GetString(KeyProcessedDir),
		MsgPaths:           v.GetStringSlice(KeyMsgPaths),
		LogLevel:           strings.ToLower(v.GetString(KeyLogLevel)),
		MetricsEnabled:     v.GetBool(KeyMetricsEnabled),
		Watch:              v.GetBool(KeyWatch),
		Schedule:           strings.TrimSpace(v.GetString(KeySchedule)),
		ImageDirPerChannel: v.GetBool(KeyImageDirPerChannel),
	}
}

// Validate checks that the bags, docs and processed directories exist and that
// the trigger settings make sense.
func (c *Config) Validate() error {
	dirs := []struct {
		key  string
		path string
	}{
		{key: KeyBagsDir, path: c.BagsDir},
		{key: KeyDocsDir, path: c.DocsDir},
		{key: KeyProcessedDir, path: c.ProcessedDir},
	}
	for _, dir := range dirs {
		info, err := os.Stat(dir.path)
		if err != nil {
			return fmt.Errorf("%s: %w", dir.key, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s: %s is not a directory", dir.key, dir.path)
		}
	}

	for _, root := range c.MsgPaths {
		if _, err := os.Stat(root); err != nil {
			return fmt.Errorf("%s: %w", KeyMsgPaths, err)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s: unknown level %q", KeyLogLevel, c.LogLevel)
	}

	if c.Watch && c.Schedule != "" {
		return errWatchAndSchedule
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("%s: %w", KeySchedule, err)
		}
	}

	return nil
}
