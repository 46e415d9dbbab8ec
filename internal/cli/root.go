package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
	"github.com/lherman-cs/go-rosbag2/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rosbag2csv",
	Short: "Extract rosbag2 recordings into CSV tables and images",
	Long: `rosbag2csv reads every recording of the bags directory, a metadata.yaml next
to its SQLite database, and writes one CSV per channel plus one image per message
of image channels into the processed directory.

Configuration sources (in priority order):
  1. Command line flags
  2. Environment variables (ROSBAG2CSV_*)
  3. Configuration file
  4. Defaults`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.rosbag2csv.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output, same as --log-level debug")
	flags.String("bags_dir", "./bags", "directory holding one sub directory per recording")
	flags.String("docs_dir", "./docs", "documentation directory, must exist")
	flags.String("processed_dir", "./processed", "directory the artifacts are written to")
	flags.StringSlice("msg-path", nil, "extra roots of <pkg>/msg/<Type>.msg definitions")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag(config.KeyBagsDir, flags.Lookup("bags_dir"))
	viper.BindPFlag(config.KeyDocsDir, flags.Lookup("docs_dir"))
	viper.BindPFlag(config.KeyProcessedDir, flags.Lookup("processed_dir"))
	viper.BindPFlag(config.KeyMsgPaths, flags.Lookup("msg-path"))
	viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	addRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rosbag2csv")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig returns the validated configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.Load(viper.GetViper())
	if verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if level == "debug" {
		logConfig = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logConfig.Level = lvl

	return logConfig.Build()
}

// newRegistry returns the built-in message definitions extended with every root
// of msgPaths.
func newRegistry(msgPaths []string) (*rosbag2.Registry, error) {
	reg, err := rosbag2.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}

	for _, root := range msgPaths {
		if err := reg.LoadDir(root); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
