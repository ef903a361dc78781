package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/s0up4200/seerrbridge/config"
	"github.com/s0up4200/seerrbridge/dispatch"
	"github.com/s0up4200/seerrbridge/overseerr"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	logFile io.Closer

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "seerrbridge",
	Short: "Bridge Jellyseerr/Overseerr into home automation",
	Long: `seerrbridge connects to a Jellyseerr or Overseerr server, exposes request
and issue counters as sensors, receives Seerr webhooks and lets you submit or
moderate media requests from the command line, over HTTP or through MQTT.`,
	SilenceUsage: true,
}

// SetVersion records build information
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer closeLogFile()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		closeLogFile()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)
	return nil
}

// newSeerrClient creates a connected Seerr client from the loaded config
func newSeerrClient() (*overseerr.Client, error) {
	opts := []overseerr.Option{
		overseerr.WithTimeout(cfg.Seerr.Timeout),
		overseerr.WithPageSize(cfg.Seerr.PageSize),
	}
	if !cfg.Seerr.VerifySSL {
		opts = append(opts, overseerr.WithInsecureSkipVerify())
	}
	if cfg.Seerr.Username != "" {
		opts = append(opts, overseerr.WithCredentials(cfg.Seerr.Username, cfg.Seerr.Password))
	}

	client, err := overseerr.NewClient(cfg.Seerr.BaseURL(), cfg.Seerr.APIKey, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Seerr client: %w", err)
	}
	return client, nil
}

// newDispatcher wires a dispatcher to a fresh client
func newDispatcher() (*dispatch.Dispatcher, error) {
	client, err := newSeerrClient()
	if err != nil {
		return nil, err
	}
	return dispatch.New(client, logger, dispatchOptions()), nil
}

func dispatchOptions() dispatch.Options {
	return dispatch.Options{
		Legacy:        cfg.Seerr.Legacy,
		DefaultSeason: dispatch.ParseSeasonPolicy(cfg.Seerr.Season),
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
		}
	}

	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   filepath.Join(cfg.Path, "seerrbridge.log"),
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
				LocalTime:  true,
			}
			logFile = rotator
			output = zerolog.MultiLevelWriter(output, rotator)
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
