package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/disklab/disksync/internal/config"
	"github.com/disklab/disksync/internal/diskapi"
	"github.com/disklab/disksync/internal/sync"
	"github.com/disklab/disksync/internal/timesync"
	"github.com/disklab/disksync/internal/utils"
	"github.com/disklab/disksync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "disksync",
	Short:   "Bidirectional cloud-disk folder synchronizer",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Token:        viper.GetString("token"),
			LocalDir:     viper.GetString("local_dir"),
			RemoteFolder: viper.GetString("remote_folder"),
			SyncPeriod:   viper.GetInt("sync_period"),
			LogFile:      viper.GetString("log_file"),
			CacheFile:    viper.GetString("cache_file"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// config is good, errors past this point are runtime failures
		cmd.SilenceUsage = true

		if err := setupLogging(cfg.LogFile); err != nil {
			return err
		}
		slog.Info("disksync starting", "version", version.Short(), "token", utils.MaskSecret(cfg.Token))

		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("dir", "d", config.DefaultLocalDir, "Local directory to synchronize")
	rootCmd.Flags().StringP("folder", "f", "", "Remote cloud-disk folder name")
	rootCmd.Flags().IntP("period", "p", 0, "Seconds between sync passes")
	rootCmd.Flags().String("log-file", config.DefaultLogFile, "Log file path")
	rootCmd.Flags().String("cache-file", config.DefaultCacheFile, "Metadata cache file path")
	rootCmd.Flags().String("ntp-host", timesync.DefaultHost, "NTP server for clock correction")
}

func run(ctx context.Context, cfg *config.Config) error {
	offset := timesync.Offset(viper.GetString("ntp_host"))
	slog.Info("clock correction resolved", "offsetSeconds", offset)

	cache := sync.NewCache(cfg.CacheFile, config.DefaultCacheFile)
	local, err := sync.NewLocalStore(cfg.LocalDir, config.DefaultLocalDir, offset)
	if err != nil {
		return fmt.Errorf("open local directory: %w", err)
	}

	api := diskapi.New(cfg.Token)
	remote := sync.NewRemoteStore(ctx, api, cfg.RemoteFolder, offset)

	engine := sync.NewEngine(local, remote, cache, offset)
	runner := sync.NewRunner(engine, cfg.Period())

	defer slog.Info("Bye!")
	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		// shutdown via signal is a clean exit
		return nil
	}
	return err
}

func loadConfig(cmd *cobra.Command) error {
	// .env is optional, real env always wins
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	viper.BindPFlag("local_dir", cmd.Flags().Lookup("dir"))
	viper.BindPFlag("remote_folder", cmd.Flags().Lookup("folder"))
	viper.BindPFlag("sync_period", cmd.Flags().Lookup("period"))
	viper.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
	viper.BindPFlag("cache_file", cmd.Flags().Lookup("cache-file"))
	viper.BindPFlag("ntp_host", cmd.Flags().Lookup("ntp-host"))

	viper.SetEnvPrefix("DISKSYNC")
	viper.AutomaticEnv()

	return nil
}

// setupLogging fans every record out to a colored stdout handler and a
// plain-text file handler.
func setupLogging(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
