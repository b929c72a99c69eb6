// Package config holds the configuration surface of the disksync daemon.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disklab/disksync/internal/utils"
)

var (
	home, _          = os.UserHomeDir()
	DefaultDataDir   = filepath.Join(home, ".disksync")
	DefaultLocalDir  = filepath.Join(home, "DiskSync")
	DefaultLogFile   = filepath.Join(DefaultDataDir, "logs", "disksync.log")
	DefaultCacheFile = filepath.Join(DefaultDataDir, "metadata_cache.json")
)

// Env variable names, reported verbatim when a required value is missing.
const (
	EnvToken        = "DISKSYNC_TOKEN"
	EnvLocalDir     = "DISKSYNC_LOCAL_DIR"
	EnvRemoteFolder = "DISKSYNC_REMOTE_FOLDER"
	EnvSyncPeriod   = "DISKSYNC_SYNC_PERIOD"
)

type Config struct {
	// Token is the OAuth credential for the cloud disk API. Never logged.
	Token string `mapstructure:"token"`

	// LocalDir is the flat directory kept in sync.
	LocalDir string `mapstructure:"local_dir"`

	// RemoteFolder is the folder name inside the cloud disk.
	RemoteFolder string `mapstructure:"remote_folder"`

	// SyncPeriod is the delay between reconciliation passes, in seconds.
	SyncPeriod int `mapstructure:"sync_period"`

	LogFile   string `mapstructure:"log_file"`
	CacheFile string `mapstructure:"cache_file"`
}

// Validate checks required values, normalizes the sync period sign and
// resolves all paths to absolute. Missing required values are fatal at
// startup; the error names the env variables to set.
func (c *Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, EnvToken)
	}
	if c.LocalDir == "" {
		missing = append(missing, EnvLocalDir)
	}
	if c.RemoteFolder == "" {
		missing = append(missing, EnvRemoteFolder)
	}
	if c.SyncPeriod == 0 {
		missing = append(missing, EnvSyncPeriod)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.SyncPeriod < 0 {
		c.SyncPeriod = -c.SyncPeriod
	}

	var err error
	if c.LocalDir, err = utils.ResolvePath(c.LocalDir); err != nil {
		return fmt.Errorf("local dir: %w", err)
	}

	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.LogFile, err = utils.ResolvePath(c.LogFile); err != nil {
		return fmt.Errorf("log file: %w", err)
	}

	if c.CacheFile == "" {
		c.CacheFile = DefaultCacheFile
	}
	if c.CacheFile, err = utils.ResolvePath(c.CacheFile); err != nil {
		return fmt.Errorf("cache file: %w", err)
	}

	if strings.ContainsAny(c.RemoteFolder, "/\\") {
		return errors.New("remote folder must be a plain folder name, not a path")
	}

	return nil
}

// Period returns the sync period as a duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.SyncPeriod) * time.Second
}
