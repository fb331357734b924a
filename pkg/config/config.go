package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/download"
	"github.com/davget/davget/pkg/fsutil"
	"github.com/davget/davget/pkg/logging"
	"github.com/davget/davget/pkg/optname"
)

const (
	// DefaultChunkRetries and DefaultSplitChunkRetries bound how often a
	// single chunk is attempted in the parallel paths. The split path has
	// historically been more generous because split transfers are the
	// multi-hour ones.
	DefaultChunkRetries      = 6
	DefaultSplitChunkRetries = 10
)

func AddRootPersistentFlags(cmd *cobra.Command) error {
	// Persistent Flags (applies to all commands/subcommands)
	cmd.PersistentFlags().StringP(optname.Server, "s", "", "Server URL, e.g. https://dav.example.com/dav (webdav:// and webdavs:// are accepted)")
	cmd.PersistentFlags().String(optname.Username, "", "Username for basic authentication")
	cmd.PersistentFlags().String(optname.Password, "", "Password for basic authentication (prefer DAVGET_PASSWORD)")
	cmd.PersistentFlags().String(optname.ChunkSize, "8M", "Chunk size for ranged downloads (e.g. 8M), clamped to 1M-32M")
	cmd.PersistentFlags().IntP(optname.Connections, "x", 4, "Number of parallel connections for ranged downloads")
	cmd.PersistentFlags().Bool(optname.ForceSplit, false, "Force the FAT32-style split output layout regardless of file size")
	cmd.PersistentFlags().Int(optname.ChunkRetries, DefaultChunkRetries, "Attempts per chunk for single-file parallel downloads")
	cmd.PersistentFlags().Int(optname.SplitChunkRetries, DefaultSplitChunkRetries, "Attempts per chunk for split parallel downloads")
	cmd.PersistentFlags().Duration(optname.ConnTimeout, 15*time.Second, "Timeout for establishing a connection, format is <number><unit>, e.g. 10s")
	cmd.PersistentFlags().String(optname.LimitRate, "0", "Bandwidth cap in bytes/sec (e.g. 10M), 0 disables the cap")
	cmd.PersistentFlags().IntP(optname.Retries, "r", 2, "Transport retries for metadata and control requests (never chunk requests)")
	cmd.PersistentFlags().String(optname.FallbackDir, fsutil.DefaultFallbackDir(), "Known-writable directory used when the requested destination is unusable")
	cmd.PersistentFlags().BoolP(optname.Force, "f", false, "Discard existing local data and download from scratch")
	cmd.PersistentFlags().Bool(optname.Insecure, false, "Skip TLS certificate verification")
	cmd.PersistentFlags().BoolP(optname.Verbose, "v", false, "Verbose mode (equivalent to --log-level debug)")
	cmd.PersistentFlags().String(optname.LoggingLevel, "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String(optname.SplitPartSize, "0", "Part size for the split layout, 0 uses the FAT32-safe default")

	viper.SetEnvPrefix("DAVGET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(err)
	}

	// Hide flags from help, these are intended to be used for testing/internal benchmarking/debugging only
	for _, flag := range []string{optname.SplitPartSize} {
		if err := cmd.PersistentFlags().MarkHidden(flag); err != nil {
			return fmt.Errorf("failed to hide flag %s: %w", flag, err)
		}
	}

	return nil
}

func PersistentStartupProcessFlags() error {
	if viper.GetBool(optname.Verbose) {
		viper.Set(optname.LoggingLevel, "debug")
	}
	logging.SetLevel(viper.GetString(optname.LoggingLevel))
	return nil
}

// ChunkSizeBytes parses the humanized --chunk-size value. The download planner
// applies the 1 MiB to 32 MiB clamp, so out-of-range hints are not an error.
func ChunkSizeBytes() (int64, error) {
	parsed, err := humanize.ParseBytes(viper.GetString(optname.ChunkSize))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", optname.ChunkSize, err)
	}
	return int64(parsed), nil
}

// LimitRateBytes parses the humanized --limit-rate value, 0 meaning no cap.
func LimitRateBytes() (int64, error) {
	parsed, err := humanize.ParseBytes(viper.GetString(optname.LimitRate))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", optname.LimitRate, err)
	}
	return int64(parsed), nil
}

// SplitPartSizeBytes parses the hidden --split-part-size override, 0 meaning
// the FAT32-safe default.
func SplitPartSizeBytes() (int64, error) {
	parsed, err := humanize.ParseBytes(viper.GetString(optname.SplitPartSize))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", optname.SplitPartSize, err)
	}
	return int64(parsed), nil
}

// ServerURL returns the configured server URL. Every remote operation
// needs one.
func ServerURL() (string, error) {
	server := viper.GetString(optname.Server)
	if server == "" {
		return "", fmt.Errorf("no server configured: pass --%s or set DAVGET_SERVER", optname.Server)
	}
	return server, nil
}

// ClientOptions assembles the transport options shared by every session.
func ClientOptions() (client.Options, error) {
	limitRate, err := LimitRateBytes()
	if err != nil {
		return client.Options{}, err
	}
	return client.Options{
		ConnectTimeout: viper.GetDuration(optname.ConnTimeout),
		MaxRetries:     viper.GetInt(optname.Retries),
		Insecure:       viper.GetBool(optname.Insecure),
		Username:       viper.GetString(optname.Username),
		Password:       viper.GetString(optname.Password),
		LimitRate:      limitRate,
	}, nil
}

// DownloadOptions assembles the engine options from the resolved
// configuration.
func DownloadOptions() (download.Options, error) {
	chunkSize, err := ChunkSizeBytes()
	if err != nil {
		return download.Options{}, err
	}
	partSize, err := SplitPartSizeBytes()
	if err != nil {
		return download.Options{}, err
	}
	return download.Options{
		ChunkSize:         chunkSize,
		Connections:       viper.GetInt(optname.Connections),
		ForceSplit:        viper.GetBool(optname.ForceSplit),
		PartSize:          partSize,
		ChunkRetries:      viper.GetInt(optname.ChunkRetries),
		SplitChunkRetries: viper.GetInt(optname.SplitChunkRetries),
		Force:             viper.GetBool(optname.Force),
		FallbackDir:       viper.GetString(optname.FallbackDir),
	}, nil
}
