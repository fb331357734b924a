package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	davget "github.com/davget/davget/pkg"
	"github.com/davget/davget/pkg/config"
	"github.com/davget/davget/pkg/download"
	"github.com/davget/davget/pkg/optname"
)

const rootLongDesc = `
davget

DavGet is a resumable, parallel file downloader for WebDAV servers. It
resolves the remote size over PROPFIND, probes whether the server honors
byte ranges, and fetches large files as ranged chunks over several
connections at once. An interrupted download resumes from the bytes
already on disk, and files too large for FAT32-style filesystems are
written as a directory of numbered parts instead of one file.

The usual remote filesystem operations are available as subcommands:
ls, put, mkdir, rm, cp, and mv.
`

const usageTemplate = `
Usage:{{if .Runnable}}
{{if .HasAvailableFlags}}{{appendIfNotPresent .UseLine "[flags]"}}{{else}}{{.UseLine}}{{end}}{{end}}{{if .HasAvailableSubCommands}}
{{.CommandPath}} [command]{{end}}{{if gt .Aliases 0}}

Aliases:
{{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if .IsAvailableCommand}}
{{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
{{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "davget [flags] <remote-path> [<local-path>]",
		Short: "davget",
		Long:  rootLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.PersistentStartupProcessFlags()
		},
		RunE:    runRootCMD,
		Args:    cobra.RangeArgs(1, 2),
		Example: `  davget -s webdavs://dav.example.com/media "/films/big movie.mkv"`,
	}
	cmd.SetUsageTemplate(usageTemplate)
	err := config.AddRootPersistentFlags(cmd)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cmd
}

func runRootCMD(cmd *cobra.Command, args []string) error {
	// After we run through the PreRun functions we want to silence usage from being printed
	// on all errors
	cmd.SilenceUsage = true

	remotePath := args[0]
	localArg := ""
	if len(args) == 2 {
		localArg = args[1]
	}
	dest := davget.DefaultDestination(remotePath, localArg)

	log.Info().Str("path", remotePath).
		Str("dest", dest).
		Str("chunk_size", viper.GetString(optname.ChunkSize)).
		Int("connections", viper.GetInt(optname.Connections)).
		Msg("Initiating")

	if err := rootExecute(cmd.Context(), remotePath, dest); err != nil {
		return err
	}

	return nil
}

// rootExecute is the main function of the program and encapsulates the general logic
// returns any/all errors to the caller.
func rootExecute(ctx context.Context, remotePath, dest string) error {
	getter, err := davget.FromConfig()
	if err != nil {
		return err
	}
	getter.Options.Progress = progressLogger()

	_, err = getter.DownloadFile(ctx, remotePath, dest)
	if errors.Is(err, download.ErrDestinationExists) {
		return fmt.Errorf("%w (use --%s to overwrite)", err, optname.Force)
	}
	return err
}

// progressLogger returns a callback that logs transfer progress at most
// once per second no matter how many workers report.
func progressLogger() download.ProgressFunc {
	var lastLog atomic.Int64
	return func(transferred, total int64) {
		now := time.Now().Unix()
		last := lastLog.Load()
		if now == last || !lastLog.CompareAndSwap(last, now) {
			return
		}
		log.Debug().
			Str("transferred", humanize.IBytes(uint64(transferred))).
			Str("total", humanize.IBytes(uint64(total))).
			Msg("Progress")
	}
}
