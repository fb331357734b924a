package ls

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	davget "github.com/davget/davget/pkg"
	"github.com/davget/davget/pkg/dav"
)

const LsCMDName = "ls"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <remote-path>", LsCMDName),
		Short: "List a remote directory",
		Long:  "List the entries of a remote directory, directories first.",
		RunE:  runLsCMD,
		Args:  cobra.ExactArgs(1),
	}
}

func runLsCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	remote, err := davget.RemoteFromConfig()
	if err != nil {
		return err
	}
	entries, err := remote.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Println(renderEntry(entry))
	}
	return nil
}

// renderEntry formats one listing line: type marker, humanized size,
// modification time, name. Directories carry no size and a missing
// getlastmodified renders as a dash.
func renderEntry(entry dav.Entry) string {
	marker := "-"
	size := humanize.IBytes(uint64(entry.Size))
	if entry.IsDir {
		marker = "d"
		size = "-"
	}
	modified := "-"
	if !entry.Modified.IsZero() {
		modified = entry.Modified.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s %10s  %16s  %s", marker, size, modified, entry.Name)
}
