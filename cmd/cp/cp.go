package cp

import (
	"fmt"

	"github.com/spf13/cobra"

	davget "github.com/davget/davget/pkg"
)

const CpCMDName = "cp"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <src> <dst>", CpCMDName),
		Short: "Copy a remote file or directory",
		Long:  "Copy src to dst on the server, overwriting an existing dst.",
		RunE:  runCpCMD,
		Args:  cobra.ExactArgs(2),
	}
}

func runCpCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	remote, err := davget.RemoteFromConfig()
	if err != nil {
		return err
	}
	return remote.Copy(cmd.Context(), args[0], args[1])
}
