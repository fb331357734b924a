package rm

import (
	"fmt"

	"github.com/spf13/cobra"

	davget "github.com/davget/davget/pkg"
)

const RmCMDName = "rm"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <remote-path>", RmCMDName),
		Short: "Delete a remote file or directory",
		Long:  "Delete the remote path. Directories are removed recursively by the server.",
		RunE:  runRmCMD,
		Args:  cobra.ExactArgs(1),
	}
}

func runRmCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	remote, err := davget.RemoteFromConfig()
	if err != nil {
		return err
	}
	return remote.Delete(cmd.Context(), args[0])
}
