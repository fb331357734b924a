package mv

import (
	"fmt"

	"github.com/spf13/cobra"

	davget "github.com/davget/davget/pkg"
)

const MvCMDName = "mv"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <src> <dst>", MvCMDName),
		Short: "Move or rename a remote file or directory",
		Long:  "Move src to dst on the server, overwriting an existing dst.",
		RunE:  runMvCMD,
		Args:  cobra.ExactArgs(2),
	}
}

func runMvCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	remote, err := davget.RemoteFromConfig()
	if err != nil {
		return err
	}
	return remote.Move(cmd.Context(), args[0], args[1])
}
