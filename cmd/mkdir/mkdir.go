package mkdir

import (
	"fmt"

	"github.com/spf13/cobra"

	davget "github.com/davget/davget/pkg"
)

const MkdirCMDName = "mkdir"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <remote-path>", MkdirCMDName),
		Short: "Create a remote directory",
		Long:  "Create a remote collection with MKCOL. The parent must already exist.",
		RunE:  runMkdirCMD,
		Args:  cobra.ExactArgs(1),
	}
}

func runMkdirCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	remote, err := davget.RemoteFromConfig()
	if err != nil {
		return err
	}
	return remote.Mkdir(cmd.Context(), args[0])
}
