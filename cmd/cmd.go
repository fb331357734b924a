package cmd

import (
	"github.com/spf13/cobra"

	"github.com/davget/davget/cmd/cp"
	"github.com/davget/davget/cmd/ls"
	"github.com/davget/davget/cmd/mkdir"
	"github.com/davget/davget/cmd/mv"
	"github.com/davget/davget/cmd/put"
	"github.com/davget/davget/cmd/rm"
	"github.com/davget/davget/cmd/root"
	"github.com/davget/davget/cmd/version"
)

func GetRootCommand() *cobra.Command {
	rootCMD := root.GetCommand()
	rootCMD.AddCommand(ls.GetCommand())
	rootCMD.AddCommand(put.GetCommand())
	rootCMD.AddCommand(mkdir.GetCommand())
	rootCMD.AddCommand(rm.GetCommand())
	rootCMD.AddCommand(cp.GetCommand())
	rootCMD.AddCommand(mv.GetCommand())
	rootCMD.AddCommand(version.VersionCMD)
	return rootCMD
}
