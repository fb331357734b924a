package put

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	davget "github.com/davget/davget/pkg"
)

const PutCMDName = "put"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <local-file> <remote-path>", PutCMDName),
		Short: "Upload a local file",
		Long:  "Upload one local file to the remote path as a single PUT request.",
		RunE:  runPutCMD,
		Args:  cobra.ExactArgs(2),
	}
}

func runPutCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	localPath := args[0]
	remotePath := args[1]

	remote, err := davget.RemoteFromConfig()
	if err != nil {
		return err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}

	if err := remote.Put(cmd.Context(), remotePath, file, st.Size()); err != nil {
		return err
	}
	log.Info().
		Str("local", localPath).
		Str("remote", remotePath).
		Str("size", humanize.IBytes(uint64(st.Size()))).
		Msg("Uploaded")
	return nil
}
