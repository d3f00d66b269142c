package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cli := &client{}

	root := &cobra.Command{
		Use:           "evidencectl",
		Short:         "Control a running evidenced daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cli.baseURL, "addr", "http://127.0.0.1:8750", "daemon address")
	root.PersistentFlags().StringVar(&cli.token, "token", os.Getenv("EVIDENCECTL_TOKEN"), "bearer token from unlock")

	root.AddCommand(
		newPasscodeCmd(cli),
		newUnlockCmd(cli),
		newLockCmd(cli),
		newSessionCmd(cli),
		newSaveCmd(cli),
		newListCmd(cli),
		newLoadCmd(cli),
		newDeleteCmd(cli),
		newUsageCmd(cli),
		newTranscribeCmd(cli),
		newSearchCmd(cli),
		newModelCmd(cli),
		newSyncCmd(cli),
	)
	return root
}
