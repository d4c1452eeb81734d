package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/log"
)

var logger = log.NewTMLogger(log.NewSyncWriter(os.Stdout))

// RootCmd is the slotbft CLI entrypoint, mirroring the teacher's
// cmd/commands layout: one subcommand per lifecycle step (key generation,
// genesis init, node start).
var RootCmd = &cobra.Command{
	Use:   "slotbftd",
	Short: "slotbft consensus node",
}

func init() {
	RootCmd.AddCommand(GenNodeKeyCmd)
	RootCmd.AddCommand(GenValidatorCmd)
	RootCmd.AddCommand(InitCmd)
	RootCmd.AddCommand(ShowNodeIDCmd)
	RootCmd.AddCommand(StartCmd)
}
