package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/p2p"
)

var showNodeIDKeyFile string

var ShowNodeIDCmd = &cobra.Command{
	Use:   "show-node-id",
	Short: "Print this node's transport identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeKey, err := p2p.LoadNodeKey(showNodeIDKeyFile)
		if err != nil {
			return err
		}
		fmt.Println(nodeKey.ID())
		return nil
	},
}

func init() {
	ShowNodeIDCmd.Flags().StringVar(&showNodeIDKeyFile, "node-key-file", "./config/node_key.json", "path to the node key")
}
