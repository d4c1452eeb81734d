package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/p2p"
)

var genNodeKeyFile string

// GenNodeKeyCmd generates the node's transport identity key, kept separate
// from the delegate's Ed25519 signing key the same way the teacher splits
// NodeKeyFile from PrivValidatorKeyFile.
var GenNodeKeyCmd = &cobra.Command{
	Use:   "gen-node-key",
	Short: "Generate a node identity key file",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeKey, err := p2p.LoadOrGenNodeKey(genNodeKeyFile)
		if err != nil {
			return err
		}
		fmt.Println(string(nodeKey.ID()))
		return nil
	},
}

func init() {
	GenNodeKeyCmd.Flags().StringVar(&genNodeKeyFile, "node-key-file", "./config/node_key.json", "path to write the node key")
}
