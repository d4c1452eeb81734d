package commands

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"slotbft/genesis"
	"slotbft/privval"
)

var (
	initGenesisFile string
	initNumDelegates int
	initKeyDir      string
)

// InitCmd bootstraps a fresh local chain: generates numDelegates delegate
// key files and writes a genesis document listing their public keys,
// mirroring the teacher's init/gen-genesis pair collapsed into one step.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a fresh genesis document and delegate keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		json := jsoniter.ConfigCompatibleWithStandardLibrary

		doc := genesis.Doc{ChainID: "slotbft-local"}
		for i := 0; i < initNumDelegates; i++ {
			keyFile := fmt.Sprintf("%s/delegate-%d.json", initKeyDir, i)
			pv := privval.LoadOrGenFilePV(keyFile)
			pub, err := pv.GetPubKey()
			if err != nil {
				return err
			}
			doc.Delegates = append(doc.Delegates, genesis.DelegateEntry{PubKey: hex.EncodeToString(pub.Bytes())})
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		if err := ioutil.WriteFile(initGenesisFile, data, 0644); err != nil {
			return err
		}
		fmt.Printf("wrote genesis with %d delegates to %s\n", len(doc.Delegates), initGenesisFile)
		return nil
	},
}

func init() {
	InitCmd.Flags().StringVar(&initGenesisFile, "genesis-file", "./config/genesis.json", "path to write the genesis document")
	InitCmd.Flags().IntVar(&initNumDelegates, "delegates", 4, "number of delegate keys to generate")
	InitCmd.Flags().StringVar(&initKeyDir, "key-dir", "./config", "directory to write delegate key files")
}
