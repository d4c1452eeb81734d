package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"slotbft/privval"
)

var genValidatorKeyFile string

// GenValidatorCmd generates (or loads) a delegate's Ed25519 signing key.
var GenValidatorCmd = &cobra.Command{
	Use:   "gen-validator",
	Short: "Generate a delegate signing key file",
	RunE: func(cmd *cobra.Command, args []string) error {
		pv := privval.LoadOrGenFilePV(genValidatorKeyFile)
		pub, err := pv.GetPubKey()
		if err != nil {
			return err
		}
		fmt.Printf("address=%s pub_key=%x\n", pv.GetAddress(), pub.Bytes())
		return nil
	},
}

func init() {
	GenValidatorCmd.Flags().StringVar(&genValidatorKeyFile, "validator-key-file", "./config/priv_validator_key.json", "path to write the delegate key")
}
