package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dang1412/sui-chat/internal/config"
	"github.com/dang1412/sui-chat/internal/keystore"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the local ledger address, creating the identity if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		keys, err := keystore.Open(cfg.KeystorePath)
		if err != nil {
			return err
		}
		signer, err := keys.LoadOrCreateSigner()
		if err != nil {
			return err
		}
		fmt.Println(signer.Address())
		return nil
	},
}
