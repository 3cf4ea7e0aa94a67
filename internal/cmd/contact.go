package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dang1412/sui-chat/internal/config"
	"github.com/dang1412/sui-chat/internal/keystore"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage the local contact book",
}

var contactAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add or update a named peer address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := openKeystore()
		if err != nil {
			return err
		}
		return keys.AddContact(args[0], args[1])
	},
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := openKeystore()
		if err != nil {
			return err
		}
		contacts, err := keys.Contacts()
		if err != nil {
			return err
		}
		for _, contact := range contacts {
			fmt.Printf("%s\t%s\n", contact.Name, contact.Address)
		}
		return nil
	},
}

func openKeystore() (*keystore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return keystore.Open(cfg.KeystorePath)
}

func init() {
	contactCmd.AddCommand(contactAddCmd)
	contactCmd.AddCommand(contactListCmd)
}
