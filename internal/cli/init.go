package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/filekeystore/internal/keystore"
)

func (c *Cli) newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the keystore file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withKeystore(cmd.Context(), func(keystore.Keystore) error {
				c.io.Println("✓ Keystore is ready.")
				return nil
			})
		},
	}
}
