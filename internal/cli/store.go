package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/filekeystore/internal/keystore"
)

func (c *Cli) newStoreCommand() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "store [FIELD=VALUE...]",
		Short: "Store a secret, replacing the entry with exactly the same fields",
		Long: "Store a secret under the given fields. An entry with exactly the same fields is replaced.\n" +
			"Without arguments the fields are prompted for as one line of FIELD=VALUE pairs.\n" +
			"Without --secret the secret is read from the terminal without echo, or from stdin when piped.\n" +
			fieldsHelp(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStore(cmd.Context(), args, secret)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "secret value (not recommended, visible in process list and shell history)")

	return cmd
}

func (c *Cli) runStore(ctx context.Context, args []string, secret string) error {
	if len(args) == 0 {
		line, err := c.io.ReadInput("Fields (FIELD=VALUE ...): ")
		if err != nil {
			return fmt.Errorf("failed to read fields: %w", err)
		}
		args = strings.Fields(line)
		if len(args) == 0 {
			return fmt.Errorf("at least one FIELD=VALUE is required")
		}
	}

	values, err := parseValues(args)
	if err != nil {
		return err
	}

	if secret == "" {
		secret, err = c.io.ReadPassword("Secret: ")
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		if secret == "" {
			return fmt.Errorf("secret cannot be empty")
		}
	}

	return c.withKeystore(ctx, func(ks keystore.Keystore) error {
		if err := ks.Store(ctx, values, []byte(secret)); err != nil {
			return fmt.Errorf("failed to store secret: %w", err)
		}

		c.io.Println("✓ Secret stored.")
		c.io.Printf("Fields: %s\n", values)
		return nil
	})
}
