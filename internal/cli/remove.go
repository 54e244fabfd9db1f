package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/filekeystore/internal/keystore"
)

func (c *Cli) newRemoveCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "remove [FIELD=VALUE...]",
		Short: "Remove every entry whose fields match all given values",
		Long: "Remove entries matching the given fields. Removing everything requires --all.\n" +
			fieldsHelp(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRemove(cmd.Context(), args, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "allow removing every entry when no field is given")

	return cmd
}

func (c *Cli) runRemove(ctx context.Context, args []string, all bool) error {
	query, err := parseValues(args)
	if err != nil {
		return err
	}
	if len(query) == 0 && !all {
		return fmt.Errorf("no fields given: pass FIELD=VALUE or --all to remove every entry")
	}

	return c.withKeystore(ctx, func(ks keystore.Keystore) error {
		n, err := ks.Remove(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to remove entries: %w", err)
		}

		c.io.Printf("Removed %d entry(ies).\n", n)
		return nil
	})
}
