package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/filekeystore/internal/keystore"
)

func (c *Cli) newFindCommand() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "find [FIELD=VALUE...]",
		Short: "List entries whose fields match all given values",
		Long: "List entries matching the given fields. Fields not given match anything;\n" +
			"with no arguments every entry is listed.\n" + fieldsHelp(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFind(cmd.Context(), args, show)
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print secrets instead of hiding them")

	return cmd
}

func (c *Cli) runFind(ctx context.Context, args []string, show bool) error {
	query, err := parseValues(args)
	if err != nil {
		return err
	}

	return c.withKeystore(ctx, func(ks keystore.Keystore) error {
		entries, err := ks.Find(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to find entries: %w", err)
		}

		if len(entries) == 0 {
			c.io.Println("No entries found.")
			return nil
		}

		// Выводим найденные записи
		c.io.Printf("Found %d entry(ies):\n", len(entries))
		c.io.Println()
		for i, e := range entries {
			c.io.Printf("%d. %s\n", i+1, e.Values)
			if show {
				c.io.Printf("   Secret: %s\n", e.Secret)
			} else {
				c.io.Printf("   Secret: (hidden, %d bytes)\n", len(e.Secret))
			}
			e.Clear()
		}

		if !show {
			c.io.Println()
			c.io.Println("Note: Secrets are hidden. Use --show to print them.")
		}
		return nil
	})
}
