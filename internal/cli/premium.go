package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPremiumCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "premium",
		Short: "Grant or revoke premium for a client key",
	}
	cmd.AddCommand(
		newPremiumSetCommand("grant", "Grant premium", true),
		newPremiumSetCommand("revoke", "Revoke premium", false),
	)
	return cmd
}

func newPremiumSetCommand(use, short string, premium bool) *cobra.Command {
	var flags keyFlags

	cmd := &cobra.Command{
		Use:   use + " [client-key]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ents, closeAll, err := openEntitlements(cmd)
			if err != nil {
				return err
			}
			defer closeAll()

			key, err := flags.resolve(args, ents.Deriver)
			if err != nil {
				return err
			}
			if err := ents.Engine.SetPremiumManually(cmd.Context(), key, premium); err != nil {
				return fmt.Errorf("set premium for %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s premium=%t (%s)\n", key, premium, ents.Backend)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
