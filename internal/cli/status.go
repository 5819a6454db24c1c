package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type statusOutput struct {
	Key        string `json:"key"`
	Tier       string `json:"tier"`
	Used       int64  `json:"used"`
	Limit      int64  `json:"limit"`
	Remaining  int64  `json:"remaining"`
	Day        string `json:"day"`
	CustomerID string `json:"customer_id,omitempty"`
	Store      string `json:"store"`
}

func newStatusCommand() *cobra.Command {
	var (
		flags  keyFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status [client-key]",
		Short: "Show tier and today's usage for a client key",
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

			ctx := cmd.Context()
			s := ents.Engine.GetStatus(ctx, key)
			out := statusOutput{
				Key:       key,
				Tier:      string(s.Tier),
				Used:      s.Used,
				Limit:     s.Limit,
				Remaining: s.Remaining(),
				Day:       s.Day,
				Store:     ents.Backend,
			}
			if id, ok, err := ents.Store.CustomerForKey(ctx, key); err == nil && ok {
				out.CustomerID = id
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(w, "key:       %s\n", out.Key)
			fmt.Fprintf(w, "tier:      %s\n", out.Tier)
			fmt.Fprintf(w, "usage:     %d/%d (%s)\n", out.Used, out.Limit, out.Day)
			fmt.Fprintf(w, "remaining: %d\n", out.Remaining)
			if out.CustomerID != "" {
				fmt.Fprintf(w, "customer:  %s\n", out.CustomerID)
			}
			fmt.Fprintf(w, "store:     %s\n", out.Store)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
