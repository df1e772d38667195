package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsageCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the remaining allowance for this period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := g.jobClient("").Usage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d used this %s, %d remaining\n", u.Used, u.Limit, u.Period, u.Remaining)
			return nil
		},
	}
}
