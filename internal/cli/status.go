package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"colorold/internal/domain"
	"colorold/internal/jobclient"
	"colorold/internal/progress"
)

func newStatusCommand(g *globalOptions) *cobra.Command {
	var colorize bool
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show a job's status and estimated progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := jobclient.OperationRestore
			if colorize {
				op = jobclient.OperationColorize
			}
			job, err := g.jobClient(op).Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pct, _ := progress.Parse(job.Logs)
			if job.Status == domain.JobStatusSucceeded {
				pct = 100
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %d%%\n", job.ID, job.Status, pct)
			if job.Output != "" {
				fmt.Fprintln(out, job.Output)
			}
			if job.Error != "" {
				fmt.Fprintln(out, job.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&colorize, "colorize", false, "the job is a colorize job")
	return cmd
}
