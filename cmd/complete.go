package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var completeCmd = &cobra.Command{
	Use:   "complete <job-id>",
	Short: "Run the completion phase for an approved job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "onboard")
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Engine.CompleteOnboarding(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "complete onboarding")
		}

		if job.PhaseData.Completion != nil {
			zap.L().Info("onboarding complete",
				zap.String("job_id", job.ID),
				zap.String("tenant_id", job.PhaseData.Completion.TenantID),
				zap.Int("offerings", job.PhaseData.Completion.TotalOfferings),
			)
		}

		return printJSON(job)
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
}
