package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Re-run the current phase of a failed or stalled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "onboard")
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Engine.ResumeOnboarding(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "resume onboarding")
		}

		zap.L().Info("resume finished",
			zap.String("job_id", job.ID),
			zap.String("phase", string(job.CurrentPhase)),
			zap.String("status", string(job.Status)),
		)

		return printJSON(job)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
