package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

var (
	onboardURL    string
	onboardUser   string
	onboardTenant string
	onboardWait   bool
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Start onboarding for a business website",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "onboard")
		if err != nil {
			return err
		}
		defer env.Close()

		var tenantID *string
		if onboardTenant != "" {
			tenantID = &onboardTenant
		}

		job, err := env.Engine.StartOnboarding(ctx, onboardURL, onboardUser, tenantID)
		if err != nil {
			return eris.Wrap(err, "start onboarding")
		}

		zap.L().Info("onboarding started",
			zap.String("job_id", job.ID),
			zap.String("url", job.URL),
		)

		if onboardWait {
			job, err = waitForPhase(ctx, env, job.ID, model.PhaseDiscovery)
			if err != nil {
				return err
			}
		}

		return printJSON(job)
	},
}

// waitForPhase polls the job until it has moved past the given phase or
// settled in a terminal status.
func waitForPhase(ctx context.Context, env *onboardEnv, jobID string, phase model.Phase) (*model.Job, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		job, err := env.Engine.GetJobStatus(ctx, jobID)
		if err != nil {
			return nil, eris.Wrap(err, "poll job status")
		}

		if job.Status != model.JobStatusInProgress || job.CurrentPhase != phase {
			return job, nil
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	onboardCmd.Flags().StringVar(&onboardURL, "url", "", "business website URL (required)")
	onboardCmd.Flags().StringVar(&onboardUser, "user", "", "user identifier (required)")
	onboardCmd.Flags().StringVar(&onboardTenant, "tenant", "", "existing tenant ID to attach to")
	onboardCmd.Flags().BoolVar(&onboardWait, "wait", false, "block until the discovery phase finishes")
	_ = onboardCmd.MarkFlagRequired("url")
	_ = onboardCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(onboardCmd)
}
