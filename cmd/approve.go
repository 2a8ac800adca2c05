package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

var (
	approveFile string
	approveSkip bool
)

var approveCmd = &cobra.Command{
	Use:   "approve <job-id> <kind>",
	Short: "Feed a user decision into a waiting job",
	Long: `Supplies the payload a gated phase is waiting for. Kind is one of
page-selection, company-review or offering-selection. The payload is read
as JSON from --file (use "-" for stdin). Approving the page selection
immediately runs the scraping phase.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jobID, kind := args[0], args[1]

		env, err := initEnv(ctx, "onboard")
		if err != nil {
			return err
		}
		defer env.Close()

		var raw []byte
		if approveFile != "" {
			raw, err = readPayload(approveFile)
			if err != nil {
				return err
			}
		}

		switch kind {
		case "page-selection":
			var sel model.PageSelectionData
			if approveSkip {
				sel.Skipped = true
			} else {
				if err := json.Unmarshal(raw, &sel); err != nil {
					return eris.Wrap(err, "decode page selection")
				}
			}
			job, err := env.Engine.SavePhaseData(ctx, jobID, model.PhasePageSelection, &sel)
			if err != nil {
				return eris.Wrap(err, "save page selection")
			}
			if job.CurrentPhase == model.PhasePagesScraping {
				zap.L().Info("running scraping phase", zap.String("job_id", jobID))
				if job, err = env.Engine.ExecutePhase(ctx, jobID, model.PhasePagesScraping); err != nil {
					return eris.Wrap(err, "pages scraping")
				}
			}
			return printJSON(job)

		case "company-review":
			var review model.CompanyReview
			if err := json.Unmarshal(raw, &review); err != nil {
				return eris.Wrap(err, "decode company review")
			}
			job, err := env.Engine.SavePhaseData(ctx, jobID, "", &review)
			if err != nil {
				return eris.Wrap(err, "save company review")
			}
			return printJSON(job)

		case "offering-selection":
			var sel model.OfferingSelectionData
			if err := json.Unmarshal(raw, &sel); err != nil {
				return eris.Wrap(err, "decode offering selection")
			}
			job, err := env.Engine.SavePhaseData(ctx, jobID, "", &sel)
			if err != nil {
				return eris.Wrap(err, "save offering selection")
			}
			return printJSON(job)

		default:
			return eris.Errorf("unknown approval kind %q", kind)
		}
	},
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read payload file")
	}
	return raw, nil
}

func init() {
	approveCmd.Flags().StringVar(&approveFile, "file", "", `JSON payload path ("-" for stdin)`)
	approveCmd.Flags().BoolVar(&approveSkip, "skip", false, "skip page selection entirely (page-selection only)")
	rootCmd.AddCommand(approveCmd)
}
