package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/store"
)

var (
	jobsStatus string
	jobsUser   string
	jobsLimit  int
	jobsJSON   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List onboarding jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatus(jobsStatus),
			UserID: jobsUser,
			Limit:  jobsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list jobs")
		}

		if jobsJSON {
			return printJSON(jobs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tPHASE\tSTATUS\tUPDATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.URL, j.CurrentPhase, j.Status, j.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (IN_PROGRESS, COMPLETED, FAILED)")
	jobsCmd.Flags().StringVar(&jobsUser, "user", "", "filter by user ID")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum number of jobs")
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(jobsCmd)
}
