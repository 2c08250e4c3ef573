package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/interview"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a candidate's interview history",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, _ := cmd.Flags().GetString("candidate")
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.SessionRepo().ListByCandidate(ctx, candidate, limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No interviews recorded for", candidate)
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-10s  %-12s  %-9s  %7s  %s\n",
			"Session", "Started", "Category", "Difficulty", "Status", "Overall", "Answered")
		fmt.Println(strings.Repeat("─", 112))

		var scored, sum int
		for _, s := range sessions {
			overall, answered := "-", "-"
			rep, err := st.ReportRepo().Get(ctx, s.ID)
			switch {
			case err == nil:
				overall = fmt.Sprint(rep.OverallScore)
				answered = fmt.Sprintf("%d/%d", rep.Answered, rep.TotalQuestions)
				scored++
				sum += rep.OverallScore
			case !errors.Is(err, interview.ErrNotFound):
				return fmt.Errorf("get report %s: %w", s.ID, err)
			}
			started := s.CreatedAt
			if !s.StartedAt.IsZero() {
				started = s.StartedAt
			}
			fmt.Printf("%-36s  %-16s  %-10s  %-12s  %-9s  %7s  %s\n",
				s.ID, started.Local().Format("2006-01-02 15:04"), s.Category, s.Difficulty, s.Status, overall, answered)
		}

		if scored > 0 {
			fmt.Printf("\n%d interviews, %d scored, average overall %d\n", len(sessions), scored, sum/scored)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("candidate", "", "Candidate id (required)")
	statsCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	statsCmd.MarkFlagRequired("candidate")
}
