package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/questionforge"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Curate a candidate's question history",
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the questions a candidate has been asked",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, _ := cmd.Flags().GetString("candidate")
		importantOnly, _ := cmd.Flags().GetBool("important")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		fps, err := st.FingerprintRepo().List(cmd.Context(), candidate)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		if len(fps) == 0 {
			fmt.Println("No questions recorded for", candidate)
			return nil
		}

		fmt.Printf("%-12s  %5s  %3s  %s\n", "Hash", "Seen", "Imp", "Question")
		fmt.Println(strings.Repeat("─", 100))
		for _, fp := range fps {
			if importantOnly && !fp.Important {
				continue
			}
			imp := ""
			if fp.Important {
				imp = "★"
			}
			fmt.Printf("%-12s  %5d  %3s  %s\n", truncate(fp.Hash, 12), fp.TimesSeen, imp, truncate(oneLine(fp.Text), 74))
		}
		return nil
	},
}

var questionsMarkCmd = &cobra.Command{
	Use:   "mark-important <hash-or-prefix>",
	Short: "Allow a question to be asked again",
	Long: "Mark a question important so the generator may ask it again. " +
		"The hash may be abbreviated to a unique prefix as shown by 'questions list'.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, _ := cmd.Flags().GetString("candidate")
		unset, _ := cmd.Flags().GetBool("unset")
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		repo := st.FingerprintRepo()
		fps, err := repo.List(ctx, candidate)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		hash, err := questionforge.ResolveHash(fps, args[0])
		if err != nil {
			return err
		}
		if err := repo.MarkImportant(ctx, candidate, hash, !unset); err != nil {
			return fmt.Errorf("mark %s: %w", hash, err)
		}
		if unset {
			fmt.Println("Cleared important flag on", hash)
		} else {
			fmt.Println("Marked important:", hash)
		}
		return nil
	},
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func init() {
	for _, c := range []*cobra.Command{questionsListCmd, questionsMarkCmd} {
		c.Flags().String("candidate", "", "Candidate id (required)")
		c.MarkFlagRequired("candidate")
	}
	questionsListCmd.Flags().Bool("important", false, "Only show important questions")
	questionsMarkCmd.Flags().Bool("unset", false, "Clear the flag instead of setting it")

	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsMarkCmd)
}
