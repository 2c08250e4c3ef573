package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/questionforge"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview generated questions for a category (no database)",
	Long: `Generate a sequence of questions for a category without starting a session.

This is a stateless tool: no question history is read or written and no
oracle calls are logged. Useful for evaluating prompts and subtopics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		categoryName, _ := f.GetString("category")
		category, err := interview.ParseCategory(categoryName)
		if err != nil {
			return err
		}
		if category == interview.CategoryCustom {
			return fmt.Errorf("custom interviews need a scenario; use 'intervue interview --scenario'")
		}
		difficultyName, _ := f.GetString("difficulty")
		difficulty, err := interview.ParseDifficulty(difficultyName)
		if err != nil {
			return err
		}
		subtopic, _ := f.GetString("subtopic")
		count, _ := f.GetInt("count")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.LLM.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()
		provider, err := llm.NewProvider(ctx, cfg.LLM, nil, nil)
		if err != nil {
			return fmt.Errorf("LLM provider: %w", err)
		}
		forge := questionforge.New(provider, nil, cfg.Forge.Apply(questionforge.DefaultConfig()), nil)

		if subtopic != "" && !questionforge.KnownSubtopic(category, subtopic) {
			fmt.Printf("note: %q is not a catalogued %s subtopic\n", subtopic, category.Label())
		}
		fmt.Printf("%s, %s, %d questions\n\n", category.Label(), difficulty, count)

		var prior []interview.QAPair
		for i := 1; i <= count; i++ {
			q, err := forge.Generate(ctx, questionforge.Context{
				CandidateID: "preview",
				SessionID:   "preview",
				Category:    category,
				Subtopic:    subtopic,
				Difficulty:  difficulty,
				Index:       i,
				Total:       count,
				Prior:       prior,
			})
			if err != nil {
				return fmt.Errorf("question %d: %w", i, err)
			}
			fmt.Printf("Q%d [%s]\n%s\n\n", i, q.Source, q.Text)
			if q.Reason != nil {
				fmt.Printf("   (fallback: %v)\n\n", q.Reason)
			}
			prior = append(prior, interview.QAPair{Index: i, Question: q.Text, Answer: interview.SkipMarker, Skipped: true})
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().String("category", "", "dsa, aptitude, technical or hr (required)")
	previewCmd.Flags().String("subtopic", "", "Topic within the category")
	previewCmd.Flags().String("difficulty", "", "beginner, intermediate, advanced or pro")
	previewCmd.Flags().Int("count", 5, "Number of questions to generate")
	_ = previewCmd.MarkFlagRequired("category")
}
