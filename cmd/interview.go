package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/config"
	"github.com/abhisek/intervue/internal/console"
	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/session"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interview in the terminal",
	Long: "Run an interview in the terminal. Questions are printed and answers " +
		"are typed; /skip skips a question and /end finishes early.",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := planFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if plan, err = a.Plan(plan); err != nil {
			return err
		}

		styled := console.IsTerminal(os.Stdout)
		c := console.New(a.Service, os.Stdin, os.Stdout, styled, a.Logger)
		_, id, runErr := c.Run(cmd.Context(), plan)
		if id == "" {
			return runErr
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "\nThe interview was saved but could not be scored: %v\n", runErr)
			fmt.Fprintf(os.Stderr, "Score it later with: intervue report %s\n", id)
			return runErr
		}

		fmt.Println()
		doc, err := loadDocument(cmd.Context(), a.Store, id)
		if err != nil {
			return err
		}
		printDocument(doc)

		if out, _ := cmd.Flags().GetString("pdf"); out != "" {
			if err := writePDFFile(out, doc); err != nil {
				return err
			}
			fmt.Println("PDF written to", out)
		}
		return nil
	},
}

func planFromFlags(cmd *cobra.Command) (session.Plan, error) {
	f := cmd.Flags()
	candidate, _ := f.GetString("candidate")
	categoryName, _ := f.GetString("category")
	category, err := interview.ParseCategory(categoryName)
	if err != nil {
		return session.Plan{}, err
	}
	plan := session.Plan{CandidateID: candidate, Category: category}

	plan.Subtopic, _ = f.GetString("subtopic")
	if d, _ := f.GetString("difficulty"); d != "" {
		if plan.Difficulty, err = interview.ParseDifficulty(d); err != nil {
			return session.Plan{}, err
		}
	}
	plan.Questions, _ = f.GetInt("questions")
	plan.Duration, _ = f.GetDuration("duration")

	plan.Profile.Name, _ = f.GetString("name")
	plan.Profile.CurrentRole, _ = f.GetString("role")
	plan.Profile.TargetRole, _ = f.GetString("target-role")
	plan.Profile.CareerStage, _ = f.GetString("stage")
	plan.Profile.YearsOfExperience, _ = f.GetInt("experience")
	plan.Profile.Skills, _ = f.GetStringSlice("skills")

	if path, _ := f.GetString("scenario"); path != "" {
		if plan.Scenario, err = config.LoadScenario(path); err != nil {
			return session.Plan{}, err
		}
	}
	if category == interview.CategoryCustom && plan.Scenario == nil {
		return session.Plan{}, errors.New("custom interviews need --scenario")
	}
	return plan, nil
}

func init() {
	f := interviewCmd.Flags()
	f.String("candidate", "", "Candidate id (required)")
	f.String("category", "", "dsa, aptitude, technical, hr or custom (required)")
	f.String("subtopic", "", "Topic within the category, e.g. \"Graphs\" or \"Go\"")
	f.String("difficulty", "", "beginner, intermediate, advanced or pro")
	f.Int("questions", 0, "Number of questions")
	f.Duration("duration", 0, "Time budget, e.g. 20m")
	f.String("scenario", "", "YAML scenario file for custom interviews")
	f.String("name", "", "Candidate name")
	f.String("role", "", "Current role")
	f.String("target-role", "", "Role being interviewed for")
	f.String("stage", "", "Career stage, e.g. student or senior")
	f.Int("experience", 0, "Years of experience")
	f.StringSlice("skills", nil, "Comma-separated skills")
	f.String("pdf", "", "Also write the report as PDF to this path")

	interviewCmd.MarkFlagRequired("candidate")
	interviewCmd.MarkFlagRequired("category")
}
