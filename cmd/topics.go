package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [category]",
	Short: "List the known subtopics of each category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categories := interview.Categories
		if len(args) == 1 {
			c, err := interview.ParseCategory(args[0])
			if err != nil {
				return err
			}
			categories = []interview.Category{c}
		}

		var total int
		for _, c := range categories {
			subs := questionforge.Subtopics(c)
			fmt.Printf("%s (%s)\n", c.Label(), c)
			fmt.Println(strings.Repeat("─", 60))
			if len(subs) == 0 {
				fmt.Println("  any subtopic; custom interviews take a --scenario file")
			}
			for _, s := range subs {
				fmt.Printf("  %s\n", s)
			}
			fmt.Println()
			total += len(subs)
		}
		fmt.Printf("%d subtopics\n", total)
		return nil
	},
}
