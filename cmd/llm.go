package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect oracle calls made during interviews",
}

var llmCallsCmd = &cobra.Command{
	Use:     "calls",
	Aliases: []string{"list"},
	Short:   "List recent oracle calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		sessionID, _ := cmd.Flags().GetString("session")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose, SessionID: sessionID})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No oracle calls recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tSESSION\tPURPOSE\tMODEL\tIN\tOUT\tMS\tOK")
		for _, e := range events {
			ok := "yes"
			if !e.Success {
				ok = "no"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				e.ID, e.Timestamp.Local().Format("01-02 15:04:05"), shortID(e.SessionID),
				e.Purpose, truncate(e.Model, 28), e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
		}
		return w.Flush()
	},
}

var llmShowCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"view"},
	Short:   "Show the prompt and reply of one oracle call",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("oracle call %d not found", id)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		fmt.Fprintf(w, "Call:\t%d (%s)\n", e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		if e.SessionID != "" {
			fmt.Fprintf(w, "Session:\t%s\n", e.SessionID)
		}
		fmt.Fprintf(w, "Purpose:\t%s\n", e.Purpose)
		fmt.Fprintf(w, "Model:\t%s/%s\n", e.Provider, e.Model)
		fmt.Fprintf(w, "Tokens:\t%d in, %d out\n", e.InputTokens, e.OutputTokens)
		if c, ok := llm.LookupCost(e.Model); ok {
			fmt.Fprintf(w, "Cost:\t%s\n", formatCost(c.Cost(llm.Usage{InputTokens: e.InputTokens, OutputTokens: e.OutputTokens})))
		}
		fmt.Fprintf(w, "Latency:\t%dms\n", e.LatencyMs)
		if e.ErrorMessage != "" {
			fmt.Fprintf(w, "Error:\t%s\n", e.ErrorMessage)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		printBody(os.Stdout, "PROMPT", e.RequestBody)
		printBody(os.Stdout, "REPLY", e.ResponseBody)
		return nil
	},
}

var llmUsageCmd = &cobra.Command{
	Use:     "usage",
	Aliases: []string{"stats"},
	Short:   "Summarize token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		var byPurpose, byModel []store.LLMUsage
		if sessionID != "" {
			events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{SessionID: sessionID})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			byPurpose = aggregate(events, func(e store.LLMRequestEvent) string { return e.Purpose })
			byModel = aggregate(events, func(e store.LLMRequestEvent) string { return e.Model })
		} else {
			if byPurpose, err = s.EventRepo().LLMUsageByPurpose(ctx); err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			if byModel, err = s.EventRepo().LLMUsageByModel(ctx); err != nil {
				return fmt.Errorf("query model usage: %w", err)
			}
		}
		if len(byPurpose) == 0 {
			fmt.Println("No oracle usage recorded.")
			return nil
		}
		return printUsage(os.Stdout, byPurpose, byModel)
	},
}

// aggregate groups events by key, keeping first-seen order.
func aggregate(events []store.LLMRequestEvent, key func(store.LLMRequestEvent) string) []store.LLMUsage {
	var out []store.LLMUsage
	index := map[string]int{}
	latency := map[string]int64{}
	for _, e := range events {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, store.LLMUsage{Purpose: e.Purpose, Model: e.Model})
		}
		out[i].Calls++
		out[i].InputTokens += e.InputTokens
		out[i].OutputTokens += e.OutputTokens
		latency[k] += e.LatencyMs
	}
	for k, i := range index {
		out[i].AvgLatencyMs = latency[k] / int64(out[i].Calls)
	}
	return out
}

func printUsage(out io.Writer, byPurpose, byModel []store.LLMUsage) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PURPOSE\tCALLS\tINPUT\tOUTPUT\tAVG MS\t")
	var calls, in, outTok int
	for _, u := range byPurpose {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		outTok += u.OutputTokens
	}
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t\t\n", calls, in, outTok)
	fmt.Fprintln(w, "\t\t\t\t\t")

	var total float64
	var unpriced []string
	fmt.Fprintln(w, "MODEL\tCALLS\tINPUT\tOUTPUT\tCOST\t")
	for _, u := range byModel {
		cost := "?"
		if c, ok := llm.LookupCost(u.Model); ok {
			usd := c.Cost(llm.Usage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens})
			total += usd
			cost = formatCost(usd)
		} else if !slices.Contains(unpriced, u.Model) {
			unpriced = append(unpriced, u.Model)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t\n", truncate(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
	}
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%s\t\t\t\t%s\t\n", label, formatCost(total))
	if err := w.Flush(); err != nil {
		return err
	}
	if len(unpriced) > 0 {
		fmt.Fprintf(out, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
	return nil
}

// printBody prints a captured prompt or reply, indenting JSON.
func printBody(w io.Writer, title, body string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	if body == "" {
		fmt.Fprintln(w, "(not captured)")
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, []byte(body), "", "  ") == nil {
		body = buf.String()
	}
	fmt.Fprintln(w, body)
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	return truncate(id, 8)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmCallsCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmCallsCmd.Flags().StringP("purpose", "p", "", "Filter by purpose ("+llm.PurposeQuestion+", "+llm.PurposeJudgment+", "+llm.PurposeAnalysis+")")
	llmCallsCmd.Flags().StringP("session", "s", "", "Filter by session id")
	llmUsageCmd.Flags().StringP("session", "s", "", "Limit to one session")

	llmCmd.AddCommand(llmCallsCmd, llmShowCmd, llmUsageCmd)
}
