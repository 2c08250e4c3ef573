package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/console"
	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/report"
	"github.com/abhisek/intervue/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Show or export a session report",
	Long: "Show a session report. A session that ended without a report, for " +
		"example because the oracle was unreachable, is scored now.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		_, err = st.ReportRepo().Get(ctx, id)
		if errors.Is(err, interview.ErrNotFound) {
			err = scoreStored(cmd, id)
		}
		if err != nil {
			return err
		}

		doc, err := loadDocument(ctx, st, id)
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("pdf"); out != "" {
			if err := writePDFFile(out, doc); err != nil {
				return err
			}
			fmt.Println("PDF written to", out)
			return nil
		}
		printDocument(doc)
		return nil
	},
}

// scoreStored scores a finished session that has no report yet.
func scoreStored(cmd *cobra.Command, id string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Fprintln(os.Stderr, "Scoring session", id, "...")
	if _, err := a.Service.EndSession(cmd.Context(), id); err != nil {
		return fmt.Errorf("score %s: %w", id, err)
	}
	return nil
}

func loadDocument(ctx context.Context, st store.Backend, id string) (report.Document, error) {
	sess, err := st.SessionRepo().Get(ctx, id)
	if err != nil {
		return report.Document{}, fmt.Errorf("get session: %w", err)
	}
	pairs, err := st.TurnRepo().List(ctx, id)
	if err != nil {
		return report.Document{}, fmt.Errorf("list answers: %w", err)
	}
	rep, err := st.ReportRepo().Get(ctx, id)
	if err != nil {
		return report.Document{}, fmt.Errorf("get report: %w", err)
	}
	return report.Document{Session: *sess, Pairs: pairs, Report: *rep}, nil
}

func printDocument(doc report.Document) {
	out := report.Render(doc, min(console.Width(os.Stdout), 100))
	if !console.IsTerminal(os.Stdout) {
		out = ansi.Strip(out)
	}
	fmt.Println(out)
}

func writePDFFile(path string, doc report.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WritePDF(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("write pdf: %w", err)
	}
	return f.Close()
}

func init() {
	reportCmd.Flags().String("pdf", "", "Write the report as PDF to this path instead of printing it")
}
