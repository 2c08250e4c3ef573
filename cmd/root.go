package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/app"
	"github.com/abhisek/intervue/internal/config"
	"github.com/abhisek/intervue/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "intervue",
	Short: "AI mock interviewer",
	Long: "Intervue runs adaptive mock interviews: it generates each question, " +
		"listens for the end of each answer and scores the session when it ends.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite path or postgres:// DSN (overrides INTERVUE_DB env var)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment, then applies the
// persistent flags, which take precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.DSN = db
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

// openStore opens only the store, for commands that inspect stored data.
func openStore(cmd *cobra.Command) (store.Backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.OpenStore(cmd.Context(), cfg.Store)
}

// openApp builds the full runtime.
func openApp(cmd *cobra.Command, quiet bool) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, app.Options{Quiet: quiet})
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return a, nil
}
