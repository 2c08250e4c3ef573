package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/intervue/internal/httpapi"
	"github.com/abhisek/intervue/internal/interview"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.Config
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		gin.SetMode(cfg.Server.Mode)

		difficulty, err := interview.ParseDifficulty(cfg.Interview.Difficulty)
		if err != nil {
			return err
		}
		srv := httpapi.New(a.Service, httpapi.Options{
			Logger:    a.Logger,
			RateLimit: cfg.Server.RateLimit,
			Burst:     cfg.Server.Burst,
			Defaults: httpapi.Defaults{
				Difficulty: difficulty,
				Questions:  cfg.Interview.Questions,
				Duration:   cfg.Interview.Duration,
			},
		})

		if quiet, _ := cmd.Flags().GetBool("no-banner"); !quiet {
			printBanner(cfg.Server.Addr, cfg.LLM.Provider)
		}
		return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.ShutdownTimeout)
	},
}

func printBanner(addr, provider string) {
	figure.NewFigure("INTERVUE", "", true).Print()
	fmt.Println("======================================================")
	fmt.Printf("Intervue API %s  listening on %s  oracle: %s\n\n", version, addr, provider)
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("no-banner", false, "Do not print the startup banner")
}
