package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pachico/pachico/internal/api"
	"github.com/pachico/pachico/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Pachico server",
	Long: `Starts the HTTP API server and, when configured, the Telegram bot.
The process runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := buildApp(true)
	if err != nil {
		return err
	}
	defer app.close()

	zl := app.logger()

	server, err := api.NewServer(api.ServerOptions{
		Host: app.cfg.API.Host,
		Port: app.cfg.API.Port,
	}, app.service, zl)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()

	var bot *telegram.Bot
	if app.cfg.Telegram.Enabled {
		bot, err = telegram.New(&app.cfg.Telegram, app.service, zl)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		if err := bot.Start(); err != nil {
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
	}

	zl.Info().Msg("Pachico is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if bot != nil {
		bot.Stop()
	}
	if err := server.Stop(); err != nil {
		zl.Warn().Err(err).Msg("API server shutdown failed")
	}

	return nil
}
