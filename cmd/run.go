package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sacraldj/ghost-sub001/internal/app"
	"github.com/sacraldj/ghost-sub001/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track signals against live market data",
	Long: `Starts the outcome engine against the live kline stream:
1. Registers the signals from --signals (more can arrive while running)
2. Shares one WebSocket subscription per symbol
3. Advances each signal's lifecycle on every closed candle
4. Persists a snapshot on every transition

The engine keeps running after signals resolve; stop it with SIGINT/SIGTERM.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("signals", "s", "", "JSON file with signals to track")
}

func runEngine(cmd *cobra.Command, args []string) error {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	signalsFile, _ := cmd.Flags().GetString("signals")

	application, err := app.New(cfg, logger, &app.Options{
		SignalsFile: signalsFile,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	return application.Run()
}
