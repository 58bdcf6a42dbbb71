package cmd

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sacraldj/ghost-sub001/internal/app"
	"github.com/sacraldj/ghost-sub001/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Evaluate signals against historical candles",
	Long: `Replays historical candles through the outcome engine and prints the
resolved outcome of every signal. The same candles always produce the
same outcomes, so replay is the reference for what live tracking would
have reported over the window.

Results go to the console; --start and --end take RFC 3339 timestamps.`,
	RunE: runReplay,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringP("signals", "s", "", "JSON file with signals to evaluate (required)")
	replayCmd.Flags().String("start", "", "Window start, RFC 3339 (required)")
	replayCmd.Flags().String("end", "", "Window end, RFC 3339 (required)")
	replayCmd.Flags().String("interval", "", "Candle interval, defaults to KLINE_INTERVAL")
	_ = replayCmd.MarkFlagRequired("signals")
	_ = replayCmd.MarkFlagRequired("start")
	_ = replayCmd.MarkFlagRequired("end")
}

func runReplay(cmd *cobra.Command, args []string) error {
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
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	interval, _ := cmd.Flags().GetString("interval")

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("--end must be after --start")
	}

	application, err := app.New(cfg, logger, &app.Options{
		SignalsFile:    signalsFile,
		Replay:         true,
		ReplayStart:    start,
		ReplayEnd:      end,
		ReplayInterval: interval,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	return application.Run()
}
