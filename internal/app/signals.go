package app

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// loadSignals parses a JSON file holding an array of signals.
func loadSignals(path string) ([]*types.Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals file: %w", err)
	}

	var signals []*types.Signal
	err = json.Unmarshal(data, &signals)
	if err != nil {
		return nil, fmt.Errorf("parse signals file: %w", err)
	}

	return signals, nil
}

// registerSignals registers the file's signals, keeping the handles for
// replay completion tracking. Individual rejections are logged and skipped.
func (a *App) registerSignals(signals []*types.Signal) error {
	registered := 0
	for _, sig := range signals {
		handle, err := a.registry.Register(a.ctx, sig)
		if err != nil {
			a.logger.Warn("signal-skipped",
				zap.String("signal-id", sig.ID),
				zap.Error(err))
			continue
		}
		a.handles = append(a.handles, handle)
		registered++
	}

	if registered == 0 && len(signals) > 0 {
		return fmt.Errorf("all %d signals rejected", len(signals))
	}

	a.logger.Info("signals-loaded",
		zap.Int("registered", registered),
		zap.Int("rejected", len(signals)-registered))

	return nil
}
