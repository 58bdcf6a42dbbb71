package httpserver

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/registry"
	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// SignalsHandler serves a read-only view of signals currently being
// evaluated.
type SignalsHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewSignalsHandler creates a signals handler.
func NewSignalsHandler(reg *registry.Registry, logger *zap.Logger) *SignalsHandler {
	return &SignalsHandler{
		registry: reg,
		logger:   logger,
	}
}

// signalsResponse is the /api/signals payload.
type signalsResponse struct {
	Count   int                      `json:"count"`
	Signals []*types.OutcomeSnapshot `json:"signals"`
	AsOf    time.Time                `json:"as_of"`
}

// HandleActive returns snapshots of all active signals.
func (h *SignalsHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	snapshots := h.registry.Active()

	resp := signalsResponse{
		Count:   len(snapshots),
		Signals: snapshots,
		AsOf:    time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		h.logger.Error("encode-signals-response", zap.Error(err))
	}
}
