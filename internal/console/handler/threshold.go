package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/netpulse/internal/domain"
	"go.uber.org/zap"
)

// ThresholdService: управление порогом потерь.
type ThresholdService interface {
	Get(ctx context.Context) (*domain.ThresholdResponse, error)
	Set(ctx context.Context, value float64) error
}

type ThresholdHandler struct {
	service ThresholdService
	logger  *zap.Logger
}

func NewThresholdHandler(s ThresholdService, logger *zap.Logger) *ThresholdHandler {
	return &ThresholdHandler{service: s, logger: logger}
}

func (h *ThresholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to read threshold", zap.Error(err))
		http.Error(w, "Failed to read threshold", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *ThresholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.ThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.Set(r.Context(), req.Value); err != nil {
		if errors.Is(err, domain.ErrInvalidThreshold) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to update threshold", zap.Error(err))
		http.Error(w, "Failed to update threshold", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
