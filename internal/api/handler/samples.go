package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/netpulse/internal/domain"
	"go.uber.org/zap"
)

// SampleRecorder: неблокирующий прием сэмплов (ingest.Recorder).
type SampleRecorder interface {
	Record(records ...domain.ProbeRecord) (int, error)
}

type SamplesHandler struct {
	recorder SampleRecorder
	logger   *zap.Logger
}

func NewSamplesHandler(rec SampleRecorder, logger *zap.Logger) *SamplesHandler {
	return &SamplesHandler{recorder: rec, logger: logger.Named("samples-handler")}
}

type pushResponse struct {
	Accepted int `json:"accepted"`
}

// Push: POST /api/v1/samples. Запись асинхронная, поэтому 202.
func (h *SamplesHandler) Push(w http.ResponseWriter, r *http.Request) {
	var records []domain.ProbeRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request: " + err.Error()})
		return
	}
	for _, rec := range records {
		if rec.Target == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request: target is required"})
			return
		}
	}

	n, err := h.recorder.Record(records...)
	if err != nil {
		h.logger.Warn("samples rejected", zap.Int("accepted", n), zap.Int("total", len(records)), zap.Error(err))
		writeJSON(w, statusFor(err), pushResponse{Accepted: n})
		return
	}
	writeJSON(w, http.StatusAccepted, pushResponse{Accepted: n})
}
