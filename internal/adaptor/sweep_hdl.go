package adaptor

import (
	"net/http"

	"event-ticketing/internal/dto/response"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SweepHandler struct {
	service usecase.SweeperService
	log     *zap.Logger
}

func NewSweepHandler(service usecase.SweeperService, log *zap.Logger) *SweepHandler {
	return &SweepHandler{
		service: service,
		log:     log.With(zap.String("handler", "sweep")),
	}
}

// Sweep handles POST /internal/sweeps/{scan} for an external cron host.
func (h *SweepHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	scan := chi.URLParam(r, "scan")

	released, err := h.service.Sweep(r.Context(), scan)
	if err != nil {
		writeServiceError(w, h.log, err, "sweep "+scan)
		return
	}

	utils.ResponseSuccess(w, "Sweep finished", response.SweepResponse{
		Scan:     scan,
		Released: released,
	})
}
