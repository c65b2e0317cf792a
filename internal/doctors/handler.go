package doctors

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

type Handler struct {
	catalog Catalog
	logger  *logging.Logger
}

func NewHandler(catalog Catalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{catalog: catalog, logger: logger}
}

// ListDoctors handles GET /api/doctors.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.logger.Error("doctor list failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "doctors are temporarily unavailable"})
		return
	}
	if list == nil {
		list = []Doctor{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"doctors": list})
}
