// services.go — обработчики /api/v1/services endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// ExecuteService — POST /api/v1/services/{id}/executions.
// Записывает значения сервисных полей в отправленный набор. Ровно одно
// исполнение на пару (сервис, набор).
func (h *APIHandler) ExecuteService(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req struct {
		Metadataset string             `json:"metadataset"`
		Record      map[string]*string `json:"record"`
		Files       []string           `json:"files"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	serviceKey := model.ParseResourceKey(chi.URLParam(r, "id"))
	msetKey := model.ParseResourceKey(req.Metadataset)
	fileKeys := make([]model.ResourceKey, 0, len(req.Files))
	for _, f := range req.Files {
		fileKeys = append(fileKeys, model.ParseResourceKey(f))
	}
	if err := h.execs.Execute(r.Context(), actor, serviceKey, msetKey, req.Record, fileKeys); err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
