// metadatasets.go — обработчики /api/v1/metadatasets endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// CreateMetadataset — POST /api/v1/metadatasets.
// Стейджит набор метаданных: запись валидируется по схеме, значения
// приводятся к каноническому виду.
func (h *APIHandler) CreateMetadataset(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req struct {
		Record map[string]*string `json:"record"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.msets.Create(r.Context(), actor, req.Record)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, mapMetadataset(m))
}

// GetMetadataset — GET /api/v1/metadatasets/{id}.
// Чужой набор неотличим от несуществующего.
func (h *APIHandler) GetMetadataset(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	m, err := h.msets.Get(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, mapMetadataset(m))
}

// DeleteMetadataset — DELETE /api/v1/metadatasets/{id}.
// Удаляются только застейдженные (не отправленные) наборы.
func (h *APIHandler) DeleteMetadataset(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	if err := h.msets.Delete(r.Context(), actor, key); err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPendingMetadatasets — GET /api/v1/metadatasets/pending.
// Застейдженные наборы актора с ошибками повторной валидации: набор мог
// стать невалидным после изменения схемы.
func (h *APIHandler) ListPendingMetadatasets(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	reports, err := h.msets.ListPending(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}

	items := make([]pendingResponse, 0, len(reports))
	for _, rep := range reports {
		items = append(items, mapPending(rep))
	}
	writeJSON(w, http.StatusOK, items)
}
