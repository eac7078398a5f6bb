// submissions.go — обработчики /api/v1/submissions endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/service"
)

// submissionRequest — тело POST /api/v1/submissions и
// POST /api/v1/submissions/prevalidate.
type submissionRequest struct {
	Metadatasets []string `json:"metadatasets"`
	Files        []string `json:"files"`
	Label        *string  `json:"label"`
}

func (req submissionRequest) toSubmitRequest() service.SubmitRequest {
	out := service.SubmitRequest{Label: req.Label}
	for _, k := range req.Metadatasets {
		out.MetadatasetKeys = append(out.MetadatasetKeys, model.ParseResourceKey(k))
	}
	for _, k := range req.Files {
		out.FileKeys = append(out.FileKeys, model.ParseResourceKey(k))
	}
	return out
}

// CreateSubmission — POST /api/v1/submissions.
// Атомарная отправка наборов метаданных с файлами: либо все проверки
// проходят и создаётся сабмишен, либо состояние не меняется.
func (h *APIHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req submissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.subs.Submit(r.Context(), actor, req.toSubmitRequest())
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, mapSubmission(sub))
}

// PrevalidateSubmission — POST /api/v1/submissions/prevalidate.
// Все проверки отправки без её выполнения; 204 — отправка прошла бы.
func (h *APIHandler) PrevalidateSubmission(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req submissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.subs.Prevalidate(r.Context(), actor, req.toSubmitRequest()); err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSubmission — GET /api/v1/submissions/{id}.
// Чужой сабмишен неотличим от несуществующего.
func (h *APIHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	sub, err := h.subs.Get(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, mapSubmission(sub))
}

// DeleteSubmission — DELETE /api/v1/submissions/{id}.
// Административный откат: наборы и файлы возвращаются в staged.
// Только администратор сайта.
func (h *APIHandler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	if err := h.subs.Delete(r.Context(), actor, key); err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
