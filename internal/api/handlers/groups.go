// groups.go — обработчики /api/v1/groups endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// GetGroup — GET /api/v1/groups/{id}.
func (h *APIHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	g, err := h.groups.Get(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(g))
}

// RenameGroup — PATCH /api/v1/groups/{id}.
// Доступ: администратор группы или сайта.
func (h *APIHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	g, err := h.groups.Rename(r.Context(), actor, key, req.Name)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(g))
}

// ListGroupSubmissions — GET /api/v1/groups/{id}/submissions.
// Сабмишены группы; доступ члену группы и пользователям с site_read.
func (h *APIHandler) ListGroupSubmissions(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	subs, err := h.subs.ListByGroup(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}

	items := make([]submissionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, mapSubmission(sub))
	}
	writeJSON(w, http.StatusOK, items)
}
