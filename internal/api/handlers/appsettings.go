// appsettings.go — обработчики /api/v1/appsettings endpoints.
// Настройки приложения; только администратор сайта.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListAppSettings — GET /api/v1/appsettings.
func (h *APIHandler) ListAppSettings(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	settings, err := h.settings.List(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}

	items := make([]appSettingResponse, 0, len(settings))
	for _, s := range settings {
		items = append(items, mapAppSetting(s))
	}
	writeJSON(w, http.StatusOK, items)
}

// SetAppSetting — PUT /api/v1/appsettings/{key}.
// Значение разбирается согласно типу настройки.
func (h *APIHandler) SetAppSetting(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.settings.Set(r.Context(), actor, chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, mapAppSetting(s))
}
