// users.go — обработчики /api/v1/users endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/service"
)

// GetCurrentUser — GET /api/v1/users/me.
// Возвращает аутентифицированного пользователя.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}
	writeJSON(w, http.StatusOK, mapUser(actor))
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	u, err := h.users.Get(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}

// userUpdateRequest — тело PATCH /api/v1/users/{id}.
// Присутствующие поля применяются, отсутствующие не меняются.
type userUpdateRequest struct {
	Fullname   *string `json:"fullname"`
	Enabled    *bool   `json:"enabled"`
	SiteAdmin  *bool   `json:"site_admin"`
	GroupAdmin *bool   `json:"group_admin"`
	SiteRead   *bool   `json:"site_read"`
}

// UpdateUser — PATCH /api/v1/users/{id}.
// Смена имени и изменение флагов прав; каждый флаг проверяется своим
// предикатом прав доступа.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req userUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	var u *model.User
	var err error

	if req.Fullname != nil {
		u, err = h.users.UpdateName(r.Context(), actor, key, *req.Fullname)
		if err != nil {
			h.writeServiceError(w, err, false)
			return
		}
	}

	flags := service.UserFlags{
		Enabled:    req.Enabled,
		SiteAdmin:  req.SiteAdmin,
		GroupAdmin: req.GroupAdmin,
		SiteRead:   req.SiteRead,
	}
	if flags.Enabled != nil || flags.SiteAdmin != nil || flags.GroupAdmin != nil || flags.SiteRead != nil {
		u, err = h.users.UpdateFlags(r.Context(), actor, key, flags)
		if err != nil {
			h.writeServiceError(w, err, false)
			return
		}
	}

	if u == nil {
		// Пустой запрос — возвращаем текущее состояние
		u, err = h.users.Get(r.Context(), actor, key)
		if err != nil {
			h.writeServiceError(w, err, false)
			return
		}
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}
