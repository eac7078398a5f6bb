// metadata.go — обработчики /api/v1/metadata endpoints (схема метаданных).
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gometastore/internal/api/errors"
	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
)

// metadatumRequest — тело POST /api/v1/metadata и PUT /api/v1/metadata/{name}.
type metadatumRequest struct {
	Name             string  `json:"name"`
	Mandatory        bool    `json:"mandatory"`
	Ordinal          int     `json:"ordinal"`
	IsFile           bool    `json:"is_file"`
	Regexp           *string `json:"regexp"`
	LintMessage      *string `json:"lint_message"`
	DatetimeFmt      *string `json:"datetime_fmt"`
	SubmissionUnique bool    `json:"submission_unique"`
	SiteUnique       bool    `json:"site_unique"`
}

// ListMetadata — GET /api/v1/metadata.
// Возвращает определения схемы в порядке ordinal. Сервисные поля видны
// только пользователям с site_read.
func (h *APIHandler) ListMetadata(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	defs, err := h.metadata.Definitions(r.Context())
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}

	readable := authz.ReadableMetadata(actor, defs)
	items := make([]metadatumResponse, 0, len(readable))
	for _, md := range readable {
		items = append(items, mapMetadatum(md))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetMetadatum — GET /api/v1/metadata/{name}.
func (h *APIHandler) GetMetadatum(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	md, err := h.metadata.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	// Сервисное поле для пользователя без site_read неотличимо
	// от несуществующего
	if md.ServiceID != nil && !actor.SiteRead {
		apierrors.NotFound(w, "Ресурс не найден")
		return
	}
	writeJSON(w, http.StatusOK, mapMetadatum(md))
}

// CreateMetadatum — POST /api/v1/metadata. Только администратор сайта.
func (h *APIHandler) CreateMetadatum(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req metadatumRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	md := &model.MetaDatum{
		Name:             req.Name,
		Mandatory:        req.Mandatory,
		Ordinal:          req.Ordinal,
		IsFile:           req.IsFile,
		Regexp:           req.Regexp,
		LintMessage:      req.LintMessage,
		DatetimeFmt:      req.DatetimeFmt,
		SubmissionUnique: req.SubmissionUnique,
		SiteUnique:       req.SiteUnique,
	}
	if err := h.metadata.Create(r.Context(), actor, md); err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, mapMetadatum(md))
}

// UpdateMetadatum — PUT /api/v1/metadata/{name}. Только администратор сайта.
// Определение идентифицируется именем в пути; тело задаёт новое состояние
// полностью (имя в теле позволяет переименование).
func (h *APIHandler) UpdateMetadatum(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}
	// Право проверяется до выдачи сведений о существовании поля
	if !authz.UpdateMetadatum(actor) {
		apierrors.Forbidden(w, "Недостаточно прав")
		return
	}

	var req metadatumRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	md, err := h.metadata.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}

	updated := &model.MetaDatum{
		ID:               md.ID,
		Name:             req.Name,
		Mandatory:        req.Mandatory,
		Ordinal:          req.Ordinal,
		IsFile:           req.IsFile,
		Regexp:           req.Regexp,
		LintMessage:      req.LintMessage,
		DatetimeFmt:      req.DatetimeFmt,
		SubmissionUnique: req.SubmissionUnique,
		SiteUnique:       req.SiteUnique,
		ServiceID:        md.ServiceID,
	}
	if err := h.metadata.Update(r.Context(), actor, updated); err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, mapMetadatum(updated))
}
