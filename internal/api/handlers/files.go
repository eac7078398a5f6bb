// files.go — обработчики /api/v1/files endpoints.
package handlers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// AnnounceFile — POST /api/v1/files.
// Анонсирует файл: создаёт метазапись с именем и контрольной суммой,
// содержимое загружается отдельным запросом.
func (h *APIHandler) AnnounceFile(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req struct {
		Name     string `json:"name"`
		Checksum string `json:"checksum"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.files.Announce(r.Context(), actor, req.Name, req.Checksum)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, mapFile(f))
}

// ListStagedFiles — GET /api/v1/files.
// Застейдженные (ещё не отправленные) файлы актора.
func (h *APIHandler) ListStagedFiles(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	files, err := h.files.ListStaged(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}

	items := make([]fileResponse, 0, len(files))
	for _, f := range files {
		items = append(items, mapFile(f))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetFile — GET /api/v1/files/{id}. Чужой файл неотличим от несуществующего.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	f, err := h.files.Get(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, mapFile(f))
}

// UpdateFile — PATCH /api/v1/files/{id}.
// Смена имени и/или контрольной суммы застейдженного файла. Смена
// контрольной суммы сбрасывает загруженное содержимое.
func (h *APIHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Checksum *string `json:"checksum"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	f, err := h.files.UpdateMeta(r.Context(), actor, key, req.Name, req.Checksum)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, mapFile(f))
}

// DeleteFile — DELETE /api/v1/files/{id}.
// Удаляются только застейдженные файлы; содержимое удаляется из хранилища.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	if err := h.files.Delete(r.Context(), actor, key); err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadFileContent — PUT /api/v1/files/{id}/content.
// Тело запроса — содержимое файла (application/octet-stream). Содержимое
// принимается, только если его контрольная сумма совпадает с анонсированной.
func (h *APIHandler) UploadFileContent(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	f, err := h.files.Upload(r.Context(), actor, key, r.Body)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, mapFile(f))
}

// DownloadFileContent — GET /api/v1/files/{id}/content.
func (h *APIHandler) DownloadFileContent(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	key := model.ParseResourceKey(chi.URLParam(r, "id"))
	f, rc, err := h.files.Download(r.Context(), actor, key)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	if f.Filesize != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*f.Filesize, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		// Заголовки уже отправлены, статус менять поздно
		h.logger.Error("Ошибка отдачи содержимого файла",
			slog.String("file", f.SiteID),
			slog.String("error", err.Error()),
		)
	}
}
