// handler.go — основной обработчик API Metastore.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gometastore/internal/api/errors"
	"github.com/bigkaa/gometastore/internal/api/middleware"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/service"
)

// APIHandler — основной обработчик API Metastore.
type APIHandler struct {
	health   *HealthHandler
	users    *service.UserService
	groups   *service.GroupService
	metadata *service.MetadataService
	msets    *service.MetadatasetService
	files    *service.FileService
	subs     *service.SubmissionService
	execs    *service.ServiceExecService
	settings *service.AppSettingsService
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	users *service.UserService,
	groups *service.GroupService,
	metadata *service.MetadataService,
	msets *service.MetadatasetService,
	files *service.FileService,
	subs *service.SubmissionService,
	execs *service.ServiceExecService,
	settings *service.AppSettingsService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		users:    users,
		groups:   groups,
		metadata: metadata,
		msets:    msets,
		files:    files,
		subs:     subs,
		execs:    execs,
		settings: settings,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// actor извлекает аутентифицированного пользователя из контекста.
// При его отсутствии пишет 401 и возвращает nil.
func (h *APIHandler) actor(w http.ResponseWriter, r *http.Request) *model.User {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		apierrors.Unauthorized(w, "Запрос не аутентифицирован")
	}
	return actor
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// conceal — скрывать отказ доступа за 404: для данных, защищённых
// владением, клиент не должен отличать «нет прав» от «не существует».
// Отказы на административных операциях отдаются как есть (403).
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, conceal bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		issues := make([]apierrors.Issue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, apierrors.Issue{
				Entity:  issue.Entity,
				Field:   issue.Field,
				Message: issue.Message,
			})
		}
		if errors.Is(err, service.ErrAccessDenied) {
			apierrors.WriteIssues(w, http.StatusForbidden, apierrors.CodeForbidden,
				"Отправка отклонена", issues)
			return
		}
		apierrors.WriteIssues(w, http.StatusBadRequest, apierrors.CodeValidationError,
			"Нарушения валидации", issues)
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrAccessDenied):
		if conceal {
			apierrors.NotFound(w, "Ресурс не найден")
			return
		}
		apierrors.Forbidden(w, "Недостаточно прав")
	case errors.Is(err, service.ErrNotModifiable):
		apierrors.Forbidden(w, "Ресурс уже отправлен и неизменяем")
	case errors.Is(err, service.ErrStateConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}

// decodeJSON разбирает тело запроса в dst; при ошибке пишет 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}
