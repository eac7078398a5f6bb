// openapi.go — middleware валидации запросов против OpenAPI-контракта.
// Каждый входящий запрос сверяется со встроенным openapi.yaml: путь,
// параметры и тело. Ответы об ошибках — в стандартном формате API.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	apierrors "github.com/bigkaa/gometastore/internal/api/errors"
)

// OpenAPIValidator — валидатор запросов против OpenAPI-документа.
type OpenAPIValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewOpenAPIValidator разбирает и проверяет OpenAPI-документ и строит
// маршрутизатор для сопоставления запросов с операциями контракта.
func NewOpenAPIValidator(spec []byte, logger *slog.Logger) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI-документа: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI-документа: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("создание OpenAPI-маршрутизатора: %w", err)
	}

	return &OpenAPIValidator{
		router: router,
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Middleware возвращает HTTP middleware валидации запросов.
// Запросы к путям вне контракта передаются дальше без проверки —
// итоговый 404/405 формирует маршрутизатор приложения.
func (v *OpenAPIValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			opts := &openapi3filter.Options{
				// Аутентификацию выполняет JWT middleware
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			}
			// Содержимое файлов не буферизуется ради валидации
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/octet-stream") {
				opts.ExcludeRequestBody = true
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				var reqErr *openapi3filter.RequestError
				if errors.As(err, &reqErr) {
					apierrors.ValidationError(w, "Запрос не соответствует контракту API: "+reqErr.Error())
					return
				}
				v.logger.Warn("Запрос отклонён валидатором контракта",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, "Запрос не соответствует контракту API")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
