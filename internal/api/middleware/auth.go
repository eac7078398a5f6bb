// auth.go — JWT middleware аутентификации Metastore.
// Аутентификация делегирована внешнему IdP: middleware проверяет подпись
// Bearer-токена через JWKS, извлекает email из настроенного claim и
// находит зарегистрированного пользователя портала по email.
// Авторизация операций — предикаты domain/authz в сервисном слое.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/gometastore/internal/api/errors"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/repository"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyActor — аутентифицированный пользователь в контексте запроса.
const ContextKeyActor contextKey = "actor"

// UserResolver — поиск пользователя портала по email.
// Реализуется repository.UserRepository.
type UserResolver interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// JWTAuth — middleware JWT-аутентификации через JWKS IdP.
type JWTAuth struct {
	jwks       keyfunc.Keyfunc
	users      UserResolver
	issuer     string
	emailClaim string
	jwtLeeway  time.Duration
	logger     *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с JWKS из IdP.
// jwksURL — URL JWKS endpoint, issuer — ожидаемый issuer токенов,
// emailClaim — имя claim с email пользователя (MS_JWT_EMAIL_CLAIM).
func NewJWTAuth(
	jwksURL string,
	issuer string,
	emailClaim string,
	users UserResolver,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:       k,
		users:      users,
		issuer:     issuer,
		emailClaim: emailClaim,
		jwtLeeway:  jwtLeeway,
		logger:     logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(
	kf keyfunc.Keyfunc,
	issuer string,
	emailClaim string,
	users UserResolver,
	logger *slog.Logger,
) *JWTAuth {
	return &JWTAuth{
		jwks:       kf,
		users:      users,
		issuer:     issuer,
		emailClaim: emailClaim,
		logger:     logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware JWT-аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256), находит
// пользователя по email из claim и помещает его в контекст запроса.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			claims := jwt.MapClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, claims, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}
			if !token.Valid {
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			email, _ := claims[j.emailClaim].(string)
			if email == "" {
				apierrors.Unauthorized(w, fmt.Sprintf("Отсутствует claim %q в токене", j.emailClaim))
				return
			}

			actor, err := j.users.GetByEmail(r.Context(), email)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					apierrors.Unauthorized(w, "Пользователь не зарегистрирован на портале")
					return
				}
				j.logger.Error("Ошибка поиска пользователя",
					slog.String("email", email),
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "Ошибка аутентификации")
				return
			}
			if !actor.Enabled {
				apierrors.Forbidden(w, "Учётная запись отключена")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyActor, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext извлекает аутентифицированного пользователя из
// контекста запроса. Возвращает nil, если пользователь не найден.
func ActorFromContext(ctx context.Context) *model.User {
	actor, _ := ctx.Value(ContextKeyActor).(*model.User)
	return actor
}

// --- ReadinessChecker для IdP ---

// IdPReadinessChecker — проверка доступности IdP через JWKS endpoint.
type IdPReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewIdPReadinessChecker создаёт checker доступности IdP.
func NewIdPReadinessChecker(jwksURL string, timeout time.Duration) *IdPReadinessChecker {
	return &IdPReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint IdP.
func (k *IdPReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
