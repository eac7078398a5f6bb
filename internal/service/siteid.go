// siteid.go — генерация человекочитаемых идентификаторов (site_id).
// Идентификатор состоит из настраиваемого префикса сущности и случайной
// числовой части фиксированной длины. Префиксы и длина приходят из
// конфигурации, а не из глобального состояния.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/bigkaa/gometastore/internal/repository"
)

// maxSiteIDAttempts — предел попыток найти свободный идентификатор.
const maxSiteIDAttempts = 16

// SiteIDGenerator — генератор site_id с проверкой занятости в БД.
type SiteIDGenerator struct {
	store  repository.Store
	digits int
}

// NewSiteIDGenerator создаёт генератор site_id.
func NewSiteIDGenerator(store repository.Store, digits int) *SiteIDGenerator {
	return &SiteIDGenerator{store: store, digits: digits}
}

// New возвращает свободный site_id для сущности entity (имя таблицы)
// с указанным префиксом. Коллизии разрешаются повторной генерацией.
func (g *SiteIDGenerator) New(ctx context.Context, entity, prefix string) (string, error) {
	for attempt := 0; attempt < maxSiteIDAttempts; attempt++ {
		id, err := g.generate(prefix)
		if err != nil {
			return "", err
		}
		taken, err := g.store.SiteIDTaken(ctx, entity, id)
		if err != nil {
			return "", fmt.Errorf("проверка site_id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("не удалось найти свободный site_id для %s за %d попыток", entity, maxSiteIDAttempts)
}

// generate формирует префикс и случайную числовую часть с ведущими нулями.
func (g *SiteIDGenerator) generate(prefix string) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("генерация случайной части site_id: %w", err)
	}
	return fmt.Sprintf("%s%0*d", prefix, g.digits, n), nil
}
