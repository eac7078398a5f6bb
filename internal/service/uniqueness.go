// uniqueness.go — проверка ограничений уникальности при отправке.
// Два уровня: внутри одного сабмишена и глобально по всем уже
// отправленным наборам сайта. Уникальность уровня сайта подразумевает
// уникальность внутри сабмишена, поэтому внутренняя проверка выполняется
// для обоих видов ключей.
package service

import (
	"context"
	"fmt"

	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/repository"
)

// Сообщения ошибок уникальности.
const (
	msgIntraUniqueViolation  = "Violation of intra-submission unique constraint"
	msgGlobalUniqueViolation = "Violation of global unique constraint"
)

// checkUniqueness проверяет уникальные ключи схемы по отправляемым
// наборам. NULL-значения обязательных полей сталкиваются между собой;
// у необязательных полей законное отсутствие значения не считается
// коллизией. Нарушения обоих уровней собираются одновременно, по одному
// на каждую пару (набор, поле).
func checkUniqueness(ctx context.Context, store repository.Store, defs []*model.MetaDatum, msets []*model.MetaDataSet) ([]Issue, error) {
	var issues []Issue

	for _, md := range defs {
		if !md.SubmissionUnique && !md.SiteUnique {
			continue
		}

		// Внутри сабмишена: значение не должно повторяться между наборами
		count := make(map[string]int, len(msets))
		nilCount := 0
		for _, m := range msets {
			rec := m.Record(md.Name)
			if rec == nil {
				continue
			}
			if rec.Value == nil {
				if md.Mandatory {
					nilCount++
				}
				continue
			}
			count[*rec.Value]++
		}
		for _, m := range msets {
			rec := m.Record(md.Name)
			if rec == nil {
				continue
			}
			if rec.Value == nil {
				if md.Mandatory && nilCount > 1 {
					issues = append(issues, Issue{
						Entity:  m.SiteID,
						Field:   md.Name,
						Message: msgIntraUniqueViolation,
					})
				}
				continue
			}
			if count[*rec.Value] > 1 {
				issues = append(issues, Issue{
					Entity:  m.SiteID,
					Field:   md.Name,
					Message: msgIntraUniqueViolation,
				})
			}
		}

		// Глобально: значение не должно встречаться среди уже
		// отправленных наборов
		if !md.SiteUnique {
			continue
		}
		values := make([]string, 0, len(count))
		for v := range count {
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		taken, err := store.Metadatasets().SubmittedValues(ctx, md.Name, values)
		if err != nil {
			return nil, fmt.Errorf("проверка глобальной уникальности поля %q: %w", md.Name, err)
		}
		takenSet := make(map[string]bool, len(taken))
		for _, v := range taken {
			takenSet[v] = true
		}
		for _, m := range msets {
			rec := m.Record(md.Name)
			if rec == nil || rec.Value == nil {
				continue
			}
			if takenSet[*rec.Value] {
				issues = append(issues, Issue{
					Entity:  m.SiteID,
					Field:   md.Name,
					Message: msgGlobalUniqueViolation,
				})
			}
		}
	}

	return issues, nil
}
