package repository

import (
	"context"
	"fmt"
)

// SiteCounts — количественная сводка по данным инсталляции.
// Используется для метрик и административной статистики.
type SiteCounts struct {
	Users        int64
	Groups       int64
	Files        int64
	Metadatasets int64
	// Submitted — отправленные наборы (входящие в сабмишены)
	Submitted   int64
	Submissions int64
}

// StatsRepository — агрегатные запросы для метрик.
type StatsRepository interface {
	// Counts возвращает сводку по инсталляции одним запросом.
	Counts(ctx context.Context) (*SiteCounts, error)
}

type statsRepo struct {
	db DBTX
}

func (r *statsRepo) Counts(ctx context.Context) (*SiteCounts, error) {
	query := `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM groups),
			(SELECT count(*) FROM files),
			(SELECT count(*) FROM metadatasets),
			(SELECT count(*) FROM metadatasets WHERE submission_id IS NOT NULL),
			(SELECT count(*) FROM submissions)`

	c := &SiteCounts{}
	err := r.db.QueryRow(ctx, query).Scan(
		&c.Users, &c.Groups, &c.Files, &c.Metadatasets, &c.Submitted, &c.Submissions)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return c, nil
}
