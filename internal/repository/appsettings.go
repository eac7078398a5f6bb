package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// AppSettingsRepository — доступ к таблице appsettings.
// Значения хранятся текстом с явной колонкой типа; декодирование
// в типизированное значение выполняется при чтении.
type AppSettingsRepository interface {
	// All возвращает все настройки.
	All(ctx context.Context) ([]*model.AppSetting, error)
	// Get возвращает настройку по ключу.
	Get(ctx context.Context, key string) (*model.AppSetting, error)
	// Set обновляет значение существующей настройки.
	// Создание новых ключей через API не поддерживается.
	Set(ctx context.Context, key string, value model.SettingValue) error
}

type appSettingsRepo struct {
	db DBTX
}

func scanAppSetting(row pgx.Row) (*model.AppSetting, error) {
	var (
		key  string
		kind model.SettingKind
		raw  string
	)
	if err := row.Scan(&key, &kind, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения настройки: %w", err)
	}
	value, err := model.DecodeSettingValue(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("настройка %q: %w", key, err)
	}
	return &model.AppSetting{Key: key, Value: value}, nil
}

func (r *appSettingsRepo) All(ctx context.Context) ([]*model.AppSetting, error) {
	rows, err := r.db.Query(ctx, `SELECT key, kind, value FROM appsettings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	defer rows.Close()

	var result []*model.AppSetting
	for rows.Next() {
		s, err := scanAppSetting(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *appSettingsRepo) Get(ctx context.Context, key string) (*model.AppSetting, error) {
	row := r.db.QueryRow(ctx, `SELECT key, kind, value FROM appsettings WHERE key = $1`, key)
	return scanAppSetting(row)
}

func (r *appSettingsRepo) Set(ctx context.Context, key string, value model.SettingValue) error {
	query := `UPDATE appsettings SET kind = $2, value = $3 WHERE key = $1`
	tag, err := r.db.Exec(ctx, query, key, value.Kind, value.Encode())
	if err != nil {
		return fmt.Errorf("ошибка обновления настройки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
