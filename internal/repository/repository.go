// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
// Репозитории работают поверх DBTX (пул или транзакция); агрегирующий
// интерфейс Store выдаёт репозитории и открывает транзакционную область.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store — агрегат репозиториев. Сервисный слой зависит от этого
// интерфейса; InTx выполняет функцию над Store, привязанным к одной
// транзакции, так что все чтения и записи внутри видят единый снимок.
type Store interface {
	Groups() GroupRepository
	Users() UserRepository
	Metadata() MetadataRepository
	Metadatasets() MetadatasetRepository
	Files() FileRepository
	Submissions() SubmissionRepository
	Services() ServiceRepository
	AppSettings() AppSettingsRepository
	Stats() StatsRepository

	// SiteIDTaken проверяет занятость site_id в таблице сущности.
	SiteIDTaken(ctx context.Context, entity, siteID string) (bool, error)

	// InTx выполняет fn над транзакционным Store.
	// При ошибке fn транзакция откатывается, при успехе — коммитится.
	InTx(ctx context.Context, fn func(Store) error) error
}

// pgStore — реализация Store поверх pgx.
type pgStore struct {
	db   DBTX
	pool *pgxpool.Pool // nil внутри транзакции
}

// NewStore создаёт Store поверх пула подключений.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{db: pool, pool: pool}
}

func (s *pgStore) Groups() GroupRepository             { return &groupRepo{db: s.db} }
func (s *pgStore) Users() UserRepository               { return &userRepo{db: s.db} }
func (s *pgStore) Metadata() MetadataRepository        { return &metadataRepo{db: s.db} }
func (s *pgStore) Metadatasets() MetadatasetRepository { return &metadatasetRepo{db: s.db} }
func (s *pgStore) Files() FileRepository               { return &fileRepo{db: s.db} }
func (s *pgStore) Submissions() SubmissionRepository   { return &submissionRepo{db: s.db} }
func (s *pgStore) Services() ServiceRepository         { return &serviceRepo{db: s.db} }
func (s *pgStore) AppSettings() AppSettingsRepository  { return &appSettingsRepo{db: s.db} }
func (s *pgStore) Stats() StatsRepository              { return &statsRepo{db: s.db} }

// siteIDTables — таблицы, в которых существует колонка site_id.
// Белый список предотвращает подстановку произвольного имени таблицы в SQL.
var siteIDTables = map[string]bool{
	"users":        true,
	"groups":       true,
	"files":        true,
	"metadatasets": true,
	"submissions":  true,
	"services":     true,
}

func (s *pgStore) SiteIDTaken(ctx context.Context, entity, siteID string) (bool, error) {
	if !siteIDTables[entity] {
		return false, fmt.Errorf("сущность %q не имеет site_id", entity)
	}
	var taken bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE site_id = $1)`, entity)
	if err := s.db.QueryRow(ctx, query, siteID).Scan(&taken); err != nil {
		return false, fmt.Errorf("проверка занятости site_id: %w", err)
	}
	return taken, nil
}

func (s *pgStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Уже внутри транзакции — выполняем без вложенной
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(&pgStore{db: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}
