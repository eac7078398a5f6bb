// files.go — сервис файлов.
// Жизненный цикл: announce (имя + контрольная сумма) → upload (данные
// пишутся в blob-хранилище и сверяются с суммой) → заморозка. После
// включения в сабмишен файл неизменяем.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/repository"
	"github.com/bigkaa/gometastore/internal/storage/blobstore"
)

// Blobs — операции blob-хранилища, используемые сервисом файлов.
// Реализуется blobstore.BlobStore.
type Blobs interface {
	Save(fileID uuid.UUID, reader io.Reader) (*blobstore.SaveResult, error)
	Open(uri string) (*os.File, error)
	Delete(uri string) error
}

// FileService — сервис файлов.
type FileService struct {
	store   repository.Store
	blobs   Blobs
	siteIDs *SiteIDGenerator
	prefix  string
	logger  *slog.Logger
}

// NewFileService создаёт сервис файлов.
func NewFileService(
	store repository.Store,
	blobs Blobs,
	siteIDs *SiteIDGenerator,
	prefix string,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		store:   store,
		blobs:   blobs,
		siteIDs: siteIDs,
		prefix:  prefix,
		logger:  logger.With(slog.String("component", "file_service")),
	}
}

// Announce объявляет файл: имя и ожидаемую SHA-256 контрольную сумму.
// Данные загружаются отдельным вызовом Upload.
func (s *FileService) Announce(ctx context.Context, actor *model.User, name, checksum string) (*model.File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: имя файла не задано", ErrValidation)
	}
	if checksum == "" {
		return nil, fmt.Errorf("%w: контрольная сумма не задана", ErrValidation)
	}

	siteID, err := s.siteIDs.New(ctx, "files", s.prefix)
	if err != nil {
		return nil, err
	}

	f := &model.File{
		ID:       uuid.New(),
		SiteID:   siteID,
		Name:     name,
		Checksum: checksum,
		UserID:   actor.ID,
		GroupID:  actor.GroupID,
	}
	if err := s.store.Files().Create(ctx, f); err != nil {
		return nil, fmt.Errorf("объявление файла: %w", err)
	}

	s.logger.Info("Файл объявлен",
		slog.String("site_id", f.SiteID),
		slog.String("name", f.Name),
	)
	return f, nil
}

// Upload записывает содержимое файла в blob-хранилище, сверяет SHA-256
// с объявленной суммой и замораживает файл. Несовпадение суммы оставляет
// файл незамороженным, содержимое удаляется.
func (s *FileService) Upload(ctx context.Context, actor *model.User, key model.ResourceKey, reader io.Reader) (*model.File, error) {
	f, err := s.getOwned(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	if f.WasSubmitted() {
		return nil, ErrNotModifiable
	}

	result, err := s.blobs.Save(f.ID, reader)
	if err != nil {
		return nil, fmt.Errorf("запись содержимого: %w", err)
	}

	if result.Checksum != f.Checksum {
		if delErr := s.blobs.Delete(result.URI); delErr != nil {
			s.logger.Warn("Не удалось удалить содержимое после несовпадения суммы",
				slog.String("site_id", f.SiteID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("%w: контрольная сумма содержимого %s не совпадает с объявленной %s",
			ErrValidation, result.Checksum, f.Checksum)
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Files().SetStorageURI(ctx, f.ID, result.URI); err != nil {
			return err
		}
		return tx.Files().Freeze(ctx, f.ID, result.Size)
	})
	if err != nil {
		return nil, fmt.Errorf("заморозка файла: %w", err)
	}

	f.StorageURI = &result.URI
	f.Filesize = &result.Size
	f.ContentUploaded = true

	s.logger.Info("Содержимое файла загружено",
		slog.String("site_id", f.SiteID),
		slog.Int64("size", result.Size),
	)
	return f, nil
}

// UpdateMeta изменяет имя и/или объявленную сумму неотправленного файла.
// Смена суммы сбрасывает заморозку: содержимое нужно загрузить заново.
func (s *FileService) UpdateMeta(ctx context.Context, actor *model.User, key model.ResourceKey, name, checksum *string) (*model.File, error) {
	f, err := s.getOwned(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	if f.WasSubmitted() {
		return nil, ErrNotModifiable
	}

	if name != nil {
		if *name == "" {
			return nil, fmt.Errorf("%w: имя файла не задано", ErrValidation)
		}
		f.Name = *name
	}
	if checksum == nil || *checksum == f.Checksum {
		// Меняется только имя — заморозка сохраняется
		if err := s.store.Files().UpdateMeta(ctx, f); err != nil {
			return nil, fmt.Errorf("обновление файла: %w", err)
		}
		if f.ContentUploaded {
			if err := s.store.Files().Freeze(ctx, f.ID, *f.Filesize); err != nil {
				return nil, fmt.Errorf("восстановление заморозки: %w", err)
			}
		}
		return f, nil
	}

	f.Checksum = *checksum
	f.ContentUploaded = false
	f.Filesize = nil
	if err := s.store.Files().UpdateMeta(ctx, f); err != nil {
		return nil, fmt.Errorf("обновление файла: %w", err)
	}

	s.logger.Info("Файл обновлён, требуется повторная загрузка содержимого",
		slog.String("site_id", f.SiteID),
	)
	return f, nil
}

// Get возвращает файл по ключу.
func (s *FileService) Get(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.File, error) {
	f, err := s.store.Files().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла: %w", err)
	}
	if !authz.ViewFile(actor, f) {
		return nil, ErrAccessDenied
	}
	return f, nil
}

// Download открывает содержимое файла для чтения.
// Вызывающий код обязан закрыть ReadCloser.
func (s *FileService) Download(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.File, io.ReadCloser, error) {
	f, err := s.Get(ctx, actor, key)
	if err != nil {
		return nil, nil, err
	}
	if !f.ContentUploaded || f.StorageURI == nil {
		return nil, nil, fmt.Errorf("%w: содержимое файла не загружено", ErrStateConflict)
	}

	rc, err := s.blobs.Open(*f.StorageURI)
	if err != nil {
		return nil, nil, fmt.Errorf("открытие содержимого: %w", err)
	}
	return f, rc, nil
}

// Delete удаляет неотправленный файл вместе с содержимым.
func (s *FileService) Delete(ctx context.Context, actor *model.User, key model.ResourceKey) error {
	f, err := s.store.Files().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение файла: %w", err)
	}
	if f.WasSubmitted() {
		return ErrNotModifiable
	}
	if !authz.DeleteFile(actor, f) {
		return ErrAccessDenied
	}

	if err := s.store.Files().Delete(ctx, f.ID); err != nil {
		return fmt.Errorf("удаление файла: %w", err)
	}
	if f.StorageURI != nil {
		if err := s.blobs.Delete(*f.StorageURI); err != nil {
			s.logger.Warn("Содержимое файла не удалено",
				slog.String("site_id", f.SiteID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Файл удалён", slog.String("site_id", f.SiteID))
	return nil
}

// ListStaged возвращает файлы пользователя, не вошедшие в сабмишены.
func (s *FileService) ListStaged(ctx context.Context, actor *model.User) ([]*model.File, error) {
	files, err := s.store.Files().ListStaged(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("получение списка файлов: %w", err)
	}
	return files, nil
}

// getOwned возвращает файл, если действующий пользователь вправе его изменять.
func (s *FileService) getOwned(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.File, error) {
	f, err := s.store.Files().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла: %w", err)
	}
	if f.WasSubmitted() {
		return f, nil // неизменяемость проверяет вызывающий код
	}
	if !authz.UpdateFile(actor, f) {
		return nil, ErrAccessDenied
	}
	return f, nil
}
