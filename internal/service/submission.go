// submission.go — оркестратор отправки.
// Принимает набор ключей наборов метаданных и файлов, в одной транзакции
// с блокировкой строк выполняет проверки доступа, сопоставления, схемы и
// уникальности, и либо атомарно создаёт сабмишен, либо возвращает полный
// список нарушений, не меняя состояние.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/domain/schema"
	"github.com/bigkaa/gometastore/internal/repository"
)

// Сообщения проверки доступа.
const (
	msgNotFound     = "Not found"
	msgAccessDenied = "Access denied"
)

// SubmitRequest — запрос на отправку.
type SubmitRequest struct {
	// MetadatasetKeys — ключи отправляемых наборов метаданных
	MetadatasetKeys []model.ResourceKey
	// FileKeys — ключи предоставляемых файлов
	FileKeys []model.ResourceKey
	// Label — необязательная метка сабмишена
	Label *string
}

// SubmissionService — оркестратор отправки.
type SubmissionService struct {
	store    repository.Store
	metadata *MetadataService
	blobs    Blobs
	siteIDs  *SiteIDGenerator
	prefix   string
	logger   *slog.Logger
}

// NewSubmissionService создаёт оркестратор отправки.
func NewSubmissionService(
	store repository.Store,
	metadata *MetadataService,
	blobs Blobs,
	siteIDs *SiteIDGenerator,
	prefix string,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		store:    store,
		metadata: metadata,
		blobs:    blobs,
		siteIDs:  siteIDs,
		prefix:   prefix,
		logger:   logger.With(slog.String("component", "submission_service")),
	}
}

// Submit выполняет отправку. При любом нарушении состояние БД не меняется.
func (s *SubmissionService) Submit(ctx context.Context, actor *model.User, req SubmitRequest) (*model.Submission, error) {
	return s.run(ctx, actor, req, false)
}

// Prevalidate выполняет все проверки отправки без создания сабмишена.
// Возвращает nil, если отправка прошла бы успешно.
func (s *SubmissionService) Prevalidate(ctx context.Context, actor *model.User, req SubmitRequest) error {
	_, err := s.run(ctx, actor, req, true)
	return err
}

func (s *SubmissionService) run(ctx context.Context, actor *model.User, req SubmitRequest, dryRun bool) (*model.Submission, error) {
	if len(req.MetadatasetKeys) == 0 {
		return nil, fmt.Errorf("%w: в отправке нет ни одного набора метаданных", ErrValidation)
	}

	defs, err := s.metadata.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	userDefs := schema.WithoutService(defs)

	var sub *model.Submission
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		msets, files, accessIssues, err := s.resolveAndLock(ctx, tx, actor, req)
		if err != nil {
			return err
		}
		// Отказ доступа сообщается до содержательной валидации и
		// не раскрывает её результаты
		if len(accessIssues) > 0 {
			return newAccessError(accessIssues)
		}

		bindings, issues := resolveAssociations(msets, files, false)

		for _, m := range msets {
			fieldErrs := schema.ValidateRecord(userDefs, recordValues(m, userDefs), true)
			issues = append(issues, fieldIssues(m.SiteID, fieldErrs)...)
		}

		uniqIssues, err := checkUniqueness(ctx, tx, userDefs, msets)
		if err != nil {
			return err
		}
		issues = append(issues, uniqIssues...)

		if len(issues) > 0 {
			return newValidationError(issues)
		}
		if dryRun {
			return nil
		}

		return s.commit(ctx, tx, actor, req.Label, msets, bindings, &sub)
	})
	if err != nil {
		return nil, err
	}

	if sub != nil {
		s.logger.Info("Сабмишен создан",
			slog.String("site_id", sub.SiteID),
			slog.String("user", actor.SiteID),
			slog.Int("metadatasets", len(req.MetadatasetKeys)),
			slog.Int("files", len(req.FileKeys)),
		)
	}
	return sub, nil
}

// resolveAndLock разрешает ключи запроса, убирает повторы и блокирует
// строки наборов и файлов до конца транзакции. Ненайденные ключи и
// чужие ресурсы попадают в список отказов доступа.
func (s *SubmissionService) resolveAndLock(
	ctx context.Context,
	tx repository.Store,
	actor *model.User,
	req SubmitRequest,
) ([]*model.MetaDataSet, []*model.File, []Issue, error) {
	var issues []Issue

	msetIDs, issues, err := resolveKeys(req.MetadatasetKeys, issues, func(key model.ResourceKey) (uuid.UUID, error) {
		m, err := tx.Metadatasets().GetByKey(ctx, key)
		if err != nil {
			return uuid.Nil, err
		}
		return m.ID, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	fileIDs, issues, err := resolveKeys(req.FileKeys, issues, func(key model.ResourceKey) (uuid.UUID, error) {
		f, err := tx.Files().GetByKey(ctx, key)
		if err != nil {
			return uuid.Nil, err
		}
		return f.ID, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	lockedMsets, err := tx.Metadatasets().GetManyForUpdate(ctx, msetIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	lockedFiles, err := tx.Files().GetManyForUpdate(ctx, fileIDs)
	if err != nil {
		return nil, nil, nil, err
	}

	msets := make([]*model.MetaDataSet, 0, len(msetIDs))
	for _, id := range msetIDs {
		m := lockedMsets[id]
		if m == nil {
			continue
		}
		if !authz.SubmitMset(actor, m) {
			issues = append(issues, Issue{Entity: m.SiteID, Message: msgAccessDenied})
			continue
		}
		msets = append(msets, m)
	}
	files := make([]*model.File, 0, len(fileIDs))
	for _, id := range fileIDs {
		f := lockedFiles[id]
		if f == nil {
			continue
		}
		if !authz.SubmitFile(actor, f) {
			issues = append(issues, Issue{Entity: f.SiteID, Message: msgAccessDenied})
			continue
		}
		files = append(files, f)
	}

	return msets, files, issues, nil
}

// resolveKeys разрешает ключи в UUID, убирая повторы. Ненайденные ключи
// дают отказ msgNotFound вместо ошибки.
func resolveKeys(keys []model.ResourceKey, issues []Issue, lookup func(model.ResourceKey) (uuid.UUID, error)) ([]uuid.UUID, []Issue, error) {
	seen := make(map[uuid.UUID]bool, len(keys))
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := lookup(key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				issues = append(issues, Issue{Entity: key.String(), Message: msgNotFound})
				continue
			}
			return nil, nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, issues, nil
}

// commit создаёт сабмишен, привязывает наборы и применяет план привязок
// файлов. Выполняется внутри той же транзакции, что и проверки.
func (s *SubmissionService) commit(
	ctx context.Context,
	tx repository.Store,
	actor *model.User,
	label *string,
	msets []*model.MetaDataSet,
	bindings []fileBinding,
	out **model.Submission,
) error {
	siteID, err := s.siteIDs.New(ctx, "submissions", s.prefix)
	if err != nil {
		return err
	}

	sub := &model.Submission{
		ID:      uuid.New(),
		SiteID:  siteID,
		Label:   label,
		Date:    time.Now().UTC(),
		GroupID: actor.GroupID,
	}
	if err := tx.Submissions().Create(ctx, sub); err != nil {
		return fmt.Errorf("создание сабмишена: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(msets))
	for _, m := range msets {
		ids = append(ids, m.ID)
	}
	if err := tx.Metadatasets().AttachSubmission(ctx, ids, sub.ID); err != nil {
		return err
	}

	for _, b := range bindings {
		if err := tx.Metadatasets().BindFile(ctx, b.Record.ID, b.File.ID); err != nil {
			return fmt.Errorf("привязка файла %s: %w", b.File.SiteID, err)
		}
	}

	*out = sub
	return nil
}

// Get возвращает сабмишен по ключу.
func (s *SubmissionService) Get(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.Submission, error) {
	sub, err := s.store.Submissions().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение сабмишена: %w", err)
	}
	if !authz.ViewGroupSubmissions(actor, sub.GroupID) {
		return nil, ErrAccessDenied
	}
	return sub, nil
}

// ListByGroup возвращает сабмишены группы.
func (s *SubmissionService) ListByGroup(ctx context.Context, actor *model.User, groupKey model.ResourceKey) ([]*model.Submission, error) {
	g, err := s.store.Groups().GetByKey(ctx, groupKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение группы: %w", err)
	}
	if !authz.ViewGroupSubmissions(actor, g.ID) {
		return nil, ErrAccessDenied
	}

	subs, err := s.store.Submissions().ListByGroup(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("получение сабмишенов группы: %w", err)
	}
	return subs, nil
}

// Delete — привилегированное каскадное удаление сабмишена: наборы
// метаданных с записями, файлы и их содержимое. Доступно только
// администратору сайта. Отсутствующее содержимое файла не прерывает
// удаление.
func (s *SubmissionService) Delete(ctx context.Context, actor *model.User, key model.ResourceKey) error {
	if !authz.DeleteSubmitted(actor) {
		return ErrAccessDenied
	}

	sub, err := s.store.Submissions().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение сабмишена: %w", err)
	}

	var blobURIs []string
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		msets, err := tx.Metadatasets().ListBySubmission(ctx, sub.ID)
		if err != nil {
			return err
		}

		fileIDs := make([]uuid.UUID, 0)
		for _, m := range msets {
			for _, rec := range m.Records {
				if rec.FileID != nil {
					fileIDs = append(fileIDs, *rec.FileID)
				}
			}
		}
		lockedFiles, err := tx.Files().GetManyForUpdate(ctx, fileIDs)
		if err != nil {
			return err
		}

		// Записи ссылаются на файлы, поэтому сначала наборы с записями,
		// затем файлы, затем сам сабмишен
		for _, m := range msets {
			if err := tx.Metadatasets().Delete(ctx, m.ID); err != nil {
				return fmt.Errorf("удаление набора %s: %w", m.SiteID, err)
			}
		}
		for _, id := range fileIDs {
			f := lockedFiles[id]
			if f == nil {
				continue
			}
			if err := tx.Files().Delete(ctx, f.ID); err != nil {
				return fmt.Errorf("удаление файла %s: %w", f.SiteID, err)
			}
			if f.StorageURI != nil {
				blobURIs = append(blobURIs, *f.StorageURI)
			}
		}
		return tx.Submissions().Delete(ctx, sub.ID)
	})
	if err != nil {
		return err
	}

	// Содержимое удаляется после коммита; отсутствующий blob — не ошибка
	for _, uri := range blobURIs {
		if err := s.blobs.Delete(uri); err != nil {
			s.logger.Warn("Содержимое файла не удалено",
				slog.String("uri", uri),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Сабмишен удалён",
		slog.String("site_id", sub.SiteID),
		slog.String("deleted_by", actor.SiteID),
	)
	return nil
}
