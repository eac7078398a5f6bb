package service

// helpers_test.go — общие фикстуры сервисных тестов.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

func checksumOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// fixture — хранилище с группой, обычным пользователем и схемой:
//   - sample_id: обязательное, уникальное в пределах сайта, ^S[0-9]+$
//   - collected: обязательная дата в формате 02.01.2006
//   - reads: обязательное файловое поле
//   - comment: необязательное поле
type fixture struct {
	store *fakeStore
	blobs *fakeBlobs
	group *model.Group
	user  *model.User

	metadata *MetadataService
	msets    *MetadatasetService
	files    *FileService
	subs     *SubmissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	blobs := newFakeBlobs()
	logger := discardLogger()

	group := &model.Group{ID: uuid.New(), SiteID: "MST-GRP-00000001", Name: "Лаборатория 1"}
	store.groups[group.ID] = group

	user := &model.User{
		ID:      uuid.New(),
		SiteID:  "MST-USR-00000001",
		Email:   "user@example.org",
		GroupID: group.ID,
		Enabled: true,
	}
	store.users[user.ID] = user

	store.metadata = []*model.MetaDatum{
		{
			ID: uuid.New(), Name: "sample_id", Mandatory: true, Ordinal: 0,
			Regexp: strPtr(`S[0-9]+`), LintMessage: strPtr("Sample ID must look like S123"),
			SubmissionUnique: true, SiteUnique: true,
		},
		{
			ID: uuid.New(), Name: "collected", Mandatory: true, Ordinal: 1,
			DatetimeFmt: strPtr("02.01.2006"),
		},
		{
			ID: uuid.New(), Name: "reads", Mandatory: true, Ordinal: 2, IsFile: true,
		},
		{
			ID: uuid.New(), Name: "comment", Ordinal: 3,
		},
	}

	metadata := NewMetadataService(store, time.Minute, logger)
	siteIDs := NewSiteIDGenerator(store, 8)

	return &fixture{
		store:    store,
		blobs:    blobs,
		group:    group,
		user:     user,
		metadata: metadata,
		msets:    NewMetadatasetService(store, metadata, siteIDs, "MST-SET-", logger),
		files:    NewFileService(store, blobs, siteIDs, "MST-FIL-", logger),
		subs:     NewSubmissionService(store, metadata, blobs, siteIDs, "MST-SUB-", logger),
	}
}

// newUser добавляет пользователя в группу.
func (fx *fixture) newUser(siteID string, groupID uuid.UUID) *model.User {
	u := &model.User{
		ID:      uuid.New(),
		SiteID:  siteID,
		Email:   siteID + "@example.org",
		GroupID: groupID,
		Enabled: true,
	}
	fx.store.users[u.ID] = u
	return u
}

// admin добавляет администратора сайта.
func (fx *fixture) admin() *model.User {
	u := fx.newUser("MST-USR-ADMIN", fx.group.ID)
	u.SiteAdmin = true
	return u
}

// stage создаёт набор метаданных от имени пользователя.
func (fx *fixture) stage(t *testing.T, actor *model.User, record map[string]*string) *model.MetaDataSet {
	t.Helper()
	m, err := fx.msets.Create(context.Background(), actor, record)
	if err != nil {
		t.Fatalf("создание набора: %v", err)
	}
	return m
}

// uploadFile объявляет файл и загружает содержимое.
func (fx *fixture) uploadFile(t *testing.T, actor *model.User, name string, content []byte) *model.File {
	t.Helper()
	f := fx.announceFile(t, actor, name, content)
	uploaded, err := fx.files.Upload(context.Background(), actor,
		model.ResourceKey{Kind: model.KeyUUID, UUID: f.ID}, bytesReader(content))
	if err != nil {
		t.Fatalf("загрузка файла %s: %v", name, err)
	}
	return uploaded
}

// announceFile объявляет файл с суммой содержимого, не загружая его.
func (fx *fixture) announceFile(t *testing.T, actor *model.User, name string, content []byte) *model.File {
	t.Helper()
	f, err := fx.files.Announce(context.Background(), actor, name, checksumOf(content))
	if err != nil {
		t.Fatalf("объявление файла %s: %v", name, err)
	}
	return f
}

// validRecord — запись, проходящая валидацию фикстурной схемы.
func validRecord(sampleID, fileName string) map[string]*string {
	return map[string]*string{
		"sample_id": strPtr(sampleID),
		"collected": strPtr("15.03.2026"),
		"reads":     strPtr(fileName),
	}
}

// submitKeys — запрос отправки по UUID наборов и файлов.
func submitKeys(msets []*model.MetaDataSet, files []*model.File) SubmitRequest {
	req := SubmitRequest{}
	for _, m := range msets {
		req.MetadatasetKeys = append(req.MetadatasetKeys, model.ResourceKey{Kind: model.KeyUUID, UUID: m.ID})
	}
	for _, f := range files {
		req.FileKeys = append(req.FileKeys, model.ResourceKey{Kind: model.KeyUUID, UUID: f.ID})
	}
	return req
}

// hasIssue проверяет наличие нарушения с указанным сообщением и полем.
func hasIssue(issues []Issue, field, message string) bool {
	for _, issue := range issues {
		if issue.Field == field && issue.Message == message {
			return true
		}
	}
	return false
}
