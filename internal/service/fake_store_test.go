package service

// fake_store_test.go — Store в памяти для модульных тестов сервисного
// слоя. Повторяет контракты репозиториев, включая производные поля
// (SubmissionGroupID, привязка файлов) и ошибки ErrNotFound/ErrConflict.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/repository"
	"github.com/bigkaa/gometastore/internal/storage/blobstore"
)

type fakeStore struct {
	groups   map[uuid.UUID]*model.Group
	users    map[uuid.UUID]*model.User
	metadata []*model.MetaDatum
	msets    map[uuid.UUID]*model.MetaDataSet
	files    map[uuid.UUID]*model.File
	subs     map[uuid.UUID]*model.Submission
	services map[uuid.UUID]*model.Service
	execs    map[string]*model.ServiceExecution
	settings map[string]*model.AppSetting
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:   make(map[uuid.UUID]*model.Group),
		users:    make(map[uuid.UUID]*model.User),
		msets:    make(map[uuid.UUID]*model.MetaDataSet),
		files:    make(map[uuid.UUID]*model.File),
		subs:     make(map[uuid.UUID]*model.Submission),
		services: make(map[uuid.UUID]*model.Service),
		execs:    make(map[string]*model.ServiceExecution),
		settings: make(map[string]*model.AppSetting),
	}
}

func (s *fakeStore) Groups() repository.GroupRepository             { return &fakeGroups{s} }
func (s *fakeStore) Users() repository.UserRepository               { return &fakeUsers{s} }
func (s *fakeStore) Metadata() repository.MetadataRepository        { return &fakeMetadata{s} }
func (s *fakeStore) Metadatasets() repository.MetadatasetRepository { return &fakeMsets{s} }
func (s *fakeStore) Files() repository.FileRepository               { return &fakeFiles{s} }
func (s *fakeStore) Submissions() repository.SubmissionRepository   { return &fakeSubs{s} }
func (s *fakeStore) Services() repository.ServiceRepository         { return &fakeServices{s} }
func (s *fakeStore) AppSettings() repository.AppSettingsRepository  { return &fakeSettings{s} }
func (s *fakeStore) Stats() repository.StatsRepository              { return &fakeStats{s} }

func (s *fakeStore) SiteIDTaken(_ context.Context, entity, siteID string) (bool, error) {
	switch entity {
	case "users":
		for _, u := range s.users {
			if u.SiteID == siteID {
				return true, nil
			}
		}
	case "groups":
		for _, g := range s.groups {
			if g.SiteID == siteID {
				return true, nil
			}
		}
	case "files":
		for _, f := range s.files {
			if f.SiteID == siteID {
				return true, nil
			}
		}
	case "metadatasets":
		for _, m := range s.msets {
			if m.SiteID == siteID {
				return true, nil
			}
		}
	case "submissions":
		for _, sub := range s.subs {
			if sub.SiteID == siteID {
				return true, nil
			}
		}
	case "services":
		for _, svc := range s.services {
			if svc.SiteID == siteID {
				return true, nil
			}
		}
	default:
		return false, fmt.Errorf("сущность %q не имеет site_id", entity)
	}
	return false, nil
}

// InTx выполняет fn над тем же хранилищем: сервисные тесты проверяют,
// что при нарушениях оркестратор возвращается до каких-либо записей.
func (s *fakeStore) InTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

// --- groups ---

type fakeGroups struct{ s *fakeStore }

func (r *fakeGroups) GetByID(_ context.Context, id uuid.UUID) (*model.Group, error) {
	if g, ok := r.s.groups[id]; ok {
		return g, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeGroups) GetByKey(ctx context.Context, key model.ResourceKey) (*model.Group, error) {
	if key.Kind == model.KeyUUID {
		return r.GetByID(ctx, key.UUID)
	}
	for _, g := range r.s.groups {
		if g.SiteID == key.SiteID {
			return g, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeGroups) Create(_ context.Context, g *model.Group) error {
	r.s.groups[g.ID] = g
	return nil
}

func (r *fakeGroups) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	g, ok := r.s.groups[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Name = name
	return nil
}

// --- users ---

type fakeUsers struct{ s *fakeStore }

func (r *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUsers) GetByKey(ctx context.Context, key model.ResourceKey) (*model.User, error) {
	if key.Kind == model.KeyUUID {
		return r.GetByID(ctx, key.UUID)
	}
	for _, u := range r.s.users {
		if u.SiteID == key.SiteID {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUsers) Create(_ context.Context, u *model.User) error {
	r.s.users[u.ID] = u
	return nil
}

func (r *fakeUsers) Update(_ context.Context, u *model.User) error {
	if _, ok := r.s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.users[u.ID] = u
	return nil
}

// --- metadata ---

type fakeMetadata struct{ s *fakeStore }

func (r *fakeMetadata) All(_ context.Context) ([]*model.MetaDatum, error) {
	defs := make([]*model.MetaDatum, len(r.s.metadata))
	copy(defs, r.s.metadata)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Ordinal < defs[j].Ordinal })
	return defs, nil
}

func (r *fakeMetadata) GetByName(_ context.Context, name string) (*model.MetaDatum, error) {
	for _, md := range r.s.metadata {
		if md.Name == name {
			return md, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMetadata) Create(_ context.Context, md *model.MetaDatum) error {
	for _, existing := range r.s.metadata {
		if existing.Name == md.Name {
			return repository.ErrConflict
		}
	}
	r.s.metadata = append(r.s.metadata, md)
	return nil
}

func (r *fakeMetadata) Update(_ context.Context, md *model.MetaDatum) error {
	for i, existing := range r.s.metadata {
		if existing.ID == md.ID {
			r.s.metadata[i] = md
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- metadatasets ---

type fakeMsets struct{ s *fakeStore }

// cloneMset возвращает глубокую копию набора: читающие пути репозитория
// отдают свежие строки, и изменение результата не влияет на хранилище.
func cloneMset(m *model.MetaDataSet) *model.MetaDataSet {
	clone := *m
	clone.Records = make([]*model.MetaDatumRecord, len(m.Records))
	for i, rec := range m.Records {
		recClone := *rec
		clone.Records[i] = &recClone
	}
	return &clone
}

func (r *fakeMsets) GetByKey(_ context.Context, key model.ResourceKey) (*model.MetaDataSet, error) {
	for _, m := range r.s.msets {
		if (key.Kind == model.KeyUUID && m.ID == key.UUID) ||
			(key.Kind == model.KeySiteID && m.SiteID == key.SiteID) {
			return cloneMset(m), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMsets) GetManyForUpdate(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.MetaDataSet, error) {
	result := make(map[uuid.UUID]*model.MetaDataSet)
	for _, id := range ids {
		if m, ok := r.s.msets[id]; ok {
			result[id] = m
		}
	}
	return result, nil
}

func (r *fakeMsets) Create(_ context.Context, m *model.MetaDataSet) error {
	if _, ok := r.s.msets[m.ID]; ok {
		return repository.ErrConflict
	}
	stored := *m
	stored.Records = nil
	r.s.msets[m.ID] = &stored
	return nil
}

func (r *fakeMsets) InsertRecords(_ context.Context, recs []*model.MetaDatumRecord) error {
	for _, rec := range recs {
		m, ok := r.s.msets[rec.MetadatasetID]
		if !ok {
			return repository.ErrNotFound
		}
		m.Records = append(m.Records, rec)
	}
	return nil
}

func (r *fakeMsets) UpdateRecord(_ context.Context, rec *model.MetaDatumRecord) error {
	for _, m := range r.s.msets {
		for i, existing := range m.Records {
			if existing.ID == rec.ID {
				m.Records[i] = rec
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (r *fakeMsets) BindFile(_ context.Context, recordID, fileID uuid.UUID) error {
	for _, m := range r.s.msets {
		for _, rec := range m.Records {
			if rec.ID == recordID {
				rec.FileID = &fileID
				if f, ok := r.s.files[fileID]; ok {
					f.RecordID = &rec.ID
					f.SubmissionGroupID = m.SubmissionGroupID
				}
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (r *fakeMsets) AttachSubmission(_ context.Context, ids []uuid.UUID, submissionID uuid.UUID) error {
	sub, ok := r.s.subs[submissionID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, id := range ids {
		m, ok := r.s.msets[id]
		if !ok {
			return repository.ErrNotFound
		}
		subID := submissionID
		m.SubmissionID = &subID
		m.SubmissionGroupID = &sub.GroupID
	}
	return nil
}

func (r *fakeMsets) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.s.msets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.msets, id)
	return nil
}

func (r *fakeMsets) ListPending(_ context.Context, userID uuid.UUID) ([]*model.MetaDataSet, error) {
	var result []*model.MetaDataSet
	for _, m := range r.s.msets {
		if m.UserID == userID && m.SubmissionID == nil {
			result = append(result, cloneMset(m))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SiteID < result[j].SiteID })
	return result, nil
}

func (r *fakeMsets) ListBySubmission(_ context.Context, submissionID uuid.UUID) ([]*model.MetaDataSet, error) {
	var result []*model.MetaDataSet
	for _, m := range r.s.msets {
		if m.SubmissionID != nil && *m.SubmissionID == submissionID {
			result = append(result, cloneMset(m))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SiteID < result[j].SiteID })
	return result, nil
}

func (r *fakeMsets) SubmittedValues(_ context.Context, metadatumName string, values []string) ([]string, error) {
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}
	seen := make(map[string]bool)
	var result []string
	for _, m := range r.s.msets {
		if m.SubmissionID == nil {
			continue
		}
		rec := m.Record(metadatumName)
		if rec == nil || rec.Value == nil {
			continue
		}
		if wanted[*rec.Value] && !seen[*rec.Value] {
			seen[*rec.Value] = true
			result = append(result, *rec.Value)
		}
	}
	return result, nil
}

func (r *fakeMsets) BackfillNullRecords(_ context.Context, metadatumID uuid.UUID) (int64, error) {
	var md *model.MetaDatum
	for _, def := range r.s.metadata {
		if def.ID == metadatumID {
			md = def
		}
	}
	if md == nil {
		return 0, repository.ErrNotFound
	}

	var n int64
	for _, m := range r.s.msets {
		exists := false
		for _, rec := range m.Records {
			if rec.MetadatumID == metadatumID {
				exists = true
			}
		}
		if !exists {
			m.Records = append(m.Records, &model.MetaDatumRecord{
				ID:            uuid.New(),
				MetadatumID:   metadatumID,
				MetadatumName: md.Name,
				IsFile:        md.IsFile,
				MetadatasetID: m.ID,
			})
			n++
		}
	}
	return n, nil
}

// --- files ---

type fakeFiles struct{ s *fakeStore }

func cloneFile(f *model.File) *model.File {
	clone := *f
	return &clone
}

func (r *fakeFiles) GetByKey(_ context.Context, key model.ResourceKey) (*model.File, error) {
	for _, f := range r.s.files {
		if (key.Kind == model.KeyUUID && f.ID == key.UUID) ||
			(key.Kind == model.KeySiteID && f.SiteID == key.SiteID) {
			return cloneFile(f), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeFiles) GetManyForUpdate(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.File, error) {
	result := make(map[uuid.UUID]*model.File)
	for _, id := range ids {
		if f, ok := r.s.files[id]; ok {
			result[id] = f
		}
	}
	return result, nil
}

func (r *fakeFiles) Create(_ context.Context, f *model.File) error {
	if _, ok := r.s.files[f.ID]; ok {
		return repository.ErrConflict
	}
	r.s.files[f.ID] = f
	return nil
}

func (r *fakeFiles) UpdateMeta(_ context.Context, f *model.File) error {
	stored, ok := r.s.files[f.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = f.Name
	stored.Checksum = f.Checksum
	stored.ContentUploaded = false
	stored.Filesize = nil
	return nil
}

func (r *fakeFiles) SetStorageURI(_ context.Context, id uuid.UUID, uri string) error {
	f, ok := r.s.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.StorageURI = &uri
	return nil
}

func (r *fakeFiles) Freeze(_ context.Context, id uuid.UUID, filesize int64) error {
	f, ok := r.s.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.ContentUploaded = true
	f.Filesize = &filesize
	return nil
}

func (r *fakeFiles) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.s.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.files, id)
	return nil
}

func (r *fakeFiles) ListStaged(_ context.Context, userID uuid.UUID) ([]*model.File, error) {
	var result []*model.File
	for _, f := range r.s.files {
		if f.UserID == userID && !f.WasSubmitted() {
			result = append(result, cloneFile(f))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SiteID < result[j].SiteID })
	return result, nil
}

// --- submissions ---

type fakeSubs struct{ s *fakeStore }

func (r *fakeSubs) GetByKey(_ context.Context, key model.ResourceKey) (*model.Submission, error) {
	for _, sub := range r.s.subs {
		if (key.Kind == model.KeyUUID && sub.ID == key.UUID) ||
			(key.Kind == model.KeySiteID && sub.SiteID == key.SiteID) {
			return sub, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSubs) Create(_ context.Context, sub *model.Submission) error {
	if _, ok := r.s.subs[sub.ID]; ok {
		return repository.ErrConflict
	}
	r.s.subs[sub.ID] = sub
	return nil
}

func (r *fakeSubs) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.s.subs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.subs, id)
	return nil
}

func (r *fakeSubs) ListByGroup(_ context.Context, groupID uuid.UUID) ([]*model.Submission, error) {
	var result []*model.Submission
	for _, sub := range r.s.subs {
		if sub.GroupID == groupID {
			result = append(result, sub)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// --- services ---

type fakeServices struct{ s *fakeStore }

func execKey(serviceID, metadatasetID uuid.UUID) string {
	return serviceID.String() + "/" + metadatasetID.String()
}

func (r *fakeServices) GetByKey(_ context.Context, key model.ResourceKey) (*model.Service, error) {
	for _, svc := range r.s.services {
		if (key.Kind == model.KeyUUID && svc.ID == key.UUID) ||
			(key.Kind == model.KeySiteID && svc.SiteID == key.SiteID) {
			return svc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeServices) Create(_ context.Context, svc *model.Service) error {
	r.s.services[svc.ID] = svc
	return nil
}

func (r *fakeServices) SetUsers(_ context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) error {
	svc, ok := r.s.services[serviceID]
	if !ok {
		return repository.ErrNotFound
	}
	svc.UserIDs = userIDs
	return nil
}

func (r *fakeServices) ExecutionExists(_ context.Context, serviceID, metadatasetID uuid.UUID) (bool, error) {
	_, ok := r.s.execs[execKey(serviceID, metadatasetID)]
	return ok, nil
}

func (r *fakeServices) RecordExecution(_ context.Context, e *model.ServiceExecution) error {
	key := execKey(e.ServiceID, e.MetadatasetID)
	if _, ok := r.s.execs[key]; ok {
		return repository.ErrConflict
	}
	r.s.execs[key] = e
	return nil
}

// --- appsettings ---

type fakeSettings struct{ s *fakeStore }

func (r *fakeSettings) All(_ context.Context) ([]*model.AppSetting, error) {
	var result []*model.AppSetting
	for _, setting := range r.s.settings {
		result = append(result, setting)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (r *fakeSettings) Get(_ context.Context, key string) (*model.AppSetting, error) {
	if setting, ok := r.s.settings[key]; ok {
		return setting, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSettings) Set(_ context.Context, key string, value model.SettingValue) error {
	setting, ok := r.s.settings[key]
	if !ok {
		return repository.ErrNotFound
	}
	setting.Value = value
	return nil
}

// --- stats ---

type fakeStats struct{ s *fakeStore }

func (r *fakeStats) Counts(_ context.Context) (*repository.SiteCounts, error) {
	c := &repository.SiteCounts{
		Users:        int64(len(r.s.users)),
		Groups:       int64(len(r.s.groups)),
		Files:        int64(len(r.s.files)),
		Metadatasets: int64(len(r.s.msets)),
		Submissions:  int64(len(r.s.subs)),
	}
	for _, m := range r.s.msets {
		if m.SubmissionID != nil {
			c.Submitted++
		}
	}
	return c, nil
}

// --- blobs ---

// fakeBlobs — blob-хранилище в памяти.
type fakeBlobs struct {
	data map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{data: make(map[string][]byte)}
}

func (b *fakeBlobs) Save(fileID uuid.UUID, reader io.Reader) (*blobstore.SaveResult, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	uri := fileID.String()
	b.data[uri] = content
	sum := sha256.Sum256(content)
	return &blobstore.SaveResult{
		URI:      uri,
		Size:     int64(len(content)),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (b *fakeBlobs) Open(uri string) (*os.File, error) {
	content, ok := b.data[uri]
	if !ok {
		return nil, fmt.Errorf("blob не найден: %s", uri)
	}
	f, err := os.CreateTemp("", "blob")
	if err != nil {
		return nil, err
	}
	os.Remove(f.Name())
	if _, err := io.Copy(f, bytes.NewReader(content)); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (b *fakeBlobs) Delete(uri string) error {
	delete(b.data, uri)
	return nil
}
