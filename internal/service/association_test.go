package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// assocMset — набор с одной файловой записью, ссылающейся на имя файла.
func assocMset(siteID string, fileRefs ...string) *model.MetaDataSet {
	m := &model.MetaDataSet{ID: uuid.New(), SiteID: siteID}
	for i, ref := range fileRefs {
		name := "reads"
		if i > 0 {
			name = "index"
		}
		value := ref
		m.Records = append(m.Records, &model.MetaDatumRecord{
			ID:            uuid.New(),
			MetadatumName: name,
			IsFile:        true,
			MetadatasetID: m.ID,
			Value:         &value,
		})
	}
	return m
}

// assocFile — загруженный неотправленный файл.
func assocFile(siteID, name string) *model.File {
	return &model.File{ID: uuid.New(), SiteID: siteID, Name: name, ContentUploaded: true}
}

func TestResolveAssociations_Success(t *testing.T) {
	m1 := assocMset("SET-1", "a.fastq")
	m2 := assocMset("SET-2", "b.fastq")
	f1 := assocFile("FIL-1", "a.fastq")
	f2 := assocFile("FIL-2", "b.fastq")

	bindings, issues := resolveAssociations([]*model.MetaDataSet{m1, m2}, []*model.File{f1, f2}, false)
	if len(issues) != 0 {
		t.Fatalf("нарушения: %+v, ожидалось отсутствие", issues)
	}
	if len(bindings) != 2 {
		t.Fatalf("привязок %d, ожидалось 2", len(bindings))
	}

	byFile := make(map[string]string)
	for _, b := range bindings {
		byFile[b.File.Name] = b.Record.MetadatasetID.String()
	}
	if byFile["a.fastq"] != m1.ID.String() || byFile["b.fastq"] != m2.ID.String() {
		t.Errorf("привязки не соответствуют ссылкам: %+v", byFile)
	}
}

func TestResolveAssociations_NoDataUploaded(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	f := assocFile("FIL-1", "a.fastq")
	f.ContentUploaded = false

	_, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f}, false)
	if !hasIssue(issues, "", msgNoDataUploaded) {
		t.Errorf("ожидалось %q, получено %+v", msgNoDataUploaded, issues)
	}
}

func TestResolveAssociations_FileAlreadySubmitted(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	f := assocFile("FIL-1", "a.fastq")
	groupID := uuid.New()
	f.SubmissionGroupID = &groupID

	_, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f}, false)
	if !hasIssue(issues, "", msgAlreadySubmitted) {
		t.Errorf("ожидалось %q, получено %+v", msgAlreadySubmitted, issues)
	}
}

func TestResolveAssociations_DuplicateProvidedFilename(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	f1 := assocFile("FIL-1", "a.fastq")
	f2 := assocFile("FIL-2", "a.fastq")

	bindings, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f1, f2}, false)
	if len(bindings) != 0 {
		t.Errorf("привязки при дублирующихся именах: %+v", bindings)
	}

	// Нарушение у каждого из дубликатов
	count := 0
	for _, issue := range issues {
		if issue.Message == msgDupFilenameProvided {
			count++
		}
	}
	if count != 2 {
		t.Errorf("нарушений %q — %d, ожидалось 2", msgDupFilenameProvided, count)
	}
}

func TestResolveAssociations_DuplicateMetadataReference(t *testing.T) {
	m1 := assocMset("SET-1", "a.fastq")
	m2 := assocMset("SET-2", "a.fastq")
	f := assocFile("FIL-1", "a.fastq")

	bindings, issues := resolveAssociations([]*model.MetaDataSet{m1, m2}, []*model.File{f}, false)
	if len(bindings) != 0 {
		t.Errorf("привязки при дублирующихся ссылках: %+v", bindings)
	}
	count := 0
	for _, issue := range issues {
		if issue.Message == msgDupFilenameMetadata {
			count++
		}
	}
	if count != 2 {
		t.Errorf("нарушений %q — %d, ожидалось 2", msgDupFilenameMetadata, count)
	}
}

func TestResolveAssociations_FileWithoutReference(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	f1 := assocFile("FIL-1", "a.fastq")
	f2 := assocFile("FIL-2", "orphan.fastq")

	_, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f1, f2}, false)
	found := false
	for _, issue := range issues {
		if issue.Entity == "FIL-2" && issue.Message == msgFileWithoutReference {
			found = true
		}
	}
	if !found {
		t.Errorf("ожидалось %q для FIL-2, получено %+v", msgFileWithoutReference, issues)
	}
}

func TestResolveAssociations_ReferencedFileNotProvided(t *testing.T) {
	m := assocMset("SET-1", "missing.fastq")

	_, issues := resolveAssociations([]*model.MetaDataSet{m}, nil, false)
	if !hasIssue(issues, "reads", msgFileNotProvided) {
		t.Errorf("ожидалось %q, получено %+v", msgFileNotProvided, issues)
	}
}

// Файлы с совпадающими именами без ссылки из метаданных получают оба
// нарушения: дубликат имени и отсутствие ссылки.
func TestResolveAssociations_DuplicateProvidedWithoutReference(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	f1 := assocFile("FIL-1", "a.fastq")
	f2 := assocFile("FIL-2", "orphan.fastq")
	f3 := assocFile("FIL-3", "orphan.fastq")

	_, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f1, f2, f3}, false)

	count := 0
	for _, issue := range issues {
		if issue.Message == msgFileWithoutReference {
			count++
		}
	}
	if count != 2 {
		t.Errorf("нарушений %q — %d, ожидалось 2: %+v", msgFileWithoutReference, count, issues)
	}
	for _, entity := range []string{"FIL-2", "FIL-3"} {
		found := false
		for _, issue := range issues {
			if issue.Entity == entity && issue.Message == msgFileWithoutReference {
				found = true
			}
		}
		if !found {
			t.Errorf("ожидалось %q для %s, получено %+v", msgFileWithoutReference, entity, issues)
		}
	}
}

// Отправленный набор отклоняется, если отправленность не игнорируется.
func TestResolveAssociations_MsetAlreadySubmitted(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	subID := uuid.New()
	m.SubmissionID = &subID
	f := assocFile("FIL-1", "a.fastq")

	_, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f}, false)
	found := false
	for _, issue := range issues {
		if issue.Entity == "SET-1" && issue.Message == msgAlreadySubmitted {
			found = true
		}
	}
	if !found {
		t.Errorf("ожидалось %q для SET-1, получено %+v", msgAlreadySubmitted, issues)
	}

	bindings, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f}, true)
	if len(issues) != 0 {
		t.Errorf("при игнорировании отправленности нарушения: %+v", issues)
	}
	if len(bindings) != 1 {
		t.Errorf("привязок %d, ожидалась 1", len(bindings))
	}
}

// Запись с уже привязанным файлом не считается ссылкой: одноимённый
// предоставленный файл остаётся без ссылки и не привязывается повторно.
func TestResolveAssociations_BoundRecordNotReferenced(t *testing.T) {
	m := assocMset("SET-1", "a.fastq")
	boundID := uuid.New()
	m.Records[0].FileID = &boundID
	f := assocFile("FIL-1", "a.fastq")

	bindings, issues := resolveAssociations([]*model.MetaDataSet{m}, []*model.File{f}, false)
	if len(bindings) != 0 {
		t.Errorf("повторная привязка занятой записи: %+v", bindings)
	}
	if !hasIssue(issues, "", msgFileWithoutReference) {
		t.Errorf("ожидалось %q, получено %+v", msgFileWithoutReference, issues)
	}
}

// Значение NULL файлового поля не порождает ссылку.
func TestResolveAssociations_NullFileValueIgnored(t *testing.T) {
	m := &model.MetaDataSet{ID: uuid.New(), SiteID: "SET-1"}
	m.Records = append(m.Records, &model.MetaDatumRecord{
		ID: uuid.New(), MetadatumName: "reads", IsFile: true, MetadatasetID: m.ID,
	})

	bindings, issues := resolveAssociations([]*model.MetaDataSet{m}, nil, false)
	if len(bindings) != 0 || len(issues) != 0 {
		t.Errorf("NULL-значение дало привязки %v или нарушения %v", bindings, issues)
	}
}
