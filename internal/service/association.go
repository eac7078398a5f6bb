// association.go — сопоставление файлов и файловых записей метаданных
// при отправке. Файлы связываются с записями по имени файла: каждое имя
// должно встречаться ровно один раз среди файлов и ровно один раз среди
// ссылающихся записей.
package service

import (
	"github.com/bigkaa/gometastore/internal/domain/model"
)

// Сообщения ошибок сопоставления.
const (
	msgNoDataUploaded       = "No data uploaded"
	msgAlreadySubmitted     = "Already submitted"
	msgDupFilenameProvided  = "Filename occurs multiple times among provided files"
	msgDupFilenameMetadata  = "Filename occurs multiple times in metadata"
	msgFileWithoutReference = "File included without reference in metadata"
	msgFileNotProvided      = "Referenced file not provided"
)

// fileBinding — запланированная привязка файла к записи метаданных.
// Применяется к БД только после успешного прохождения всех проверок.
type fileBinding struct {
	Record *model.MetaDatumRecord
	File   *model.File
}

// resolveAssociations сопоставляет предоставленные файлы с файловыми
// записями наборов. Возвращает план привязок и список нарушений;
// привязки строятся только для имён без нарушений. Все нарушения
// собираются за один проход. Записи с уже привязанным файлом ссылками
// не считаются. При ignoreSubmitted=true уже отправленные наборы
// допускаются (путь исполнения сервиса).
func resolveAssociations(msets []*model.MetaDataSet, files []*model.File, ignoreSubmitted bool) ([]fileBinding, []Issue) {
	var issues []Issue

	if !ignoreSubmitted {
		for _, m := range msets {
			if m.WasSubmitted() {
				issues = append(issues, Issue{Entity: m.SiteID, Message: msgAlreadySubmitted})
			}
		}
	}

	// Состояние файлов и дубликаты имён среди предоставленных
	providedCount := make(map[string]int, len(files))
	for _, f := range files {
		providedCount[f.Name]++
	}
	byName := make(map[string]*model.File, len(files))
	for _, f := range files {
		if !f.ContentUploaded {
			issues = append(issues, Issue{Entity: f.SiteID, Message: msgNoDataUploaded})
		}
		if f.WasSubmitted() {
			issues = append(issues, Issue{Entity: f.SiteID, Message: msgAlreadySubmitted})
		}
		if providedCount[f.Name] > 1 {
			issues = append(issues, Issue{Entity: f.SiteID, Message: msgDupFilenameProvided})
			continue
		}
		byName[f.Name] = f
	}

	// Ссылки из метаданных: файловые записи с непустым значением,
	// ещё не привязанные к файлу
	refCount := make(map[string]int)
	for _, m := range msets {
		for _, rec := range m.Records {
			if rec.IsFile && rec.Value != nil && rec.FileID == nil {
				refCount[*rec.Value]++
			}
		}
	}

	var bindings []fileBinding
	referenced := make(map[string]bool, len(refCount))
	for _, m := range msets {
		for _, rec := range m.Records {
			if !rec.IsFile || rec.Value == nil || rec.FileID != nil {
				continue
			}
			name := *rec.Value
			referenced[name] = true

			if refCount[name] > 1 {
				issues = append(issues, Issue{
					Entity:  m.SiteID,
					Field:   rec.MetadatumName,
					Message: msgDupFilenameMetadata,
				})
				continue
			}
			f, ok := byName[name]
			if !ok {
				issues = append(issues, Issue{
					Entity:  m.SiteID,
					Field:   rec.MetadatumName,
					Message: msgFileNotProvided,
				})
				continue
			}
			bindings = append(bindings, fileBinding{Record: rec, File: f})
		}
	}

	// Файлы без ссылок из метаданных; дубликаты имён тоже сообщаются
	for _, f := range files {
		if !referenced[f.Name] {
			issues = append(issues, Issue{Entity: f.SiteID, Message: msgFileWithoutReference})
		}
	}

	return bindings, issues
}
