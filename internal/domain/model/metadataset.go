package model

import "github.com/google/uuid"

// MetaDataSet — один структурированный набор метаданных,
// принадлежащий пользователю. До отправки изменяем только владельцем,
// после привязки к сабмишену — неизменяем (кроме пути service execution).
type MetaDataSet struct {
	// ID — UUID набора
	ID uuid.UUID
	// SiteID — человекочитаемый идентификатор набора
	SiteID string
	// UserID — UUID владельца
	UserID uuid.UUID
	// GroupID — UUID группы владельца
	GroupID uuid.UUID
	// SubmissionID — UUID сабмишена (nil до отправки; назначается один раз)
	SubmissionID *uuid.UUID
	// SubmissionGroupID — UUID группы сабмишена (nil до отправки)
	SubmissionGroupID *uuid.UUID
	// Records — записи значений по одному на каждое известное определение
	Records []*MetaDatumRecord
}

// WasSubmitted сообщает, входит ли набор в уже созданный сабмишен.
func (m *MetaDataSet) WasSubmitted() bool {
	return m.SubmissionID != nil
}

// Record возвращает запись с указанным именем поля или nil.
func (m *MetaDataSet) Record(name string) *MetaDatumRecord {
	for _, rec := range m.Records {
		if rec.MetadatumName == name {
			return rec
		}
	}
	return nil
}

// MetaDatumRecord — значение одного поля схемы внутри набора метаданных.
// Инвариант полноты схемы: для каждого известного определения у каждого
// набора существует ровно одна запись (возможно, с NULL-значением).
type MetaDatumRecord struct {
	// ID — UUID записи
	ID uuid.UUID
	// MetadatumID — UUID определения поля
	MetadatumID uuid.UUID
	// MetadatumName — имя поля (денормализовано из metadata)
	MetadatumName string
	// IsFile — копия флага IsFile определения
	IsFile bool
	// MetadatasetID — UUID набора, которому принадлежит запись
	MetadatasetID uuid.UUID
	// FileID — UUID файла, привязанного к записи (для файловых полей,
	// назначается при коммите сабмишена)
	FileID *uuid.UUID
	// Value — значение поля (nil — значение не задано)
	Value *string
}
