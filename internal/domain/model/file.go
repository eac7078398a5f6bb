package model

import "github.com/google/uuid"

// File — загружаемый файл.
// Жизненный цикл: announced (объявлена контрольная сумма, данных нет) →
// uploaded (данные записаны) → frozen (сумма сверена, размер зафиксирован,
// файл неизменяем). Хранится в таблице files.
type File struct {
	// ID — UUID файла
	ID uuid.UUID
	// SiteID — человекочитаемый идентификатор файла
	SiteID string
	// Name — имя файла, выбранное пользователем; по нему метаданные
	// ссылаются на файл при отправке
	Name string
	// StorageURI — локатор данных в blob-хранилище (nil до загрузки)
	StorageURI *string
	// Checksum — объявленная SHA-256 контрольная сумма
	Checksum string
	// Filesize — размер в байтах, фиксируется при заморозке
	Filesize *int64
	// ContentUploaded — данные загружены и сверены с контрольной суммой
	ContentUploaded bool
	// UserID — UUID владельца
	UserID uuid.UUID
	// GroupID — UUID группы владельца
	GroupID uuid.UUID

	// RecordID — UUID записи метаданных, ссылающейся на файл
	// (nil, если файл ещё ни к чему не привязан)
	RecordID *uuid.UUID
	// SubmissionGroupID — UUID группы сабмишена, в который входит
	// ссылающийся набор метаданных (nil, если файл не отправлен)
	SubmissionGroupID *uuid.UUID
}

// WasSubmitted сообщает, входит ли файл в уже созданный сабмишен.
func (f *File) WasSubmitted() bool {
	return f.SubmissionGroupID != nil
}
