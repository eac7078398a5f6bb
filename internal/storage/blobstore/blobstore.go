// Пакет blobstore — хранение содержимого файлов на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету,
// чтение и удаление. Имя blob-а — UUID файла из реестра.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStore — управление содержимым файлов на диске.
type BlobStore struct {
	// dataDir — корневая директория хранения (MS_STORAGE_DIR)
	dataDir string
}

// SaveResult — результат сохранения содержимого на диск.
type SaveResult struct {
	// URI — локатор blob-а (относительный путь в dataDir)
	URI string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// New создаёт новый BlobStore. Проверяет и создаёт директорию
// если она не существует.
func New(dataDir string) (*BlobStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &BlobStore{dataDir: dataDir}, nil
}

// Save записывает данные из reader на диск с подсчётом SHA-256 на лету.
// Имя blob-а — UUID файла. Возвращает локатор, размер и checksum.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется. Повторная загрузка того же файла
// атомарно замещает прежнее содержимое.
func (bs *BlobStore) Save(fileID uuid.UUID, reader io.Reader) (*SaveResult, error) {
	name := fileID.String()
	fullPath := filepath.Join(bs.dataDir, name)
	tmpPath := fullPath + ".tmp"

	// Создаём temp файл
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		URI:      name,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает blob для чтения и возвращает io.ReadCloser.
// uri — локатор, полученный из Save.
// Вызывающий код обязан закрыть ReadCloser.
func (bs *BlobStore) Open(uri string) (*os.File, error) {
	f, err := os.Open(filepath.Join(bs.dataDir, uri))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob не найден: %s", uri)
		}
		return nil, fmt.Errorf("ошибка открытия blob-а %s: %w", uri, err)
	}

	return f, nil
}

// Delete удаляет blob с диска.
// Возвращает nil если blob уже не существует: каскадное удаление
// сабмишенов должно переживать отсутствующее содержимое.
func (bs *BlobStore) Delete(uri string) error {
	err := os.Remove(filepath.Join(bs.dataDir, uri))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления blob-а %s: %w", uri, err)
	}
	return nil
}

// Exists проверяет существование blob-а на диске.
func (bs *BlobStore) Exists(uri string) bool {
	_, err := os.Stat(filepath.Join(bs.dataDir, uri))
	return err == nil
}

// Size возвращает размер blob-а на диске.
func (bs *BlobStore) Size(uri string) (int64, error) {
	info, err := os.Stat(filepath.Join(bs.dataDir, uri))
	if err != nil {
		return 0, fmt.Errorf("ошибка получения информации о blob-е %s: %w", uri, err)
	}
	return info.Size(), nil
}

// DataDir возвращает путь к директории данных.
func (bs *BlobStore) DataDir() string {
	return bs.dataDir
}
