package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	bs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	if bs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, bs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestSave проверяет сохранение содержимого с подсчётом SHA-256.
func TestSave(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	content := []byte("Hello, World! Тестовые данные для проверки.")
	fileID := uuid.New()

	result, err := bs.Save(fileID, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	// Проверяем размер
	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	// Проверяем checksum
	expectedHash := sha256.Sum256(content)
	expectedChecksum := hex.EncodeToString(expectedHash[:])
	if result.Checksum != expectedChecksum {
		t.Errorf("checksum: ожидалось %s, получено %s", expectedChecksum, result.Checksum)
	}

	// Локатор — UUID файла
	if result.URI != fileID.String() {
		t.Errorf("URI: ожидалось %s, получено %s", fileID, result.URI)
	}

	// Проверяем содержимое
	f, err := bs.Open(result.URI)
	if err != nil {
		t.Fatalf("ошибка открытия blob-а: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ошибка чтения blob-а: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое blob-а не совпадает")
	}
}

// TestSave_Overwrite проверяет атомарное замещение содержимого
// при повторной загрузке того же файла.
func TestSave_Overwrite(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	fileID := uuid.New()
	if _, err := bs.Save(fileID, bytes.NewReader([]byte("первая версия"))); err != nil {
		t.Fatalf("ошибка первого сохранения: %v", err)
	}

	second := []byte("вторая версия")
	result, err := bs.Save(fileID, bytes.NewReader(second))
	if err != nil {
		t.Fatalf("ошибка повторного сохранения: %v", err)
	}

	f, err := bs.Open(result.URI)
	if err != nil {
		t.Fatalf("ошибка открытия blob-а: %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if !bytes.Equal(data, second) {
		t.Errorf("содержимое = %q, ожидается %q", data, second)
	}
}

// TestDelete проверяет удаление и идемпотентность повторного удаления.
func TestDelete(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	fileID := uuid.New()
	result, err := bs.Save(fileID, bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if err := bs.Delete(result.URI); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if bs.Exists(result.URI) {
		t.Error("blob существует после удаления")
	}

	// Повторное удаление — без ошибки
	if err := bs.Delete(result.URI); err != nil {
		t.Errorf("повторное удаление вернуло ошибку: %v", err)
	}
}

// TestOpen_NotFound проверяет ошибку при открытии отсутствующего blob-а.
func TestOpen_NotFound(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	if _, err := bs.Open(uuid.NewString()); err == nil {
		t.Error("Open() не вернул ошибку для отсутствующего blob-а")
	}
}

// TestSize проверяет получение размера blob-а.
func TestSize(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	content := []byte("двенадцать байт? нет")
	fileID := uuid.New()
	result, err := bs.Save(fileID, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	size, err := bs.Size(result.URI)
	if err != nil {
		t.Fatalf("ошибка получения размера: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("размер = %d, ожидается %d", size, len(content))
	}
}
