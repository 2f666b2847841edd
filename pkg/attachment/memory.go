package attachment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// MemoryStore - ObjectStore в памяти (go-billy memfs).
// Объекты лежат по пути bucket/key, URL имеют вид memory://bucket/key.
type MemoryStore struct {
	fs billy.Filesystem
}

// NewMemoryStore создает пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fs: memfs.New()}
}

// UploadFile копирует локальный файл в хранилище
func (m *MemoryStore) UploadFile(ctx context.Context, localPath, bucket, key string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := m.fs.Create(path.Join(bucket, key))
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// PresignedURL возвращает memory:// URL существующего объекта
func (m *MemoryStore) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if !m.Exists(bucket, key) {
		return "", fmt.Errorf("memory://%s/%s: object not found", bucket, key)
	}
	return "memory://" + path.Join(bucket, key), nil
}

// DeleteObject удаляет объект
func (m *MemoryStore) DeleteObject(ctx context.Context, bucket, key string) error {
	return m.fs.Remove(path.Join(bucket, key))
}

// Exists проверяет наличие объекта
func (m *MemoryStore) Exists(bucket, key string) bool {
	_, err := m.fs.Stat(path.Join(bucket, key))
	return err == nil
}

// ReadObject возвращает содержимое объекта
func (m *MemoryStore) ReadObject(bucket, key string) ([]byte, error) {
	f, err := m.fs.Open(path.Join(bucket, key))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
