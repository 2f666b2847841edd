// Package attachment загружает локальные файлы в поля-вложения удаленной
// таблицы. Файл размещается в объектном хранилище, в запись передается
// временный подписанный URL, по которому сервис сам забирает файл.
package attachment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// KeyPrefix - префикс ключей, генерируемых DefaultKey
const KeyPrefix = "temp_imgs"

// BucketEnv - переменная окружения с bucket по умолчанию
const BucketEnv = "TEMP_FILES_BUCKET"

// Options - параметры размещения вложений
type Options struct {
	// Bucket - bucket по умолчанию
	Bucket string

	// URLLifetime - срок действия подписанного URL
	URLLifetime time.Duration

	// KeepOld - дописывать к существующим вложениям поля
	KeepOld bool

	// DeleteLocal - удалить локальный файл после обновления записи
	DeleteLocal bool

	// DeleteStaged - удалить объект из хранилища после обновления записи.
	// Сервис забирает файл асинхронно: объект может быть удален раньше.
	DeleteStaged bool

	// Typecast - передается в Update
	Typecast bool
}

// DefaultOptions: URL на 300 секунд, старые вложения сохраняются
func DefaultOptions() Options {
	return Options{
		Bucket:      os.Getenv(BucketEnv),
		URLLifetime: 300 * time.Second,
		KeepOld:     true,
		Typecast:    true,
	}
}

// Request - одно вложение
type Request struct {
	Remote   adapters.Table
	RecordID string
	Field    string
	FilePath string

	// Bucket / Key - пустые значения берутся из Options и DefaultKey
	Bucket string
	Key    string
}

// Stager выполняет размещение файлов и обновление записей
type Stager struct {
	store  ObjectStore
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewStager создает Stager
func NewStager(store ObjectStore, opts Options) *Stager {
	return &Stager{
		store:  store,
		opts:   opts,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// WithLogger задает логгер
func (s *Stager) WithLogger(logger zerolog.Logger) *Stager {
	s.logger = logger
	return s
}

// Attach загружает файл, подписывает URL и добавляет его в поле записи
func (s *Stager) Attach(ctx context.Context, req Request) (*table.Record, error) {
	if req.Remote == nil || req.RecordID == "" || req.Field == "" || req.FilePath == "" {
		return nil, fmt.Errorf("attach: remote, record id, field and file path are required")
	}
	bucket := req.Bucket
	if bucket == "" {
		bucket = s.opts.Bucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("attach: no bucket (set %s or pass one)", BucketEnv)
	}
	key := req.Key
	if key == "" {
		key = DefaultKey(s.now(), filepath.Ext(req.FilePath))
	}

	log := s.logger.With().
		Str("table", req.Remote.Name()).
		Str("record_id", req.RecordID).
		Str("field", req.Field).
		Str("object", bucket+"/"+key).
		Logger()

	if err := s.store.UploadFile(ctx, req.FilePath, bucket, key); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, bucket, key, s.opts.URLLifetime)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	log.Debug().Msg("file staged")

	var attachments []any
	if s.opts.KeepOld {
		rec, err := req.Remote.Get(ctx, req.RecordID)
		if err != nil {
			return nil, fmt.Errorf("attach: %w", err)
		}
		if existing, ok := rec.Fields.Get(req.Field); ok {
			if list, ok := existing.([]any); ok {
				attachments = append(attachments, list...)
			}
		}
	}
	attachments = append(attachments, map[string]any{"url": url})

	rec, err := req.Remote.Update(ctx, req.RecordID, table.FieldsOf(req.Field, attachments), s.opts.Typecast)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	log.Info().Int("attachments", len(attachments)).Msg("attachment added")

	if s.opts.DeleteLocal {
		if err := os.Remove(req.FilePath); err != nil {
			log.Warn().Err(err).Str("path", req.FilePath).Msg("failed to delete local file")
		}
	}
	if s.opts.DeleteStaged {
		if err := s.store.DeleteObject(ctx, bucket, key); err != nil {
			log.Warn().Err(err).Msg("failed to delete staged object")
		}
	}
	return rec, nil
}

// DefaultKey - temp_imgs/<локальное время ISO 8601, ':' и '.' заменены на '_'><ext>.
// Пустое расширение заменяется на .png.
func DefaultKey(now time.Time, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	stamp := now.Format("2006-01-02T15:04:05.000000")
	stamp = strings.NewReplacer(":", "_", ".", "_").Replace(stamp)
	return KeyPrefix + "/" + stamp + ext
}
