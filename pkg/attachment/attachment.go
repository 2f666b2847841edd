package attachment

import (
	"context"
	"fmt"

	"github.com/ruslano69/tdtp-airtable/pkg/bind"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// Attachment - файл для поля-вложения строки.
// Идентификатор записи определяется через строку.
type Attachment struct {
	FilePath string
	Field    string
	Row      *bind.BoundRow

	Bucket string
	Key    string
}

// Upload размещает файл и добавляет его в поле записи строки
func (a Attachment) Upload(ctx context.Context, stager *Stager) (*table.Record, error) {
	if a.Row == nil {
		return nil, fmt.Errorf("attachment %s: no row", a.FilePath)
	}
	id, err := a.Row.RecordID(ctx)
	if err != nil {
		return nil, fmt.Errorf("attachment %s: %w", a.FilePath, err)
	}
	return stager.Attach(ctx, Request{
		Remote:   a.Row.Remote,
		RecordID: id,
		Field:    a.Field,
		FilePath: a.FilePath,
		Bucket:   a.Bucket,
		Key:      a.Key,
	})
}
