package adapters

import (
	"errors"
	"fmt"
)

// Классы ошибок удаленной таблицы. Конкретные backend оборачивают свои
// ошибки так, чтобы errors.Is различал эти классы.
var (
	// ErrNotFound - запись с указанным идентификатором не найдена
	ErrNotFound = errors.New("record not found")

	// ErrRejected - API отклонило содержимое запроса
	// (неизвестное поле, недопустимое значение для колонки).
	// Только этот класс включает поштучный fallback при robust записи.
	ErrRejected = errors.New("request rejected")

	// ErrTransport - сетевая ошибка, 5xx, исчерпан rate limit, ошибка авторизации
	ErrTransport = errors.New("transport failure")
)

// IsNotFound проверяет класс ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRejected проверяет класс ErrRejected
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsTransport проверяет класс ErrTransport
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// WriteMode - режим записи строки/таблицы в удаленную таблицу
type WriteMode string

const (
	// ModeInsert - создать новую запись
	ModeInsert WriteMode = "insert"

	// ModeUpdate - обновить существующую запись
	ModeUpdate WriteMode = "update"

	// ModeUpsert - обновить, при неудаче создать
	ModeUpsert WriteMode = "upsert"

	// ModeDelete - удалить запись
	ModeDelete WriteMode = "delete"
)

// ParseWriteMode разбирает режим записи
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case ModeInsert, ModeUpdate, ModeUpsert, ModeDelete:
		return WriteMode(s), nil
	default:
		return "", fmt.Errorf("unknown write mode '%s' (valid: insert, update, upsert, delete)", s)
	}
}
