package airtable

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
)

// APIError - ответ API с кодом >= 400
type APIError struct {
	StatusCode int
	Type       string
	Message    string

	retryAfter time.Duration
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "airtable: %d", e.StatusCode)
	if e.Type != "" {
		b.WriteString(" " + e.Type)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// Is отображает HTTP статус на классы ошибок adapters
func (e *APIError) Is(target error) bool {
	switch target {
	case adapters.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case adapters.ErrRejected:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case adapters.ErrTransport:
		return e.StatusCode != http.StatusNotFound &&
			e.StatusCode != http.StatusBadRequest &&
			e.StatusCode != http.StatusUnprocessableEntity
	}
	return false
}

// Temporary - 429 и 5xx имеет смысл повторить
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfter - задержка из заголовка Retry-After (0 если нет)
func (e *APIError) RetryAfter() time.Duration {
	return e.retryAfter
}

// parseAPIError разбирает тело ошибки. Airtable отдает error либо объектом
// {"type","message"}, либо строкой ("NOT_FOUND").
func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var detail struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &detail); err == nil {
			apiErr.Type = detail.Type
			apiErr.Message = detail.Message
		} else {
			var s string
			if json.Unmarshal(payload.Error, &s) == nil {
				apiErr.Type = s
			}
		}
	} else if len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			apiErr.retryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

// isRetryable - классификатор для retry.Config
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// сетевые ошибки и таймауты
	return errors.Is(err, adapters.ErrTransport)
}

// isRateLimited - 429: запрос отклонен до выполнения
func isRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// idempotent - повтор запроса не создает новых записей
func idempotent(method string) bool {
	return method != http.MethodPost
}
