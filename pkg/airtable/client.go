// Package airtable реализует adapters.Table поверх Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/resilience"
	"github.com/ruslano69/tdtp-airtable/pkg/retry"
)

// DefaultEndpoint - базовый URL публичного API
const DefaultEndpoint = "https://api.airtable.com/v0"

// pageSize - максимальный размер страницы list запроса
const pageSize = 100

func init() {
	adapters.Register("airtable", func(cfg adapters.Config) (adapters.Table, error) {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client.Table(cfg.Table)
	})
}

// Client - HTTP клиент одной базы Airtable
type Client struct {
	endpoint string
	baseID   string
	apiKey   string
	http     *http.Client
	retryer  *retry.Retryer
	breaker  *resilience.CircuitBreaker
	logger   zerolog.Logger
}

// Option - опция клиента
type Option func(*Client)

// WithHTTPClient подменяет http.Client (тесты, прокси)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger задает логгер для сообщений о повторах
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient создает клиент по конфигурации adapters
func NewClient(cfg adapters.Config, opts ...Option) (*Client, error) {
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("airtable: base id is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("airtable: api key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		baseID:   cfg.BaseID,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	retryCfg := cfg.Retry
	retryCfg.IsRetryable = isRetryable
	userHook := retryCfg.OnRetry
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Debug().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying airtable request")
		if userHook != nil {
			userHook(attempt, err, delay)
		}
	}

	retryer, err := retry.NewRetryer(retryCfg)
	if err != nil {
		return nil, fmt.Errorf("airtable: %w", err)
	}
	c.retryer = retryer

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = adapters.IsTransport
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		c.logger.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
	breaker, err := resilience.New(breakerCfg)
	if err != nil {
		return nil, fmt.Errorf("airtable: %w", err)
	}
	c.breaker = breaker
	return c, nil
}

// Table возвращает таблицу базы по имени или идентификатору
func (c *Client) Table(name string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("airtable: table name is required")
	}
	return &Table{client: c, name: name}, nil
}

// do выполняет запрос с retry внутри circuit breaker.
// body сериализуется один раз, reader создается на каждую попытку.
// Неидемпотентные запросы повторяются только после 429.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("airtable: failed to encode request: %w", err)
		}
	}

	u := c.endpoint + "/" + url.PathEscape(c.baseID) + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retryer.Do(ctx, func(ctx context.Context) error {
			err := c.attempt(ctx, method, u, path, payload, out)
			if err != nil && !idempotent(method) && !isRateLimited(err) {
				// POST мог создать запись до ошибки: повтор дал бы дубликат
				return retry.Permanent(err)
			}
			return err
		})
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("airtable %s %s: %w: %w", method, path, adapters.ErrTransport, err)
	}
	return err
}

// attempt - одна HTTP попытка
func (c *Client) attempt(ctx context.Context, method, u, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("airtable: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("airtable %s %s: %w: %w", method, path, adapters.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("airtable %s %s: read body: %w: %w", method, path, adapters.ErrTransport, err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retry.Permanent(fmt.Errorf("airtable %s %s: decode response: %w: %w",
			method, path, adapters.ErrTransport, err))
	}
	return nil
}
