package airtable

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// Table - одна таблица базы Airtable
type Table struct {
	client *Client
	name   string
}

var _ adapters.Table = (*Table)(nil)

type listResponse struct {
	Records []*table.Record `json:"records"`
	Offset  string          `json:"offset"`
}

type writeRequest struct {
	Fields   *table.Fields `json:"fields"`
	Typecast bool          `json:"typecast,omitempty"`
}

// Name возвращает имя таблицы
func (t *Table) Name() string {
	return t.name
}

// GetAll читает все записи постранично
func (t *Table) GetAll(ctx context.Context) ([]*table.Record, error) {
	return t.list(ctx, url.Values{})
}

// Search возвращает записи, у которых field равно value
func (t *Table) Search(ctx context.Context, field string, value any) ([]*table.Record, error) {
	formula, err := EqualsFormula(field, value)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("filterByFormula", formula)
	return t.list(ctx, query)
}

// Get читает запись по идентификатору
func (t *Table) Get(ctx context.Context, id string) (*table.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("get: empty record id: %w", adapters.ErrNotFound)
	}
	var rec table.Record
	if err := t.client.do(ctx, http.MethodGet, t.recordPath(id), nil, nil, &rec); err != nil {
		return nil, err
	}
	return normalize(&rec), nil
}

// Insert создает запись (POST)
func (t *Table) Insert(ctx context.Context, fields *table.Fields, typecast bool) (*table.Record, error) {
	var rec table.Record
	body := writeRequest{Fields: table.CoerceFields(fields), Typecast: typecast}
	if err := t.client.do(ctx, http.MethodPost, t.tablePath(), nil, body, &rec); err != nil {
		return nil, err
	}
	return normalize(&rec), nil
}

// Update частично обновляет запись (PATCH)
func (t *Table) Update(ctx context.Context, id string, fields *table.Fields, typecast bool) (*table.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("update: empty record id: %w", adapters.ErrNotFound)
	}
	var rec table.Record
	body := writeRequest{Fields: table.CoerceFields(fields), Typecast: typecast}
	if err := t.client.do(ctx, http.MethodPatch, t.recordPath(id), nil, body, &rec); err != nil {
		return nil, err
	}
	return normalize(&rec), nil
}

// Delete удаляет запись
func (t *Table) Delete(ctx context.Context, id string) (*adapters.DeleteResult, error) {
	if id == "" {
		return nil, fmt.Errorf("delete: empty record id: %w", adapters.ErrNotFound)
	}
	var res adapters.DeleteResult
	if err := t.client.do(ctx, http.MethodDelete, t.recordPath(id), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *Table) list(ctx context.Context, query url.Values) ([]*table.Record, error) {
	query.Set("pageSize", strconv.Itoa(pageSize))

	var records []*table.Record
	for {
		var page listResponse
		if err := t.client.do(ctx, http.MethodGet, t.tablePath(), query, nil, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			records = append(records, normalize(rec))
		}
		if page.Offset == "" {
			return records, nil
		}
		query.Set("offset", page.Offset)
	}
}

func (t *Table) tablePath() string {
	return url.PathEscape(t.name)
}

func (t *Table) recordPath(id string) string {
	return url.PathEscape(t.name) + "/" + url.PathEscape(id)
}

// normalize гарантирует непустой Fields (Airtable опускает пустые записи)
func normalize(rec *table.Record) *table.Record {
	if rec.Fields == nil {
		rec.Fields = table.NewFields()
	}
	return rec
}
