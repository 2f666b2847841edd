package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
	"github.com/ruslano69/tdtp-airtable/pkg/resilience"
	"github.com/ruslano69/tdtp-airtable/pkg/retry"
)

func newTestTable(t *testing.T, handler http.HandlerFunc) *Table {
	t.Helper()
	return newTestTableWith(t, handler, nil)
}

func newTestTableWith(t *testing.T, handler http.HandlerFunc, tune func(*adapters.Config)) *Table {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := adapters.DefaultConfig()
	cfg.BaseID = "appTEST"
	cfg.APIKey = "key"
	cfg.Endpoint = srv.URL
	cfg.Retry = retry.EnableRetry(3, time.Millisecond)
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	if tune != nil {
		tune(&cfg)
	}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	tbl, err := client.Table("My Table")
	require.NoError(t, err)
	return tbl
}

func TestGetAllPaginates(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "/appTEST/My Table", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))

		switch r.URL.Query().Get("offset") {
		case "":
			fmt.Fprint(w, `{"records":[{"id":"rec00000000000001","createdTime":"2024-01-01T00:00:00.000Z","fields":{"b":1,"a":"x"}}],"offset":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"records":[{"id":"rec00000000000002","fields":{}}]}`)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := tbl.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"b", "a"}, records[0].Fields.Keys())
	b, _ := records[0].Fields.Get("b")
	assert.Equal(t, int64(1), b)
	assert.Equal(t, 0, records[1].Fields.Len())
}

func TestSearchUsesFormula(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `{Name}="O\"Brien"`, r.URL.Query().Get("filterByFormula"))
		fmt.Fprint(w, `{"records":[]}`)
	})

	records, err := tbl.Search(context.Background(), "Name", `O"Brien`)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestInsertSendsOrderedFields(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"fields":{"z":1,"a":"v"},"typecast":true}`, string(body))
		assert.Contains(t, string(body), `{"z":1,"a":"v"}`)
		fmt.Fprint(w, `{"id":"rec00000000000003","fields":{"z":1,"a":"v"}}`)
	})

	rec, err := tbl.Insert(context.Background(), table.FieldsOf("z", uint8(1), "a", "v"), true)
	require.NoError(t, err)
	assert.Equal(t, "rec00000000000003", rec.ID)
}

func TestUpdateAndDelete(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appTEST/My Table/rec00000000000004", r.URL.Path)
		switch r.Method {
		case http.MethodPatch:
			var req map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_, hasTypecast := req["typecast"]
			assert.False(t, hasTypecast)
			fmt.Fprint(w, `{"id":"rec00000000000004","fields":{"n":2}}`)
		case http.MethodDelete:
			fmt.Fprint(w, `{"id":"rec00000000000004","deleted":true}`)
		}
	})

	rec, err := tbl.Update(context.Background(), "rec00000000000004", table.FieldsOf("n", 2), false)
	require.NoError(t, err)
	n, _ := rec.Fields.Get("n")
	assert.Equal(t, int64(2), n)

	res, err := tbl.Delete(context.Background(), "rec00000000000004")
	require.NoError(t, err)
	assert.True(t, res.Deleted)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"not found", 404, `{"error":"NOT_FOUND"}`, adapters.ErrNotFound},
		{"unknown field", 422, `{"error":{"type":"UNKNOWN_FIELD_NAME","message":"Unknown field name: \"x\""}}`, adapters.ErrRejected},
		{"bad request", 400, `{"error":{"type":"INVALID_REQUEST_UNKNOWN"}}`, adapters.ErrRejected},
		{"auth", 401, `{"error":{"type":"AUTHENTICATION_REQUIRED"}}`, adapters.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := tbl.Get(context.Background(), "rec00000000000005")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "%v should be %v", err, tt.target)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":"rec00000000000006","fields":{}}`)
	})

	rec, err := tbl.Get(context.Background(), "rec00000000000006")
	require.NoError(t, err)
	assert.Equal(t, "rec00000000000006", rec.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInsertNotRetriedOnServerError(t *testing.T) {
	var posts int32
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if atomic.AddInt32(&posts, 1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		fmt.Fprint(w, `{"id":"rec0000000000000a","fields":{"a":1}}`)
	})

	_, err := tbl.Insert(context.Background(), table.FieldsOf("a", 1), true)
	require.Error(t, err)
	assert.True(t, adapters.IsTransport(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts), "record may already exist after 5xx")
}

func TestInsertRetriedOnRateLimit(t *testing.T) {
	var posts int32
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&posts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id":"rec0000000000000b","fields":{"a":1}}`)
	})

	rec, err := tbl.Insert(context.Background(), table.FieldsOf("a", 1), true)
	require.NoError(t, err)
	assert.Equal(t, "rec0000000000000b", rec.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&posts))
}

func TestRateLimitExhausted(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"errors":[{"error":"RATE_LIMIT_REACHED"}]}`)
	})

	_, err := tbl.Update(context.Background(), "rec00000000000007", table.FieldsOf("a", 1), true)
	require.Error(t, err)
	assert.True(t, adapters.IsTransport(err))
	assert.False(t, adapters.IsRejected(err))
}

func TestCircuitOpensAfterRepeatedTransportFailures(t *testing.T) {
	var calls int32
	tbl := newTestTableWith(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(cfg *adapters.Config) {
		cfg.Breaker.MaxFailures = 2
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := tbl.Get(ctx, "rec00000000000008")
		require.Error(t, err)
		assert.False(t, errors.Is(err, resilience.ErrCircuitOpen))
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))

	_, err := tbl.Get(ctx, "rec00000000000008")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.True(t, adapters.IsTransport(err))
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls), "open circuit must not send requests")
}

func TestRejectedRequestsDoNotOpenCircuit(t *testing.T) {
	var calls int32
	tbl := newTestTableWith(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":{"type":"INVALID_VALUE_FOR_COLUMN"}}`)
	}, func(cfg *adapters.Config) {
		cfg.Breaker.MaxFailures = 1
	})

	for i := 0; i < 3; i++ {
		_, err := tbl.Update(context.Background(), "rec00000000000009", table.FieldsOf("a", 1), true)
		assert.True(t, adapters.IsRejected(err))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := adapters.Config{BaseID: "app", APIKey: "k", Endpoint: srv.URL, Table: "T"}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	tbl, err := client.Table("T")
	require.NoError(t, err)

	_, err = tbl.GetAll(context.Background())
	require.Error(t, err)
	assert.True(t, adapters.IsTransport(err))
}

func TestEmptyIDIsNotFound(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := tbl.Update(context.Background(), "", table.FieldsOf("a", 1), true)
	assert.True(t, adapters.IsNotFound(err))
}

func TestEqualsFormula(t *testing.T) {
	tests := []struct {
		field string
		value any
		want  string
	}{
		{"n", int16(42), `{n}=42`},
		{"x", 1.5, `{x}=1.5`},
		{"ok", true, `{ok}=TRUE()`},
		{"s", `a\b`, `{s}="a\\b"`},
		{"e", nil, `{e}=BLANK()`},
		{"Start date", "v", `{Start date}="v"`},
	}
	for _, tt := range tests {
		got, err := EqualsFormula(tt.field, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSearchRejectsUnreferencableField(t *testing.T) {
	tbl := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for _, field := range []string{"", "a}b"} {
		_, err := tbl.Search(context.Background(), field, "v")
		require.Error(t, err)
		assert.True(t, adapters.IsRejected(err), "%q: %v", field, err)
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(adapters.Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = NewClient(adapters.Config{BaseID: "app"})
	assert.Error(t, err)

	assert.True(t, adapters.IsRegistered("airtable"))
}
