package identity

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/adapters/memory"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

func seeded(t *testing.T) (*memory.Table, []*table.Record) {
	t.Helper()
	remote := memory.New("Experiments")
	recs := remote.Seed(
		table.FieldsOf("Name", "alpha", "Score", 1),
		table.FieldsOf("Name", "beta", "Score", 2),
		table.FieldsOf("Name", "beta", "Score", 3),
	)
	return remote, recs
}

func TestResolveExplicitIDSkipsRemote(t *testing.T) {
	remote, _ := seeded(t)
	r := New(remote, "Name")

	row := table.NewRow(table.FieldsOf("Name", "alpha"))
	row.RecordID = "recEXPLICIT000001"

	id, err := r.Resolve(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "recEXPLICIT000001", id)
	assert.Equal(t, 0, remote.Calls(memory.OpSearch))
}

func TestResolveRecordLikeLabelSkipsRemote(t *testing.T) {
	remote, _ := seeded(t)
	r := New(remote, "Name")

	row := table.NewRow(table.FieldsOf("Name", "alpha"))
	row.Label = "recABCDEFGHIJKLMN"

	id, err := r.Resolve(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "recABCDEFGHIJKLMN", id)
	assert.Equal(t, 0, remote.Calls(memory.OpSearch))
}

func TestResolveByPrimaryKey(t *testing.T) {
	remote, recs := seeded(t)
	r := New(remote, "Name")

	row := table.NewRow(table.FieldsOf("Name", "alpha", "Score", 10))
	row.Label = "0"

	id, err := r.Resolve(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, recs[0].ID, id)
	assert.Equal(t, recs[0].ID, row.RecordID, "resolved id is cached on the row")

	_, err = r.Resolve(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.Calls(memory.OpSearch))
}

func TestResolveNotFound(t *testing.T) {
	remote, _ := seeded(t)
	r := New(remote, "Name")

	_, err := r.Resolve(context.Background(), table.NewRow(table.FieldsOf("Name", "gamma")))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolveAmbiguous(t *testing.T) {
	remote, recs := seeded(t)
	r := New(remote, "Name")

	row := table.NewRow(table.FieldsOf("Name", "beta"))
	_, err := r.Resolve(context.Background(), row)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmbiguousIdentity))

	var amb *AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, []string{recs[1].ID, recs[2].ID}, amb.IDs)
	assert.Empty(t, row.RecordID)
}

func TestResolveMissingPrimaryKeyValue(t *testing.T) {
	remote, _ := seeded(t)
	r := New(remote, "Name")

	_, err := r.Resolve(context.Background(), table.NewRow(table.FieldsOf("Score", 1)))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.Resolve(context.Background(), table.NewRow(table.FieldsOf("Name", math.NaN())))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 0, remote.Calls(memory.OpSearch))
}

func TestPrimaryKeyPrecedence(t *testing.T) {
	remote, recs := seeded(t)

	// row override wins over resolver key
	row := table.NewRow(table.FieldsOf("Name", "beta", "Score", 1))
	row.PrimaryKey = "Score"
	id, err := New(remote, "Name").Resolve(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, recs[0].ID, id)

	// no key configured: first field of the row
	row = table.NewRow(table.FieldsOf("Score", 2, "Name", "zzz"))
	id, err = New(remote, "").Resolve(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, recs[1].ID, id)
}

func TestLookupReportsOnLogger(t *testing.T) {
	remote, recs := seeded(t)
	var buf bytes.Buffer
	r := New(remote, "Name", WithLogger(zerolog.New(&buf)))

	id, err := r.Lookup(context.Background(), "Name", "alpha")
	require.NoError(t, err)
	assert.Equal(t, recs[0].ID, id)

	id, err = r.Lookup(context.Background(), "Name", "beta")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Contains(t, buf.String(), "more than one record matches")

	buf.Reset()
	id, err = r.Lookup(context.Background(), "Name", "gamma")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Contains(t, buf.String(), "no record matches")
}

type failingTable struct {
	*memory.Table
}

func (f failingTable) Search(ctx context.Context, field string, value any) ([]*table.Record, error) {
	return nil, adapters.ErrTransport
}

func TestLookupPropagatesRemoteFailure(t *testing.T) {
	r := New(failingTable{memory.New("T")}, "Name")
	_, err := r.Lookup(context.Background(), "Name", "x")
	assert.True(t, adapters.IsTransport(err))
}
