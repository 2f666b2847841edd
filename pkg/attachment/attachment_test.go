package attachment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters/memory"
	"github.com/ruslano69/tdtp-airtable/pkg/bind"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func fixedStager(store ObjectStore, opts Options) *Stager {
	s := NewStager(store, opts)
	s.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.Local) }
	return s
}

func TestDefaultKey(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.Local)
	assert.Equal(t, "temp_imgs/2024-03-05T14_07_09_123456.png", DefaultKey(now, ""))
	assert.Equal(t, "temp_imgs/2024-03-05T14_07_09_123456.pdf", DefaultKey(now, "pdf"))
	assert.Equal(t, "temp_imgs/2024-03-05T14_07_09_123456.jpg", DefaultKey(now, ".jpg"))
}

func TestAttachKeepsOldAttachments(t *testing.T) {
	ctx := context.Background()
	remote := memory.New("Experiments")
	rec := remote.Seed(table.FieldsOf(
		"Name", "alpha",
		"Plots", []any{map[string]any{"id": "att1", "url": "https://old"}},
	))[0]

	store := NewMemoryStore()
	opts := DefaultOptions()
	opts.Bucket = "bucket"
	path := writeFile(t, "plot.png", "PNGDATA")

	updated, err := fixedStager(store, opts).Attach(ctx, Request{
		Remote: remote, RecordID: rec.ID, Field: "Plots", FilePath: path,
	})
	require.NoError(t, err)

	plots, _ := updated.Fields.Get("Plots")
	list, ok := plots.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "att1", list[0].(map[string]any)["id"])
	assert.Equal(t, "memory://bucket/temp_imgs/2024-03-05T14_07_09_123456.png", list[1].(map[string]any)["url"])

	data, err := store.ReadObject("bucket", "temp_imgs/2024-03-05T14_07_09_123456.png")
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))

	_, err = os.Stat(path)
	assert.NoError(t, err, "local file kept by default")
}

func TestAttachReplaceAndCleanup(t *testing.T) {
	ctx := context.Background()
	remote := memory.New("Experiments")
	rec := remote.Seed(table.FieldsOf(
		"Plots", []any{map[string]any{"url": "https://old"}},
	))[0]

	store := NewMemoryStore()
	opts := DefaultOptions()
	opts.Bucket = "bucket"
	opts.KeepOld = false
	opts.DeleteLocal = true
	opts.DeleteStaged = true
	path := writeFile(t, "report.csv", "a,b")

	updated, err := fixedStager(store, opts).Attach(ctx, Request{
		Remote: remote, RecordID: rec.ID, Field: "Plots", FilePath: path, Key: "custom/key.csv",
	})
	require.NoError(t, err)

	plots, _ := updated.Fields.Get("Plots")
	assert.Len(t, plots, 1)
	assert.Equal(t, 0, remote.Calls(memory.OpGet))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, store.Exists("bucket", "custom/key.csv"))
}

func TestAttachRequiresBucket(t *testing.T) {
	remote := memory.New("T")
	rec := remote.Seed(table.FieldsOf("a", 1))[0]
	opts := DefaultOptions()
	opts.Bucket = ""

	_, err := NewStager(NewMemoryStore(), opts).Attach(context.Background(), Request{
		Remote: remote, RecordID: rec.ID, Field: "f", FilePath: writeFile(t, "x.png", "x"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), BucketEnv)
}

func TestAttachmentResolvesThroughRow(t *testing.T) {
	ctx := context.Background()
	remote := memory.New("Experiments")
	rec := remote.Seed(table.FieldsOf("Name", "alpha"))[0]

	row := bind.NewRow(table.NewRow(table.FieldsOf("Name", "alpha")), remote, bind.DefaultOptions())
	opts := DefaultOptions()
	opts.Bucket = "b"

	att := Attachment{FilePath: writeFile(t, "fig.png", "img"), Field: "Figure", Row: row}
	updated, err := att.Upload(ctx, fixedStager(NewMemoryStore(), opts))
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.True(t, updated.Fields.Has("Figure"))
	assert.Equal(t, 1, remote.Calls(memory.OpSearch))
}

func TestS3StorePresignAndDelete(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted = r.URL.Path
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), S3Config{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	url, err := store.PresignedURL(context.Background(), "bucket", "temp_imgs/a.png", 300*time.Second)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, srv.URL+"/bucket/temp_imgs/a.png?"), url)
	assert.Contains(t, url, "X-Amz-Expires=300")

	require.NoError(t, store.DeleteObject(context.Background(), "bucket", "temp_imgs/a.png"))
	assert.Equal(t, "/bucket/temp_imgs/a.png", deleted)
}
