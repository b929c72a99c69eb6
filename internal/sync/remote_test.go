package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disklab/disksync/internal/diskapi"
)

// fakeDiskAPI implements diskAPI in memory; transfer hrefs point at an
// httptest server so the byte-moving helpers run for real.
type fakeDiskAPI struct {
	items       []diskapi.Resource
	listErr     error
	ensures     int
	ensureErr   error
	deleted     []string
	deleteErr   error
	href        string
	transferErr error
}

func (f *fakeDiskAPI) EnsureFolder(ctx context.Context, path string) error {
	f.ensures++
	return f.ensureErr
}

func (f *fakeDiskAPI) ListFolder(ctx context.Context, path string) ([]diskapi.Resource, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeDiskAPI) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return f.deleteErr
}

func (f *fakeDiskAPI) TransferURL(ctx context.Context, path string, dir diskapi.TransferDirection) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	return f.href, nil
}

func TestRemoteStoreList(t *testing.T) {
	api := &fakeDiskAPI{items: []diskapi.Resource{
		{Name: "a.txt", Modified: "2026-08-29T10:00:00+00:00", Type: diskapi.ResourceFile},
		{Name: "subdir", Modified: "2026-08-29T10:00:00+00:00", Type: diskapi.ResourceDir},
		{Name: "~partial.txt", Modified: "2026-08-29T10:00:00+00:00", Type: diskapi.ResourceFile},
	}}
	store := NewRemoteStore(context.Background(), api, "Backup", 3)

	snap, err := store.List(context.Background())
	require.NoError(t, err)

	require.Len(t, snap, 1)
	// 2026-08-29T10:00:00Z plus the clock offset
	assert.Equal(t, int64(1787997600+3), snap["a.txt"])
}

func TestRemoteStoreListFolderMissingReensures(t *testing.T) {
	api := &fakeDiskAPI{}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)
	ensuresBefore := api.ensures

	api.listErr = fmt.Errorf("list: %w", diskapi.ErrFolderNotFound)
	_, err := store.List(context.Background())

	assert.ErrorIs(t, err, diskapi.ErrFolderNotFound)
	assert.Equal(t, ensuresBefore+1, api.ensures)
}

func TestRemoteStoreUpload(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("payload"), 0o644))

	api := &fakeDiskAPI{href: srv.URL + "/up"}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)

	require.NoError(t, store.Upload(context.Background(), dir, "a.txt"))
	assert.Equal(t, "payload", string(gotBody))
}

func TestRemoteStoreUploadMissingFile(t *testing.T) {
	api := &fakeDiskAPI{}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)

	err := store.Upload(context.Background(), t.TempDir(), "ghost.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteStoreUploadMissingDir(t *testing.T) {
	api := &fakeDiskAPI{}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)

	err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "nope"), "a.txt")

	var accessErr *AccessError
	assert.ErrorAs(t, err, &accessErr)
}

func TestRemoteStoreDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "remote bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	api := &fakeDiskAPI{href: srv.URL + "/down"}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)

	require.NoError(t, store.Download(context.Background(), dir, "a.txt"))

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remote bytes", string(data))
}

func TestRemoteStoreClassify(t *testing.T) {
	api := &fakeDiskAPI{}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))

	t.Run("connectivity passes through", func(t *testing.T) {
		api.transferErr = fmt.Errorf("dial: %w", diskapi.ErrConnectivity)
		err := store.Upload(context.Background(), dir, "a.txt")
		assert.ErrorIs(t, err, diskapi.ErrConnectivity)
	})

	t.Run("auth passes through", func(t *testing.T) {
		api.transferErr = fmt.Errorf("status: %w", diskapi.ErrUnauthorized)
		err := store.Upload(context.Background(), dir, "a.txt")
		assert.ErrorIs(t, err, diskapi.ErrUnauthorized)
	})

	t.Run("folder missing reensures and passes through", func(t *testing.T) {
		ensuresBefore := api.ensures
		api.transferErr = fmt.Errorf("path: %w", diskapi.ErrFolderNotFound)

		err := store.Upload(context.Background(), dir, "a.txt")
		assert.ErrorIs(t, err, diskapi.ErrFolderNotFound)
		assert.Equal(t, ensuresBefore+1, api.ensures)
	})

	t.Run("anything else becomes a transfer error", func(t *testing.T) {
		api.transferErr = errors.New("boom")
		err := store.Upload(context.Background(), dir, "a.txt")

		var transferErr *TransferError
		require.ErrorAs(t, err, &transferErr)
		assert.Equal(t, "a.txt", transferErr.Name)
	})
}

func TestRemoteStoreDelete(t *testing.T) {
	api := &fakeDiskAPI{items: []diskapi.Resource{
		{Name: "a.txt", Modified: "2026-08-29T10:00:00+00:00", Type: diskapi.ResourceFile},
	}}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)

	require.NoError(t, store.Delete(context.Background(), "a.txt"))
	assert.Equal(t, []string{"Backup/a.txt"}, api.deleted)
}

func TestRemoteStoreDeleteAbsentIsNoop(t *testing.T) {
	api := &fakeDiskAPI{}
	store := NewRemoteStore(context.Background(), api, "Backup", 0)

	require.NoError(t, store.Delete(context.Background(), "ghost.txt"))
	assert.Empty(t, api.deleted)
}
