package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disklab/disksync/internal/diskapi"
	"github.com/disklab/disksync/internal/timesync"
	"github.com/disklab/disksync/internal/utils"
)

// diskAPI is the SDK surface the remote store needs.
type diskAPI interface {
	EnsureFolder(ctx context.Context, path string) error
	ListFolder(ctx context.Context, path string) ([]diskapi.Resource, error)
	Delete(ctx context.Context, path string) error
	TransferURL(ctx context.Context, path string, dir diskapi.TransferDirection) (string, error)
}

// RemoteStore manages one folder of the cloud disk through the API client.
// Listings report corrected modification times; transfers run the two-step
// protocol (resolve an href, then move bytes).
type RemoteStore struct {
	api    diskAPI
	folder string
	offset int64
}

// NewRemoteStore opens the remote folder adapter, ensuring the folder exists.
// An ensure failure at construction is logged, not fatal: the folder is
// lazily re-ensured whenever a later call reports it missing.
func NewRemoteStore(ctx context.Context, api diskAPI, folder string, offset int64) *RemoteStore {
	if err := api.EnsureFolder(ctx, folder); err != nil {
		slog.Error("remote folder check failed, will retry during sync", "folder", folder, "error", err)
	}
	return &RemoteStore{api: api, folder: folder, offset: offset}
}

// Folder returns the remote folder name.
func (r *RemoteStore) Folder() string {
	return r.folder
}

func (r *RemoteStore) objectPath(name string) string {
	return r.folder + "/" + name
}

// List returns the snapshot of the remote folder. Items tagged as non-file
// or carrying the reserved prefix are excluded. A missing folder is
// re-ensured before the error surfaces, so the restarted pass finds it.
func (r *RemoteStore) List(ctx context.Context) (Snapshot, error) {
	items, err := r.api.ListFolder(ctx, r.folder)
	if err != nil {
		if errors.Is(err, diskapi.ErrFolderNotFound) {
			r.reensure(ctx)
		}
		return nil, err
	}

	snap := make(Snapshot, len(items))
	for _, item := range items {
		if item.Type != diskapi.ResourceFile || strings.HasPrefix(item.Name, ReservedPrefix) {
			slog.Debug("skipping non-syncable remote item", "name", item.Name, "type", item.Type)
			continue
		}

		raw, err := timesync.ToUnix(item.Modified, true)
		if err != nil {
			slog.Error("remote item has unparsable timestamp, skipping", "name", item.Name, "error", err)
			continue
		}
		snap[item.Name] = timesync.Corrected(raw, r.offset)
	}

	return snap, nil
}

// Upload creates the remote object from the local file.
func (r *RemoteStore) Upload(ctx context.Context, localDir, name string) error {
	return r.push(ctx, localDir, name, "upload")
}

// Overwrite replaces the remote object with the local file.
func (r *RemoteStore) Overwrite(ctx context.Context, localDir, name string) error {
	return r.push(ctx, localDir, name, "overwrite remote")
}

func (r *RemoteStore) push(ctx context.Context, localDir, name, op string) error {
	if !utils.DirExists(localDir) {
		return &AccessError{Path: localDir, Err: errors.New("local directory missing")}
	}

	localPath := filepath.Join(localDir, name)
	if !utils.FileExists(localPath) {
		return fmt.Errorf("local file %q: %w", name, ErrNotFound)
	}

	href, err := r.api.TransferURL(ctx, r.objectPath(name), diskapi.TransferUpload)
	if err != nil {
		return r.classify(ctx, op, name, err)
	}

	if err := diskapi.UploadTo(ctx, href, localPath); err != nil {
		return r.classify(ctx, op, name, err)
	}

	slog.Info("remote file written", "name", name, "op", op)
	return nil
}

// Download creates the local file from the remote object.
func (r *RemoteStore) Download(ctx context.Context, localDir, name string) error {
	return r.pull(ctx, localDir, name, "download")
}

// OverwriteLocal replaces the local file with the remote object.
func (r *RemoteStore) OverwriteLocal(ctx context.Context, localDir, name string) error {
	return r.pull(ctx, localDir, name, "overwrite local")
}

func (r *RemoteStore) pull(ctx context.Context, localDir, name, op string) error {
	if !utils.DirExists(localDir) {
		return &AccessError{Path: localDir, Err: errors.New("local directory missing")}
	}

	href, err := r.api.TransferURL(ctx, r.objectPath(name), diskapi.TransferDownload)
	if err != nil {
		return r.classify(ctx, op, name, err)
	}

	if err := diskapi.DownloadFrom(ctx, href, filepath.Join(localDir, name)); err != nil {
		return r.classify(ctx, op, name, err)
	}

	slog.Info("local file written", "name", name, "op", op)
	return nil
}

// Delete removes the remote object. An already-absent object is a logged
// no-op.
func (r *RemoteStore) Delete(ctx context.Context, name string) error {
	snap, err := r.List(ctx)
	if err != nil {
		return err
	}

	if _, ok := snap[name]; !ok {
		slog.Info("remote object already absent, nothing to delete", "name", name)
		return nil
	}

	if err := r.api.Delete(ctx, r.objectPath(name)); err != nil {
		return r.classify(ctx, "delete", name, err)
	}

	slog.Info("remote file deleted", "name", name)
	return nil
}

// classify keeps structural errors (connectivity, auth, folder-missing)
// intact for the pass-level handler and folds everything else into a
// TransferError the engine logs and skips. Folder-missing additionally
// triggers the lazy re-ensure.
func (r *RemoteStore) classify(ctx context.Context, op, name string, err error) error {
	switch {
	case errors.Is(err, diskapi.ErrConnectivity), errors.Is(err, diskapi.ErrUnauthorized):
		return err
	case errors.Is(err, diskapi.ErrFolderNotFound):
		r.reensure(ctx)
		return err
	default:
		return &TransferError{Op: op, Name: name, Err: err}
	}
}

func (r *RemoteStore) reensure(ctx context.Context) {
	if err := r.api.EnsureFolder(ctx, r.folder); err != nil {
		slog.Error("remote folder recreate failed", "folder", r.folder, "error", err)
	}
}
