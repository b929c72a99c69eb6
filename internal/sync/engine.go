// Package sync implements the reconciliation engine keeping one flat local
// directory and one remote cloud-disk folder converged, driven by a
// persisted metadata cache of last-synchronized modification times.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/disklab/disksync/internal/diskapi"
	"github.com/disklab/disksync/internal/timesync"
)

// maxPassRestarts caps the folder/access-error recovery loop, so persistent
// storage failures cannot spin a pass forever.
const maxPassRestarts = 3

// LocalSource is the local store surface the engine drives.
type LocalSource interface {
	List() (Snapshot, error)
	Delete(name string) error
	Dir() string
}

// RemoteTarget is the remote store surface the engine drives.
type RemoteTarget interface {
	List(ctx context.Context) (Snapshot, error)
	Upload(ctx context.Context, localDir, name string) error
	Overwrite(ctx context.Context, localDir, name string) error
	Download(ctx context.Context, localDir, name string) error
	OverwriteLocal(ctx context.Context, localDir, name string) error
	Delete(ctx context.Context, name string) error
}

// Engine runs reconciliation passes. Its only state across passes is the
// cache contents plus the two most recent snapshots; snapshots are engine
// fields mutated by the step helpers rather than hidden globals.
type Engine struct {
	local  LocalSource
	remote RemoteTarget
	cache  *Cache
	offset int64
	now    func() int64

	muSync gosync.Mutex

	localInfo  Snapshot
	remoteInfo Snapshot
}

func NewEngine(local LocalSource, remote RemoteTarget, cache *Cache, offset int64) *Engine {
	return &Engine{
		local:      local,
		remote:     remote,
		cache:      cache,
		offset:     offset,
		now:        func() int64 { return timesync.CorrectedNow(offset) },
		localInfo:  make(Snapshot),
		remoteInfo: make(Snapshot),
	}
}

// Sync runs one reconciliation pass. Structural failures follow the
// pass-level policy: connectivity aborts quietly (the next scheduled pass
// retries), bad credentials abort loudly and surface, and folder-missing or
// local-directory-access errors restart the pass as a first pass — a
// bounded loop, so repeated failures cannot grow the stack or spin forever.
// Anything else is logged and swallowed; the scheduling loop never dies
// from a single bad pass.
func (e *Engine) Sync(ctx context.Context, firstPass bool) error {
	if !e.muSync.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	first := firstPass
	for attempt := 0; attempt <= maxPassRestarts; attempt++ {
		err := e.pass(ctx, first)

		var accessErr *AccessError
		switch {
		case err == nil:
			return nil

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err

		case errors.Is(err, diskapi.ErrConnectivity):
			slog.Error("sync pass aborted, connectivity error", "error", err)
			return nil

		case errors.Is(err, diskapi.ErrUnauthorized):
			slog.Error("sync pass aborted, credentials rejected", "error", err)
			return err

		case errors.Is(err, diskapi.ErrFolderNotFound) || errors.As(err, &accessErr):
			slog.Warn("storage missing or inaccessible, restarting as first pass", "attempt", attempt+1, "error", err)
			first = true

		default:
			slog.Error("sync pass failed", "errorType", fmt.Sprintf("%T", err), "error", err)
			return nil
		}
	}

	slog.Error("sync giving up after repeated storage failures", "restarts", maxPassRestarts)
	return nil
}

func (e *Engine) pass(ctx context.Context, first bool) error {
	slog.Info("sync pass starting", "dir", e.local.Dir(), "firstPass", first)

	localInfo, err := e.local.List()
	if err != nil {
		return err
	}
	e.localInfo = localInfo

	if e.cache.Len() == 0 && len(e.localInfo) > 0 {
		// first-ever run: treat everything already present locally as the
		// agreed baseline, preventing spurious uploads of pre-existing files
		slog.Info("seeding empty cache from local snapshot", "files", len(e.localInfo))
		e.cache.ReplaceAll(e.localInfo)
	}

	if first && len(e.localInfo) == 0 && e.cache.Len() > 0 {
		// empty local directory on a first pass: forget the old baseline so
		// the remote phase re-downloads everything
		slog.Info("local directory empty on first pass, clearing cache")
		e.cache.Clear()
	}

	if err := e.pushLocalChanges(ctx); err != nil {
		return err
	}

	if err := e.propagateLocalDeletes(ctx, first); err != nil {
		return err
	}

	if first {
		remoteInfo, err := e.remote.List(ctx)
		if err != nil {
			return err
		}
		e.remoteInfo = remoteInfo

		if err := e.pullRemoteChanges(ctx); err != nil {
			return err
		}

		if err := e.uploadMissingRemote(ctx); err != nil {
			return err
		}
	}

	slog.Info("sync pass complete", "local", len(e.localInfo), "remote", len(e.remoteInfo), "cached", e.cache.Len())
	return nil
}

// pushLocalChanges replicates local creations and modifications to the
// remote store: a file absent from the cache was never synchronized and is
// uploaded; a file newer than its cache entry is overwritten remotely.
func (e *Engine) pushLocalChanges(ctx context.Context) error {
	for _, name := range e.localInfo.Names() {
		mtime := e.localInfo[name]
		cached, ok := e.cache.Get(name)

		var err error
		switch {
		case !ok:
			err = e.transfer(ctx, name, e.remoteInfo, e.remote.Upload)
		case mtime > cached:
			err = e.transfer(ctx, name, e.remoteInfo, e.remote.Overwrite)
		}

		if err := e.perFile(name, err); err != nil {
			return err
		}
	}
	return nil
}

// propagateLocalDeletes removes remote objects whose cache entries no longer
// have a local file behind them. Skipped on first pass, where a cached name
// missing locally may still exist remotely and is handled by the remote
// phase instead.
func (e *Engine) propagateLocalDeletes(ctx context.Context, first bool) error {
	if first {
		return nil
	}

	for _, name := range e.cache.All().Names() {
		if _, ok := e.localInfo[name]; ok {
			continue
		}

		err := e.remote.Delete(ctx, name)
		if err == nil {
			e.cache.Remove(name)
			delete(e.remoteInfo, name)
			continue
		}
		if errors.Is(err, ErrNotFound) {
			// already gone on both sides, nothing left to reconcile
			e.cache.Remove(name)
			slog.Info("stale cache entry dropped", "name", name)
			continue
		}
		if err := e.perFile(name, err); err != nil {
			return err
		}
	}
	return nil
}

// pullRemoteChanges mirrors pushLocalChanges with remote as the source:
// uncached remote files are downloaded, remote files newer than their cache
// entry overwrite the local copy.
func (e *Engine) pullRemoteChanges(ctx context.Context) error {
	for _, name := range e.remoteInfo.Names() {
		mtime := e.remoteInfo[name]
		cached, ok := e.cache.Get(name)

		var err error
		switch {
		case !ok:
			err = e.transfer(ctx, name, e.localInfo, e.remote.Download)
		case mtime > cached:
			err = e.transfer(ctx, name, e.localInfo, e.remote.OverwriteLocal)
		}

		if err := e.perFile(name, err); err != nil {
			return err
		}
	}
	return nil
}

// uploadMissingRemote handles cached names absent from the remote listing on
// a first pass: they exist locally but were never uploaded. A name whose
// local file is also gone just drops out of the cache.
func (e *Engine) uploadMissingRemote(ctx context.Context) error {
	for _, name := range e.cache.All().Names() {
		if _, ok := e.remoteInfo[name]; ok {
			continue
		}

		err := e.remote.Upload(ctx, e.local.Dir(), name)
		if err == nil {
			// keep the local snapshot time: the upload re-establishes the
			// baseline rather than introducing a change
			t, ok := e.localInfo[name]
			if !ok {
				t = e.now()
			}
			e.remoteInfo[name] = t
			e.cache.Put(name, t)
			continue
		}
		if errors.Is(err, ErrNotFound) {
			e.cache.Remove(name)
			slog.Info("cached file missing on both sides, entry dropped", "name", name)
			continue
		}
		if err := e.perFile(name, err); err != nil {
			return err
		}
	}
	return nil
}

// transfer runs one store mutation and, on success, records the corrected
// transfer time in both the target snapshot and the cache. The cache write
// happens immediately, never batched, bounding crash loss to this one file.
func (e *Engine) transfer(ctx context.Context, name string, target Snapshot, op func(ctx context.Context, localDir, name string) error) error {
	if err := op(ctx, e.local.Dir(), name); err != nil {
		return err
	}

	t := e.now()
	target[name] = t
	e.cache.Put(name, t)
	return nil
}

// perFile applies the propagation policy: structural errors escape to the
// pass-level handler, everything else is logged and the pass moves on to
// the next file.
func (e *Engine) perFile(name string, err error) error {
	if err == nil {
		return nil
	}

	var accessErr *AccessError
	if errors.Is(err, diskapi.ErrConnectivity) ||
		errors.Is(err, diskapi.ErrUnauthorized) ||
		errors.Is(err, diskapi.ErrFolderNotFound) ||
		errors.As(err, &accessErr) {
		return err
	}

	slog.Error("file skipped", "name", name, "error", err)
	return nil
}
