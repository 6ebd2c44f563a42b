// Package extractor implements the Tool Extractor: on first run of a
// self-contained binary, it unpacks embedded auxiliary tool binaries into a
// user-scoped cache keyed by bundle version.
//
// It generalizes codeNERD's MangleWatcher (internal/core/mangle_watcher.go),
// which used fsnotify plus a debounce map to coordinate concurrent writers
// to a shared directory. Here the coordination target is a single version
// file and a lock file guarding first-run extraction, rather than a
// directory of hot-reloaded source files.
package extractor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

// Asset is the embedded bundle of auxiliary tool binaries. Production
// callers implement it over a go:embed embed.FS; tests use an in-memory
// fake.
type Asset interface {
	// Names lists the bundled tool names.
	Names() []string
	// Open returns a reader for the named asset's bytes.
	Open(name string) (io.ReadCloser, error)
}

const versionFileName = ".version"
const lockFileName = ".lock"

// Extractor unpacks Asset into CacheRoot, keyed by Version.
type Extractor struct {
	CacheRoot string
	Assets    Asset
	Version   string

	// LockTimeout bounds how long EnsureExtracted waits on a concurrent
	// extractor's lock before giving up (extraction_timeout config).
	LockTimeout time.Duration
}

// EnsureExtracted makes sure every asset is present at its current version
// under CacheRoot, returning a name -> path map. If the on-disk version file
// already matches Version, this is a fast no-op reading the existing paths.
func (e *Extractor) EnsureExtracted(ctx context.Context) (map[string]string, error) {
	if err := os.MkdirAll(e.CacheRoot, 0o755); err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "create extraction cache root")
	}

	if e.versionMatches() {
		return e.paths(), nil
	}

	release, err := e.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-check after acquiring the lock: another process may have finished
	// extraction while we waited.
	if e.versionMatches() {
		return e.paths(), nil
	}

	for _, name := range e.Assets.Names() {
		if err := e.extractOne(name); err != nil {
			return nil, err
		}
	}

	if err := e.writeVersionFile(); err != nil {
		return nil, err
	}

	return e.paths(), nil
}

func (e *Extractor) versionFilePath() string {
	return filepath.Join(e.CacheRoot, versionFileName)
}

func (e *Extractor) versionMatches() bool {
	raw, err := os.ReadFile(e.versionFilePath())
	if err != nil {
		return false
	}
	return string(raw) == e.Version
}

func (e *Extractor) writeVersionFile() error {
	tmp, err := os.CreateTemp(e.CacheRoot, versionFileName+".*")
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "create temp version file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(e.Version); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "write temp version file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "close temp version file")
	}
	if err := os.Rename(tmpPath, e.versionFilePath()); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "rename temp version file into place")
	}
	return nil
}

func (e *Extractor) extractOne(name string) error {
	src, err := e.Assets.Open(name)
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "open embedded asset %q", name)
	}
	defer src.Close()

	dest := filepath.Join(e.CacheRoot, name)
	tmp, err := os.CreateTemp(e.CacheRoot, name+".*")
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "create temp asset file for %q", name)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "copy embedded asset %q", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "close temp asset file for %q", name)
	}
	if err := os.Chmod(tmpPath, 0o755); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "set executable bit on %q", name)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "rename %q into cache", name)
	}
	return nil
}

func (e *Extractor) paths() map[string]string {
	out := make(map[string]string, len(e.Assets.Names()))
	for _, name := range e.Assets.Names() {
		out[name] = filepath.Join(e.CacheRoot, name)
	}
	return out
}

// acquireLock takes an exclusive file lock on the extraction cache, waiting
// via fsnotify on the lock file's removal if another process holds it. It
// returns a release func that must be deferred.
func (e *Extractor) acquireLock(ctx context.Context) (func(), error) {
	lockPath := filepath.Join(e.CacheRoot, lockFileName)

	deadline := time.Now().Add(e.timeout())
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, huskyerr.Wrap(huskyerr.KindIO, err, "create extraction lock")
		}

		if time.Now().After(deadline) {
			return nil, huskyerr.New(huskyerr.KindTimeout, "timed out waiting for extraction lock at %s", lockPath)
		}

		if err := waitForRemoval(ctx, lockPath, time.Until(deadline)); err != nil {
			return nil, err
		}
	}
}

// waitForRemoval blocks until lockPath is removed, ctx is cancelled, or
// timeout elapses, using fsnotify to avoid busy-polling.
func waitForRemoval(ctx context.Context, lockPath string, timeout time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "create lock watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(lockPath)); err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "watch lock directory")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name == lockPath && (ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0) {
				return nil
			}
		case <-timer.C:
			return huskyerr.New(huskyerr.KindTimeout, "timed out waiting for extraction lock release")
		case <-ctx.Done():
			return huskyerr.Wrap(huskyerr.KindInterrupted, ctx.Err(), "extraction lock wait cancelled")
		case <-time.After(50 * time.Millisecond):
			// Fall back to a short poll in case the fsnotify event was
			// missed (e.g. on filesystems with coarse event granularity).
			if _, err := os.Stat(lockPath); os.IsNotExist(err) {
				return nil
			}
		}
	}
}

func (e *Extractor) timeout() time.Duration {
	if e.LockTimeout <= 0 {
		return 30 * time.Second
	}
	return e.LockTimeout
}
