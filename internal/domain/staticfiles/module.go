package staticfiles

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
)

// Options configures a Module (§4.11).
type Options struct {
	Root            string
	URLPrefix       string
	CacheTTL        time.Duration // zero disables TTL-based expiry
	Limits          Limits
	AutoIndex       bool
	DefaultDocument string
	Logger          *slog.Logger
}

// Module serves files rooted at Options.Root under Options.URLPrefix, with
// an in-memory Cache kept coherent by a filesystem watcher.
type Module struct {
	opts    Options
	cache   *Cache
	watcher *fsnotify.Watcher

	autoIndexMu sync.Mutex
	autoIndex   map[string]string

	closeOnce sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewModule constructs a Module and starts its filesystem watcher. Callers
// must call Close to release the watcher.
func NewModule(opts Options) (*Module, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("staticfiles: create watcher: %w", err)
	}
	if err := watcher.Add(opts.Root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("staticfiles: watch root %s: %w", opts.Root, err)
	}

	m := &Module{
		opts:      opts,
		cache:     NewCache(opts.Limits),
		watcher:   watcher,
		autoIndex: make(map[string]string),
		stopCh:    make(chan struct{}),
	}
	m.wg.Add(1)
	go m.watchLoop()
	return m, nil
}

// CacheStats reports the current entry count and aggregate byte size held
// by the module's cache, the source for the static_cache_entries/
// static_cache_bytes metrics gauges.
func (m *Module) CacheStats() (entries int, bytes int64) {
	return m.cache.Stats()
}

// Close stops the watcher goroutine and releases its resources.
func (m *Module) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
	return m.watcher.Close()
}

func (m *Module) watchLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			// Treat a watcher error as cache poisoning: a partial
			// reconciliation could serve stale content indefinitely.
			m.opts.Logger.Warn("static file watcher error, clearing cache", "error", err)
			m.cache.Clear()
			m.clearAutoIndex()
		}
	}
}

func (m *Module) handleEvent(event fsnotify.Event) {
	m.cache.Invalidate(event.Name)
	m.clearAutoIndexFor(filepath.Dir(event.Name))
}

func (m *Module) clearAutoIndex() {
	m.autoIndexMu.Lock()
	defer m.autoIndexMu.Unlock()
	m.autoIndex = make(map[string]string)
}

func (m *Module) clearAutoIndexFor(dir string) {
	m.autoIndexMu.Lock()
	defer m.autoIndexMu.Unlock()
	delete(m.autoIndex, dir)
}

// ServeResult is the outcome of resolving a request against the module.
type ServeResult struct {
	NotFound     bool
	NotModified  bool
	Entry        *Entry
	FilePath     string // set when the file is too large to cache and must stream from disk
	IsAutoIndex  bool
	AutoIndexDoc string
}

// Resolve implements the per-request algorithm in §4.11: path resolution
// and traversal rejection, directory default-document/auto-index handling,
// cache lookup with conditional-request support, and population on miss.
func (m *Module) Resolve(urlPath, ifNoneMatch, ifModifiedSince string) (ServeResult, error) {
	fsPath, err := ResolvePath(m.opts.Root, m.opts.URLPrefix, urlPath)
	if err != nil {
		return ServeResult{NotFound: true}, nil
	}

	info, statErr := os.Stat(fsPath)
	if statErr != nil {
		return ServeResult{NotFound: true}, nil
	}

	if info.IsDir() {
		return m.resolveDirectory(fsPath, urlPath)
	}

	return m.resolveFile(fsPath, info, ifNoneMatch, ifModifiedSince)
}

func (m *Module) resolveDirectory(dirPath, urlPath string) (ServeResult, error) {
	if m.opts.DefaultDocument != "" {
		defPath := filepath.Join(dirPath, m.opts.DefaultDocument)
		if info, err := os.Stat(defPath); err == nil && !info.IsDir() {
			res, err := m.resolveFile(defPath, info, "", "")
			return res, err
		}
	}
	if !m.opts.AutoIndex {
		return ServeResult{NotFound: true}, nil
	}

	m.autoIndexMu.Lock()
	cached, ok := m.autoIndex[dirPath]
	m.autoIndexMu.Unlock()
	if ok {
		return ServeResult{IsAutoIndex: true, AutoIndexDoc: cached}, nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return ServeResult{NotFound: true}, nil
	}
	doc := RenderAutoIndex(dirPath, urlPath, entries)

	m.autoIndexMu.Lock()
	m.autoIndex[dirPath] = doc
	m.autoIndexMu.Unlock()

	return ServeResult{IsAutoIndex: true, AutoIndexDoc: doc}, nil
}

func (m *Module) resolveFile(fsPath string, info os.FileInfo, ifNoneMatch, ifModifiedSince string) (ServeResult, error) {
	lastModified := info.ModTime().UTC()
	etag := WeakETag(info.Size(), lastModified)

	if IfNoneMatchSatisfied(ifNoneMatch, etag) || IfModifiedSinceSatisfied(ifModifiedSince, lastModified) {
		return ServeResult{NotModified: true}, nil
	}

	if entry, ok := m.cache.Get(fsPath); ok {
		if m.opts.CacheTTL != 0 && time.Now().UTC().After(entry.ExpiresUTC) {
			m.cache.Invalidate(fsPath)
		} else if entry.LastModifiedUTC.Equal(lastModified) {
			return ServeResult{Entry: entry}, nil
		}
	}

	if m.opts.Limits.MaxCachedFileBytes > 0 && info.Size() > m.opts.Limits.MaxCachedFileBytes {
		return ServeResult{FilePath: fsPath}, nil
	}

	f, err := os.Open(fsPath)
	if err != nil {
		return ServeResult{NotFound: true}, nil
	}
	defer f.Close()

	contentType, err := DetectContentType(fsPath, f)
	if err != nil {
		return ServeResult{}, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return ServeResult{}, err
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return ServeResult{}, err
	}

	var expires time.Time
	if m.opts.CacheTTL > 0 {
		expires = time.Now().UTC().Add(m.opts.CacheTTL)
	}

	entry := &Entry{
		Data:            data,
		Length:          info.Size(),
		ContentType:     contentType,
		ETag:            etag,
		LastModifiedUTC: lastModified,
		ExpiresUTC:      expires,
	}
	if err := m.cache.Put(fsPath, entry); err != nil {
		m.opts.Logger.Debug("static file too large to cache",
			"path", fsPath, "size", humanize.Bytes(uint64(info.Size())))
		return ServeResult{FilePath: fsPath}, nil
	}
	return ServeResult{Entry: entry}, nil
}
