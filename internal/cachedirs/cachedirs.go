package cachedirs

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Dirs are the cache directories handed to caching loaders and plugins.
type Dirs struct {
	HardSource  string
	Babel       string
	Terser      string
	CacheLoader string
}

// All returns every directory in a stable order.
func (d Dirs) All() []string {
	return []string{d.HardSource, d.Babel, d.Terser, d.CacheLoader}
}

// Manager creates the cache directories at most once and, for per process
// directories, removes them again on Release.
type Manager struct {
	root string
	pid  int

	mu      sync.Mutex
	created bool
	cleanup []string
}

// New creates a manager rooted at root (usually os.TempDir()). pid
// namespaces directories requested in dynamic mode.
func New(root string, pid int) *Manager {
	return &Manager{root: root, pid: pid}
}

// DirsFor returns the directory names for the static or per process id
// without touching the filesystem.
func (m *Manager) DirsFor(dynamic bool) Dirs {
	id := "static"
	if dynamic {
		id = strconv.Itoa(m.pid)
	}

	return Dirs{
		HardSource:  filepath.Join(m.root, "cache-hard-source-"+id),
		Babel:       filepath.Join(m.root, "cache-babel-"+id),
		Terser:      filepath.Join(m.root, "cache-terser-"+id),
		CacheLoader: filepath.Join(m.root, "cache-loader-"+id),
	}
}

// Acquire returns the cache directories, creating them on the first call.
// Later calls only compute names.
func (m *Manager) Acquire(dynamic bool) (Dirs, error) {
	dirs := m.DirsFor(dynamic)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.created {
		return dirs, nil
	}

	for _, dir := range dirs.All() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Dirs{}, err
		}
	}

	if dynamic {
		m.cleanup = dirs.All()
	}
	m.created = true

	log.Debug().Strs("dirs", dirs.All()).Bool("dynamic", dynamic).Msg("Cache directories ready")

	return dirs, nil
}

// Release removes per process directories. Removal is best effort, errors
// are logged and dropped. It is safe to call more than once.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dir := range m.cleanup {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("Failed to remove cache directory")
		}
	}

	m.cleanup = nil
	m.created = false
}
