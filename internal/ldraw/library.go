package ldraw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when a reference cannot be located.
var ErrNotFound = errors.New("not found")

// searchDirs are the LDraw library folders indexed under the root, in
// priority order. Names inside them are relative ("s/3001s01.dat",
// "48/4-4cyli.dat") exactly as parts reference them.
var searchDirs = []string{
	"models",
	"parts",
	"p",
	filepath.Join("unofficial", "parts"),
	filepath.Join("unofficial", "p"),
}

// Library resolves part names to parsed files and colour codes to colours.
// It is safe for concurrent use; parsed files are cached and shared.
type Library struct {
	mu     sync.RWMutex
	index  map[string]string // normalized name → path
	files  map[string]*File  // parsed cache and in-memory overlay
	colors *ColorTable
}

// NewLibrary indexes the LDraw folders under root plus any extra folders.
// Missing folders are skipped. Colours come from root/LDConfig.ldr when
// present, otherwise DefaultColors.
func NewLibrary(root string, extraDirs ...string) *Library {
	l := &Library{
		index:  make(map[string]string),
		files:  make(map[string]*File),
		colors: DefaultColors(),
	}

	if root != "" {
		for _, d := range searchDirs {
			l.indexDir(filepath.Join(root, d), true)
		}
		if ct, err := loadColorFile(filepath.Join(root, "LDConfig.ldr")); err == nil && ct.Len() > 0 {
			l.colors = ct
		}
	}
	for _, d := range extraDirs {
		l.indexDir(d, false)
	}
	return l
}

func loadColorFile(path string) (*ColorTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseColors(f)
}

// indexDir maps every LDraw file below dir by its slash-separated path
// relative to dir. Earlier entries win.
func (l *Library) indexDir(dir string, recursive bool) {
	walkDir(dir, recursive, func(key, p string) {
		l.mu.Lock()
		if _, exists := l.index[key]; !exists {
			l.index[key] = p
		}
		l.mu.Unlock()
	})
}

func walkDir(dir string, recursive bool, add func(key, path string)) {
	filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && (!recursive || strings.EqualFold(d.Name(), "textures")) {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".dat", ".ldr", ".mpd":
		default:
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		add(NormalizeName(filepath.ToSlash(rel)), p)
		return nil
	})
}

// Len returns the number of indexed files on disk.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.index)
}

// SetColors replaces the colour table.
func (l *Library) SetColors(ct *ColorTable) {
	l.mu.Lock()
	l.colors = ct
	l.mu.Unlock()
}

// Colors returns the active colour table.
func (l *Library) Colors() *ColorTable {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.colors
}

// Color looks up a colour code. Unknown codes report false; callers fall
// back to code 16.
func (l *Library) Color(code int) (Color, bool) {
	return l.Colors().Get(code)
}

// Register parses LDraw text and adds every file it defines to the
// in-memory overlay, shadowing indexed files of the same name. It returns
// the main file.
func (l *Library) Register(name string, r io.Reader) (*File, error) {
	files, err := Parse(name, r)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	for _, f := range files {
		l.files[f.Name] = f
	}
	l.mu.Unlock()
	return files[0], nil
}

// RegisterString is Register for literal sources.
func (l *Library) RegisterString(name, src string) (*File, error) {
	return l.Register(name, strings.NewReader(src))
}

// Resolve returns the parsed file for a reference name.
func (l *Library) Resolve(name string) (*File, error) {
	key := NormalizeName(name)

	// Fast path: read lock
	l.mu.RLock()
	if f, ok := l.files[key]; ok {
		l.mu.RUnlock()
		return f, nil
	}
	path, ok := l.index[key]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ldraw: resolve %s: %w", name, ErrNotFound)
	}

	// Slow path: parse from disk
	files, err := parseAt(key, path)
	if err != nil {
		return nil, err
	}
	main := files[0]

	// Write lock with double-check
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.files[key]; ok {
		return f, nil
	}
	l.files[key] = main
	for _, f := range files[1:] {
		if _, exists := l.files[f.Name]; !exists {
			l.files[f.Name] = f
		}
	}
	return main, nil
}

// parseAt reads and parses the file at path. The index key becomes the main
// file's name even if the file names itself differently.
func parseAt(key, path string) ([]*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ldraw: read %s: %w", path, err)
	}
	files, err := Parse(key, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	files[0].Name = key
	return files, nil
}
