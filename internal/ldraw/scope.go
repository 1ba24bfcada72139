package ldraw

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Scope is one import's view of a Library. MPD sections and the model's
// sibling files live in the scope; parts fall through to the shared
// library cache. Concurrent imports each take their own Scope.
type Scope struct {
	lib *Library

	mu    sync.RWMutex
	index map[string]string
	files map[string]*File
}

// Scope returns an empty view over l.
func (l *Library) Scope() *Scope {
	return &Scope{
		lib:   l,
		index: make(map[string]string),
		files: make(map[string]*File),
	}
}

// Colors returns the library's colour table.
func (s *Scope) Colors() *ColorTable { return s.lib.Colors() }

// Register parses LDraw text into the scope's overlay and returns the main
// file.
func (s *Scope) Register(name string, r io.Reader) (*File, error) {
	files, err := Parse(name, r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for _, f := range files {
		s.files[f.Name] = f
	}
	s.mu.Unlock()
	return files[0], nil
}

// RegisterString is Register for literal sources.
func (s *Scope) RegisterString(name, src string) (*File, error) {
	return s.Register(name, strings.NewReader(src))
}

// Open loads a model from an explicit path and indexes its folder so
// sibling sub-models resolve within this scope.
func (s *Scope) Open(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ldraw: read %s: %w", path, err)
	}
	walkDir(filepath.Dir(path), false, func(key, p string) {
		s.mu.Lock()
		if _, exists := s.index[key]; !exists {
			s.index[key] = p
		}
		s.mu.Unlock()
	})
	return s.Register(filepath.Base(path), bytes.NewReader(raw))
}

// Resolve looks in the overlay, then the sibling folder, then the library.
func (s *Scope) Resolve(name string) (*File, error) {
	key := NormalizeName(name)

	s.mu.RLock()
	if f, ok := s.files[key]; ok {
		s.mu.RUnlock()
		return f, nil
	}
	path, ok := s.index[key]
	s.mu.RUnlock()
	if !ok {
		return s.lib.Resolve(name)
	}

	files, err := parseAt(key, path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[key]; ok {
		return f, nil
	}
	s.files[key] = files[0]
	for _, f := range files[1:] {
		if _, exists := s.files[f.Name]; !exists {
			s.files[f.Name] = f
		}
	}
	return files[0], nil
}
