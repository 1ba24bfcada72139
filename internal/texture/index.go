package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// textureDirs are the folders under an LDraw root that hold !TEXMAP images.
var textureDirs = []string{
	filepath.Join("parts", "textures"),
	filepath.Join("p", "textures"),
	filepath.Join("unofficial", "parts", "textures"),
	filepath.Join("unofficial", "p", "textures"),
	"textures",
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".tga": true}

// Index maps lowercase texture file names to filesystem paths.
// Earlier folders take priority over later ones.
type Index struct {
	entries map[string]string // lowercase relative name → full path
}

// BuildIndex scans the texture folders under root plus any extra folders.
func BuildIndex(root string, extraDirs ...string) *Index {
	idx := &Index{entries: make(map[string]string)}

	var searchDirs []string
	if root != "" {
		for _, d := range textureDirs {
			searchDirs = append(searchDirs, filepath.Join(root, d))
		}
	}
	searchDirs = append(searchDirs, extraDirs...)

	for _, dir := range searchDirs {
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !imageExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			key := strings.ToLower(filepath.ToSlash(rel))
			if _, exists := idx.entries[key]; !exists {
				idx.entries[key] = path
			}
			return nil
		})
	}

	return idx
}

// Add maps a texture name to a path, replacing any indexed entry.
func (idx *Index) Add(name, path string) {
	idx.entries[normalize(name)] = path
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
func (idx *Index) ResolvePath(texName string) (string, bool) {
	path, ok := idx.entries[normalize(texName)]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func normalize(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	return strings.ToLower(strings.TrimPrefix(name, "./"))
}
