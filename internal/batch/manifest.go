package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry represents one model in the output manifest.
type ManifestEntry struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Image     string `json:"image,omitempty"`
	LDR       string `json:"ldr,omitempty"`
	Parts     int    `json:"parts"`
	Meshes    int    `json:"meshes"`
	Instances int    `json:"instances"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// WriteManifest writes the results as an indented JSON array.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Name:      r.Name,
			Source:    r.Source,
			Image:     r.Image,
			LDR:       r.LDR,
			Parts:     r.Parts,
			Meshes:    r.Meshes,
			Instances: r.Instances,
			Skipped:   r.Skipped,
			Error:     r.Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("batch: write %s: %w", path, err)
	}
	return nil
}
