package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ldraw-bridge/internal/batch"
	"ldraw-bridge/internal/config"
	"ldraw-bridge/internal/texture"
)

var (
	batchWorkers int
	batchLDR     bool
	batchLimit   int
)

var batchCmd = &cobra.Command{
	Use:   "batch [file or dir]...",
	Short: "Import many models concurrently and render a preview of each",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Flags{Workers: batchWorkers}, nil)
		if err != nil {
			return err
		}

		files, err := collectModels(args)
		if err != nil {
			return err
		}
		if batchLimit > 0 && batchLimit < len(files) {
			files = files[:batchLimit]
		}
		if len(files) == 0 {
			fmt.Println("No models to render.")
			return nil
		}

		lib := newLibrary(cfg)
		texIndex := texture.BuildIndex(cfg.LDrawDir, cfg.ExtraDirs...)
		fmt.Printf("Textures: %d indexed\n", texIndex.Len())

		popts := cfg.PreviewOptions()
		popts.Textures = texture.NewCache(texIndex)

		fmt.Printf("Models: %d, Workers: %d\n", len(files), cfg.Workers)
		fmt.Printf("Output: %s\n", cfg.OutputDir)
		fmt.Println("------------------------------------------------------------")

		start := time.Now()
		results := batch.Run(batch.Config{
			Library:   lib,
			OutputDir: cfg.OutputDir,
			Import:    cfg.ImportOptions(),
			Preview:   popts,
			Export:    cfg.ExportOptions(),
			ExportLDR: batchLDR,
			Workers:   cfg.Workers,
			Logger:    slog.Default(),
		}, files)

		fmt.Println("------------------------------------------------------------")
		fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())

		var failed []batch.Result
		for _, r := range results {
			if !r.Success {
				failed = append(failed, r)
			}
		}
		fmt.Printf("Rendered: %d/%d\n", len(results)-len(failed), len(results))

		if len(failed) > 0 {
			fmt.Printf("\nFailed (%d):\n", len(failed))
			limit := min(len(failed), 20)
			for _, r := range failed[:limit] {
				fmt.Printf("  %s: %s\n", r.Name, r.Error)
			}
		}

		manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return err
		}
		if err := batch.WriteManifest(manifestPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			fmt.Printf("Manifest: %s\n", manifestPath)
		}

		if len(failed) > 0 {
			return fmt.Errorf("%d of %d models failed", len(failed), len(results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Number of worker goroutines (default: NumCPU)")
	batchCmd.Flags().BoolVar(&batchLDR, "ldr", false, "Also write a re-exported .ldr per model")
	batchCmd.Flags().IntVar(&batchLimit, "test", 0, "Process only the first N models")
}

// collectModels expands directories into the .ldr and .mpd files below them.
func collectModels(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			switch strings.ToLower(filepath.Ext(p)) {
			case ".ldr", ".mpd":
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
