// Package batch imports many models concurrently and writes a preview and
// an optional LDraw re-export for each.
package batch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ldraw-bridge/internal/export"
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/preview"
	"ldraw-bridge/internal/resolve"
	"ldraw-bridge/internal/scene"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Library   *ldraw.Library
	OutputDir string
	Import    resolve.Options
	Preview   preview.Options
	Export    export.Options
	ExportLDR bool // also write <name>.ldr next to the preview
	Workers   int
	Logger    *slog.Logger
}

// Result holds the outcome of processing one model file.
type Result struct {
	Name      string
	Source    string
	Parts     int
	Meshes    int
	Instances int
	Skipped   int
	Image     string
	LDR       string
	Success   bool
	Error     string
}

// Run processes all files using a worker pool. Every file gets its own
// resolver context and scene; only the part library is shared.
func Run(cfg Config, files []string) []Result {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f models/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	fileChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = processFile(cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	return results
}

func processFile(cfg Config, path string) Result {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := Result{Name: stem, Source: path}
	log := cfg.Logger.With("file", path)

	lib := cfg.Library.Scope()
	f, err := lib.Open(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	sc := scene.NewMemory()
	opts := cfg.Import
	opts.Logger = log
	ctx := resolve.NewContext(lib, sc, opts)
	if err := ctx.Import(f.Name); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Parts = ctx.Stats.Parts
	res.Meshes = ctx.Stats.Meshes
	res.Instances = ctx.Stats.Instances
	res.Skipped = ctx.Stats.Skipped

	popts := cfg.Preview
	popts.Frame = ctx.LastFrame
	img := preview.Render(sc, popts)
	res.Image = stem + ".webp"
	if err := preview.WriteWebP(filepath.Join(cfg.OutputDir, res.Image), img); err != nil {
		res.Error = err.Error()
		return res
	}

	if cfg.ExportLDR {
		sc.SetActive(ctx.Anchor())
		eopts := cfg.Export
		if eopts.Colors == nil {
			eopts.Colors = cfg.Library.Colors()
		}
		eopts.Logger = log
		res.LDR = stem + ".ldr"
		if err := export.New(eopts).WriteFile(filepath.Join(cfg.OutputDir, res.LDR), sc); err != nil {
			res.LDR = ""
			res.Error = err.Error()
			return res
		}
	}

	log.Debug("batch item done", "parts", res.Parts, "meshes", res.Meshes)
	res.Success = true
	return res
}
