package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ldraw-bridge/internal/config"
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/preview"
	"ldraw-bridge/internal/resolve"
	"ldraw-bridge/internal/scene"
	"ldraw-bridge/internal/texture"
)

var (
	importScale  float64
	previewPath  string
	instancing   bool
	metaStep     bool
	previewFrame int
)

var importCmd = &cobra.Command{
	Use:   "import [model.ldr]",
	Short: "Import a model and print a summary, optionally rendering a preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Flags{
			ImportScale: importScale,
			MetaStep:    metaStep,
			Instancing:  instancing,
		}, nil)
		if err != nil {
			return err
		}

		sc, ctx, err := importFile(cfg, newLibrary(cfg), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Imported %s: %s\n", args[0], ctx.Stats)
		fmt.Printf("Faces: %d, triangulated: %d, welded: %d, sharp edges: %d, flipped: %d\n",
			ctx.Stats.Mesh.Faces, ctx.Stats.Mesh.Triangulated, ctx.Stats.Mesh.Welded,
			ctx.Stats.Mesh.Sharp, ctx.Stats.Mesh.Flipped)
		if cfg.MetaStep {
			fmt.Printf("Steps: %d, last frame: %d\n", ctx.CurrentStep, ctx.LastFrame)
		}
		for _, e := range ctx.Errors {
			fmt.Printf("  skipped: %v\n", e)
		}

		if previewPath == "" {
			return nil
		}
		opts := cfg.PreviewOptions()
		opts.Frame = ctx.LastFrame
		if cmd.Flags().Changed("frame") {
			opts.Frame = previewFrame
		}
		opts.Textures = texture.NewCache(texture.BuildIndex(cfg.LDrawDir, cfg.ExtraDirs...))
		if err := preview.WriteWebP(previewPath, preview.Render(sc, opts)); err != nil {
			return err
		}
		fmt.Printf("Preview: %s\n", previewPath)
		return nil
	},
}

func init() {
	importCmd.Flags().Float64Var(&importScale, "scale", 0, "Import scale (default: 0.04)")
	importCmd.Flags().StringVarP(&previewPath, "preview", "p", "", "Write a WebP preview to this path")
	importCmd.Flags().IntVar(&previewFrame, "frame", 0, "Timeline frame to preview (default: last step)")
	importCmd.Flags().BoolVar(&instancing, "instancing", false, "Share part meshes through prototype collections")
	importCmd.Flags().BoolVar(&metaStep, "steps", false, "Animate STEP commands on the timeline")
}

// importFile opens path, imports it into a fresh scene and returns both.
func importFile(cfg config.Config, shared *ldraw.Library, path string) (*scene.Memory, *resolve.Context, error) {
	lib := shared.Scope()
	f, err := lib.Open(path)
	if err != nil {
		return nil, nil, err
	}

	sc := scene.NewMemory()
	opts := cfg.ImportOptions()
	opts.Logger = slog.Default()
	ctx := resolve.NewContext(lib, sc, opts)

	start := time.Now()
	if err := ctx.Import(f.Name); err != nil {
		return nil, nil, err
	}
	slog.Debug("import timing", "file", path, "elapsed", time.Since(start))
	return sc, ctx, nil
}
