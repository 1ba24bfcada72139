package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ldraw-bridge/internal/config"
	"ldraw-bridge/internal/export"
)

var exportPrecision int

var exportCmd = &cobra.Command{
	Use:   "export [model.ldr] [out.ldr]",
	Short: "Import a model and write it back as LDraw text",
	Long: "Import a model and write it back as LDraw text. The import scale " +
		"defaults to 1 so sub-file references round-trip unchanged.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Flags{Precision: exportPrecision}, func(c *config.Config) {
			if c.ImportScale == 0 {
				c.ImportScale = 1
			}
		})
		if err != nil {
			return err
		}

		lib := newLibrary(cfg)
		sc, ctx, err := importFile(cfg, lib, args[0])
		if err != nil {
			return err
		}
		if ctx.Anchor() == 0 {
			return fmt.Errorf("export: %s produced no root object; enable parent_to_empty", args[0])
		}
		sc.SetActive(ctx.Anchor())

		opts := cfg.ExportOptions()
		opts.SelectionOnly = false
		opts.Colors = lib.Colors()
		opts.Logger = slog.Default()
		if err := export.New(opts).WriteFile(args[1], sc); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%s)\n", args[1], ctx.Stats)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportPrecision, "precision", 0, "Decimal places for coordinates (default: 3)")
}
