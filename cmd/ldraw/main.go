// Command ldraw imports LDraw models into an in-memory scene, renders
// previews and writes them back out as LDraw text.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ldraw-bridge/internal/config"
	"ldraw-bridge/internal/ldraw"
)

var (
	configPath string
	ldrawDir   string
	outputDir  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ldraw",
	Short: "Import, preview and re-export LDraw models",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON or TOML config file")
	rootCmd.PersistentFlags().StringVar(&ldrawDir, "ldraw", "", "LDraw library root (default: $LDRAWDIR or auto-detect)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: renders)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(importCmd, exportCmd, batchCmd)
}

// loadConfig reads the config file, if any, and applies flags and defaults.
// prepare runs before defaults are filled so commands can pick their own.
func loadConfig(flags config.Flags, prepare func(*config.Config)) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}
	flags.LDrawDir = ldrawDir
	flags.OutputDir = outputDir
	if prepare != nil {
		prepare(&cfg)
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.LDrawDir == "" {
		fmt.Fprintln(os.Stderr, "Warning: no LDraw library found; only parts next to the model will resolve. Use --ldraw or $LDRAWDIR.")
	}
	return cfg, nil
}

func newLibrary(cfg config.Config) *ldraw.Library {
	lib := ldraw.NewLibrary(cfg.LDrawDir, cfg.ExtraDirs...)
	fmt.Printf("Library: %d files indexed, %d colours\n", lib.Len(), lib.Colors().Len())
	return lib
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
