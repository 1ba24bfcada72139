package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ldraw-bridge/internal/export"
	"ldraw-bridge/internal/mesh"
	"ldraw-bridge/internal/preview"
	"ldraw-bridge/internal/resolve"
)

// Config holds library paths, import and export options and render
// settings. Boolean options that default to true are pointers so a file
// can switch them off.
type Config struct {
	// Paths
	LDrawDir  string   `json:"ldraw_dir" toml:"ldraw_dir"`
	ExtraDirs []string `json:"extra_dirs" toml:"extra_dirs"`
	OutputDir string   `json:"output_dir" toml:"output_dir"`

	// Import
	ImportScale        float64 `json:"import_scale" toml:"import_scale"`
	MergeDistance      float64 `json:"merge_distance" toml:"merge_distance"`
	RemoveDoubles      *bool   `json:"remove_doubles" toml:"remove_doubles"`
	RecalculateNormals *bool   `json:"recalculate_normals" toml:"recalculate_normals"`
	Triangulate        *bool   `json:"triangulate" toml:"triangulate"`
	SharpenEdges       *bool   `json:"sharpen_edges" toml:"sharpen_edges"`
	WeldSharp          *bool   `json:"weld_sharp" toml:"weld_sharp"`
	ShadeSmooth        *bool   `json:"shade_smooth" toml:"shade_smooth"`
	SmoothType         string  `json:"smooth_type" toml:"smooth_type"`
	BevelEdges         bool    `json:"bevel_edges" toml:"bevel_edges"`
	MakeGaps           bool    `json:"make_gaps" toml:"make_gaps"`
	GapScale           float64 `json:"gap_scale" toml:"gap_scale"`
	GapTarget          string  `json:"gap_target" toml:"gap_target"`
	GapScaleStrategy   string  `json:"gap_scale_strategy" toml:"gap_scale_strategy"`
	DisplayLogo        bool    `json:"display_logo" toml:"display_logo"`
	NoStuds            bool    `json:"no_studs" toml:"no_studs"`
	ImportEdges        bool    `json:"import_edges" toml:"import_edges"`
	GreasePencilEdges  bool    `json:"grease_pencil_edges" toml:"grease_pencil_edges"`
	Instancing         bool    `json:"instancing" toml:"instancing"`
	ParentToEmpty      *bool   `json:"parent_to_empty" toml:"parent_to_empty"`
	MetaStep           bool    `json:"meta_step" toml:"meta_step"`
	FramesPerStep      int     `json:"frames_per_step" toml:"frames_per_step"`
	StartingStepFrame  int     `json:"starting_step_frame" toml:"starting_step_frame"`
	SetTimelineMarkers bool    `json:"set_timeline_markers" toml:"set_timeline_markers"`
	MetaGroup          *bool   `json:"meta_group" toml:"meta_group"`

	// Export
	ExportPrecision     int   `json:"export_precision" toml:"export_precision"`
	SelectionOnly       bool  `json:"selection_only" toml:"selection_only"`
	ExportTriangulate   *bool `json:"export_triangulate" toml:"export_triangulate"`
	ExportRemoveDoubles bool  `json:"export_remove_doubles" toml:"export_remove_doubles"`

	// Render settings
	RenderSize  int     `json:"render_size" toml:"render_size"`
	Supersample int     `json:"supersample" toml:"supersample"`
	Azimuth     float64 `json:"azimuth" toml:"azimuth"`
	Elevation   float64 `json:"elevation" toml:"elevation"`
	Workers     int     `json:"workers" toml:"workers"`
}

// Load reads a JSON or TOML config file, chosen by extension.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	LDrawDir    string
	OutputDir   string
	ImportScale float64
	Precision   int
	Workers     int
	MetaStep    bool
	Instancing  bool
}

// Resolve applies flags and fills in defaults for every unset field.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.LDrawDir != "" {
		c.LDrawDir = flags.LDrawDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.ImportScale > 0 {
		c.ImportScale = flags.ImportScale
	}
	if flags.Precision > 0 {
		c.ExportPrecision = flags.Precision
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	c.MetaStep = c.MetaStep || flags.MetaStep
	c.Instancing = c.Instancing || flags.Instancing

	if c.LDrawDir == "" {
		c.LDrawDir = detectLDrawDir()
	}
	if c.OutputDir == "" {
		c.OutputDir = "renders"
	}

	if c.ImportScale <= 0 {
		c.ImportScale = 0.04
	}
	if c.MergeDistance <= 0 {
		c.MergeDistance = 0.05
	}
	for _, b := range []**bool{
		&c.RemoveDoubles, &c.RecalculateNormals, &c.Triangulate, &c.SharpenEdges,
		&c.WeldSharp, &c.ShadeSmooth, &c.ParentToEmpty, &c.MetaGroup, &c.ExportTriangulate,
	} {
		if *b == nil {
			t := true
			*b = &t
		}
	}
	if c.SmoothType == "" {
		c.SmoothType = string(resolve.SmoothEdgeSplit)
	}
	if c.GapScale <= 0 {
		c.GapScale = 0.997
	}
	if c.GapTarget == "" {
		c.GapTarget = string(resolve.GapObject)
	}
	if c.GapScaleStrategy == "" {
		c.GapScaleStrategy = string(resolve.GapByObject)
	}
	if c.FramesPerStep <= 0 {
		c.FramesPerStep = 3
	}
	if c.StartingStepFrame <= 0 {
		c.StartingStepFrame = 1
	}
	if c.ExportPrecision <= 0 {
		c.ExportPrecision = export.DefaultPrecision
	}

	if c.RenderSize <= 0 {
		c.RenderSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Azimuth == 0 && c.Elevation == 0 {
		c.Azimuth, c.Elevation = 45, 30
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate rejects enumerated options with unknown values.
func (c *Config) Validate() error {
	switch resolve.SmoothType(c.SmoothType) {
	case resolve.SmoothEdgeSplit, resolve.SmoothAutoSmooth, resolve.SmoothNone:
	default:
		return fmt.Errorf("config: smooth_type %q", c.SmoothType)
	}
	switch resolve.GapTarget(c.GapTarget) {
	case resolve.GapMesh, resolve.GapObject:
	default:
		return fmt.Errorf("config: gap_target %q", c.GapTarget)
	}
	switch resolve.GapStrategy(c.GapScaleStrategy) {
	case resolve.GapByObject, resolve.GapByConstraint:
	default:
		return fmt.Errorf("config: gap_scale_strategy %q", c.GapScaleStrategy)
	}
	return nil
}

func on(b *bool) bool {
	return b != nil && *b
}

// ImportOptions converts a resolved config to resolver options.
func (c *Config) ImportOptions() resolve.Options {
	return resolve.Options{
		ImportScale: c.ImportScale,
		Mesh: mesh.Options{
			MergeDistance:      c.MergeDistance,
			RemoveDoubles:      on(c.RemoveDoubles),
			RecalculateNormals: on(c.RecalculateNormals),
			Triangulate:        on(c.Triangulate),
			SharpenEdges:       on(c.SharpenEdges),
			WeldSharp:          on(c.WeldSharp),
			ShadeSmooth:        on(c.ShadeSmooth),
		},
		SmoothType:         resolve.SmoothType(c.SmoothType),
		BevelEdges:         c.BevelEdges,
		MakeGaps:           c.MakeGaps,
		GapScale:           c.GapScale,
		GapTarget:          resolve.GapTarget(c.GapTarget),
		GapStrategy:        resolve.GapStrategy(c.GapScaleStrategy),
		DisplayLogo:        c.DisplayLogo,
		NoStuds:            c.NoStuds,
		ImportEdges:        c.ImportEdges,
		GreasePencilEdges:  c.GreasePencilEdges,
		Instancing:         c.Instancing,
		ParentToEmpty:      on(c.ParentToEmpty),
		MetaStep:           c.MetaStep,
		FramesPerStep:      c.FramesPerStep,
		StartingStepFrame:  c.StartingStepFrame,
		SetTimelineMarkers: c.SetTimelineMarkers,
		MetaGroup:          on(c.MetaGroup),
	}
}

// PreviewOptions converts a resolved config to preview render options.
func (c *Config) PreviewOptions() preview.Options {
	return preview.Options{
		Size:        c.RenderSize,
		Supersample: c.Supersample,
		Azimuth:     c.Azimuth,
		Elevation:   c.Elevation,
	}
}

// ExportOptions converts a resolved config to exporter options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		Precision:     c.ExportPrecision,
		SelectionOnly: c.SelectionOnly,
		Triangulate:   on(c.ExportTriangulate),
		RemoveDoubles: c.ExportRemoveDoubles,
		MergeDistance: c.MergeDistance,
	}
}

// detectLDrawDir looks for a library in $LDRAWDIR and the usual install
// locations.
func detectLDrawDir() string {
	candidates := []string{os.Getenv("LDRAWDIR")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "ldraw"),
			filepath.Join(home, "LDraw"),
		)
	}
	candidates = append(candidates, "/usr/share/ldraw", `C:\LDraw`, `C:\Program Files\LDraw`)

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, "parts")); err == nil {
			return dir
		}
	}
	return ""
}
