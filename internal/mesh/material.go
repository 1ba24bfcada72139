package mesh

import (
	"fmt"
	"path"
	"strings"

	"ldraw-bridge/internal/geometry"
	"ldraw-bridge/internal/ldraw"
)

// slopeAngles lists the grainy slope faces of common slope bricks, keyed by
// part number. Values are the face angles (degrees from horizontal) that
// carry the texture.
var slopeAngles = map[string][]int{
	"3037":  {45},
	"3038":  {45},
	"3039":  {45},
	"3040":  {45},
	"3043":  {45},
	"3044":  {45},
	"3045":  {45},
	"3046":  {45},
	"3048":  {45},
	"3049":  {45},
	"3298":  {33},
	"3299":  {33},
	"3300":  {33},
	"3660":  {45},
	"3665":  {45},
	"3675":  {33},
	"3676":  {45},
	"3678":  {65},
	"3684":  {65},
	"3685":  {65},
	"4286":  {33},
	"4287":  {33},
	"4445":  {18},
	"4460":  {72},
	"4515":  {10},
	"60481": {65},
}

// PartSlopes returns the slope angles for a part file name, or nil.
func PartSlopes(name string) []int {
	base := strings.TrimSuffix(path.Base(ldraw.NormalizeName(name)), ".dat")
	return slopeAngles[base]
}

// MaterialFor derives the material of a face. Faces that resolve to the
// same colour, edge flag, slope set and texture share a material name.
func MaterialFor(info geometry.FaceInfo, colors *ldraw.ColorTable, slopes []int) Material {
	c := colors.Lookup(info.Color)
	name := fmt.Sprintf("Material_%d", info.Color)
	if c.Code != info.Color {
		name = fmt.Sprintf("Material_%d", c.Code)
	}

	mat := Material{
		Color:        c.Code,
		RGBA:         c.Value,
		UseEdgeColor: info.UseEdgeColor,
		Finish:       c.Finish,
		Texmap:       info.Texmap,
		Slopes:       slopes,
	}
	if info.UseEdgeColor {
		name += "_edge"
		mat.RGBA = c.Edge
	}
	if len(slopes) > 0 {
		name += "_slope"
	}
	if info.Texmap != nil && info.Texmap.Texture != "" {
		name += "_" + strings.ToLower(info.Texmap.Texture)
	}
	mat.Name = name
	return mat
}
