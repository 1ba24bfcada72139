// Package preview rasterizes an imported scene to a still image.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"

	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/mesh"
	"ldraw-bridge/internal/scene"
	"ldraw-bridge/internal/texture"
)

// Options controls the camera and output of Render.
type Options struct {
	Size        int     // output edge length in pixels
	Supersample int     // render at Size*Supersample, then downsample
	Frame       int     // timeline frame used for step visibility
	Azimuth     float64 // degrees around +Z
	Elevation   float64 // degrees above the ground plane
	Textures    texture.Resolver
}

// DefaultOptions returns a three-quarter view from above.
func DefaultOptions() Options {
	return Options{Size: 512, Supersample: 2, Azimuth: 45, Elevation: 30}
}

var fallbackColor = color.NRGBA{160, 160, 170, 255}

// drawItem is one mesh placed in the world.
type drawItem struct {
	mesh  *mesh.Mesh
	world mathutil.Mat4
}

// Render draws every surface mesh visible at opts.Frame with an
// orthographic camera framed on the scene's bounds.
func Render(sc *scene.Memory, opts Options) *image.NRGBA {
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	renderSize := opts.Size * opts.Supersample

	items := collect(sc, opts.Frame)
	if len(items) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	}

	R := cameraBasis(opts.Azimuth, opts.Elevation)

	// Camera-space vertices and bounds
	allMin := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	allMax := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	camVerts := make([][]mathutil.Vec3, len(items))
	for i, it := range items {
		vs := make([]mathutil.Vec3, len(it.mesh.Verts))
		for j, v := range it.mesh.Verts {
			cv := R.MulVec3(it.world.MulPoint(v))
			vs[j] = cv
			for k := 0; k < 3; k++ {
				allMin[k] = math.Min(allMin[k], cv[k])
				allMax[k] = math.Max(allMax[k], cv[k])
			}
		}
		camVerts[i] = vs
	}

	center := allMin.Add(allMax).Scale(0.5)
	span := math.Max(allMax[0]-allMin[0], allMax[1]-allMin[1])
	if span < 1e-6 {
		span = 1e-6
	}
	margin := renderSize / 16
	scale := float64(renderSize-2*margin) / span
	half := float64(renderSize) / 2

	toScreen := func(v mathutil.Vec3) mathutil.Vec3 {
		return mathutil.Vec3{
			(v[0]-center[0])*scale + half,
			half - (v[1]-center[1])*scale,
			v[2] - center[2],
		}
	}

	fb := NewFrameBuffer(renderSize, renderSize)
	lc := DefaultLightConfig()
	colors := newColorCache(opts.Textures)

	for i, it := range items {
		vs := camVerts[i]
		for fi, f := range it.mesh.Faces {
			if len(f.V) < 3 {
				continue
			}
			n := faceNormal(vs, f.V)
			if n.IsZero() {
				continue
			}
			if n[2] < 0 {
				n = n.Scale(-1)
			}
			shade := lc.ComputeShade(n)
			c := colors.faceColor(it.mesh, fi)

			// Fan triangulation; built meshes hold tris and quads
			p0 := toScreen(vs[f.V[0]])
			for k := 1; k+1 < len(f.V); k++ {
				tri := [3]mathutil.Vec3{p0, toScreen(vs[f.V[k]]), toScreen(vs[f.V[k+1]])}
				RasterizeTriangle(fb, tri, c, shade, &lc)
			}
		}
	}

	img := fb.Image()
	if opts.Supersample > 1 {
		img = Downsample(img, opts.Supersample)
	}
	return img
}

// collect lists the surface meshes visible at frame, expanding instances
// of prototype groups.
func collect(sc *scene.Memory, frame int) []drawItem {
	var items []drawItem
	for _, n := range sc.Nodes() {
		if !sc.VisibleAt(n.Handle, frame) {
			continue
		}
		world := sc.World(n.Handle)
		if n.InstanceOf == 0 {
			if m := sc.Mesh(n.Mesh); m != nil && m.Kind == mesh.KindSurface {
				items = append(items, drawItem{mesh: m, world: world})
			}
			continue
		}
		// Instances draw their collection, not their own mesh link
		for _, h := range sc.Members(n.InstanceOf) {
			proto := sc.Node(h)
			if m := sc.Mesh(proto.Mesh); m != nil && m.Kind == mesh.KindSurface {
				items = append(items, drawItem{mesh: m, world: mathutil.Compose(world, proto.Matrix)})
			}
		}
	}
	return items
}

// cameraBasis orbits a camera around +Z: it starts on -Y, tilts up by
// elevation and then turns by azimuth.
func cameraBasis(azimuth, elevation float64) mathutil.Mat3 {
	eye := mathutil.RotZ(mathutil.Deg2Rad(azimuth)).MulVec3(
		mathutil.RotX(mathutil.Deg2Rad(-elevation)).MulVec3(mathutil.Vec3{0, -1, 0}))
	return mathutil.LookAt(eye, mathutil.Vec3{}, mathutil.Vec3{0, 0, 1})
}

// faceNormal is the Newell normal of a loop.
func faceNormal(vs []mathutil.Vec3, loop []int) mathutil.Vec3 {
	var n mathutil.Vec3
	for i := range loop {
		a := vs[loop[i]]
		b := vs[loop[(i+1)%len(loop)]]
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	l := n.Len()
	if l == 0 {
		return mathutil.Vec3{}
	}
	return n.Scale(1 / l)
}

// colorCache resolves face colours, replacing textured materials by the
// average colour of their image.
type colorCache struct {
	textures texture.Resolver
	averages map[string]*color.NRGBA
}

func newColorCache(textures texture.Resolver) *colorCache {
	return &colorCache{textures: textures, averages: make(map[string]*color.NRGBA)}
}

func (cc *colorCache) faceColor(m *mesh.Mesh, face int) color.NRGBA {
	mat, ok := m.FaceMaterial(face)
	if !ok {
		return fallbackColor
	}
	c := mat.RGBA
	if mat.Texmap == nil || cc.textures == nil {
		return c
	}
	avg, seen := cc.averages[mat.Texmap.Texture]
	if !seen {
		if tex := cc.textures.Resolve(mat.Texmap.Texture); tex != nil {
			if r, g, b, ok := texture.AverageColor(tex); ok {
				avg = &color.NRGBA{r, g, b, 255}
			}
		}
		cc.averages[mat.Texmap.Texture] = avg
	}
	if avg != nil {
		c.R, c.G, c.B = avg.R, avg.G, avg.B
	}
	return c
}

// WriteWebP encodes img as lossless WebP at path, creating parent folders.
func WriteWebP(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("preview: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
