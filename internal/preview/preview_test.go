package preview

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"

	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/mesh"
	"ldraw-bridge/internal/scene"
)

// redSquare is a unit square in the ground plane.
func redSquare() *mesh.Mesh {
	return &mesh.Mesh{
		Name:  "square",
		Verts: []mathutil.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
		Faces: []mesh.Face{{V: []int{0, 1, 2, 3}, Material: 0}},
		Materials: []mesh.Material{
			{Name: "Material_4", Color: 4, RGBA: color.NRGBA{255, 0, 0, 255}},
		},
	}
}

func squareScene(hidden bool) *scene.Memory {
	sc := scene.NewMemory()
	h := sc.CreateMesh("square_4", redSquare())
	sc.Instance(scene.InstanceSpec{Name: "square", Mesh: h, Matrix: mathutil.Mat4Identity(), Hidden: hidden})
	return sc
}

func TestRenderDrawsVisibleMesh(t *testing.T) {
	img := Render(squareScene(false), Options{Size: 64, Supersample: 1, Azimuth: 45, Elevation: 30})
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	c := img.NRGBAAt(32, 32)
	assert.Equal(t, uint8(255), c.A)
	assert.Greater(t, c.R, uint8(100))
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(0), c.B)

	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
}

func TestRenderSkipsHidden(t *testing.T) {
	img := Render(squareScene(true), Options{Size: 16, Supersample: 1})
	for i := 3; i < len(img.Pix); i += 4 {
		require.Zero(t, img.Pix[i])
	}
}

func TestRenderSupersampleKeepsSize(t *testing.T) {
	img := Render(squareScene(false), Options{Size: 32, Supersample: 2, Azimuth: 45, Elevation: 30})
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
	assert.Equal(t, uint8(255), img.NRGBAAt(16, 16).A)
}

func TestRenderExpandsPrototypes(t *testing.T) {
	sc := scene.NewMemory()
	parts := sc.Group("Parts", 0, true)
	proto := sc.Group("square", parts, false)
	h := sc.CreateMesh("square_4", redSquare())
	sc.Instance(scene.InstanceSpec{Name: "square", Mesh: h, Matrix: mathutil.Mat4Identity(), Group: proto})
	sc.Instance(scene.InstanceSpec{Name: "inst", Matrix: mathutil.Mat4Identity(), InstanceOf: proto})

	img := Render(sc, Options{Size: 32, Supersample: 1, Azimuth: 45, Elevation: 30})
	assert.Equal(t, uint8(255), img.NRGBAAt(16, 16).A)
}

func TestDownsample(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 200, 255
	}
	dst := Downsample(src, 2)
	assert.Equal(t, image.Rect(0, 0, 4, 4), dst.Bounds())
	c := dst.NRGBAAt(1, 1)
	assert.InDelta(t, 200, int(c.R), 1)
	assert.Equal(t, uint8(255), c.A)

	assert.Same(t, src, Downsample(src, 1))
}

func TestWriteWebP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "model.webp")
	img := Render(squareScene(false), Options{Size: 24, Supersample: 1, Azimuth: 45, Elevation: 30})
	require.NoError(t, WriteWebP(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
}
