package texture

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestIndexPriorityAndCase(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "parts", "textures", "Logo.png"), color.NRGBA{255, 0, 0, 255})
	writePNG(t, filepath.Join(root, "textures", "logo.png"), color.NRGBA{0, 255, 0, 255})
	writePNG(t, filepath.Join(root, "textures", "sub", "face.png"), color.NRGBA{0, 0, 255, 255})

	idx := BuildIndex(root)
	assert.Equal(t, 2, idx.Len())

	p, ok := idx.ResolvePath("LOGO.PNG")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "parts", "textures", "Logo.png"), p)

	_, ok = idx.ResolvePath(`sub\face.png`)
	assert.True(t, ok)
	_, ok = idx.ResolvePath("missing.png")
	assert.False(t, ok)
}

func TestCacheAndAverage(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "textures", "a.png"), color.NRGBA{200, 100, 50, 255})

	cache := NewCache(BuildIndex(root))
	img := cache.Resolve("a.png")
	require.NotNil(t, img)
	assert.Same(t, img, cache.Resolve("A.png"))
	assert.Nil(t, cache.Resolve("b.png"))

	r, g, b, ok := AverageColor(img)
	require.True(t, ok)
	assert.Equal(t, [3]uint8{200, 100, 50}, [3]uint8{r, g, b})
}

func TestAverageIgnoresTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 0})
	r, g, b, ok := AverageColor(img)
	require.True(t, ok)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})

	_, _, _, ok = AverageColor(image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	assert.False(t, ok)
}

func TestLoadTextureErrors(t *testing.T) {
	_, err := LoadTexture(filepath.Join(t.TempDir(), "none.png"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadTexture(bad)
	assert.Error(t, err)
}

// writeTGA writes an uncompressed 24-bit TGA filled with one colour.
func writeTGA(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	header := []byte{0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, byte(w), byte(w >> 8), byte(h), byte(h >> 8), 24, 0}
	data := append([]byte(nil), header...)
	for i := 0; i < w*h; i++ {
		data = append(data, c.B, c.G, c.R)
	}
	data = append(data, make([]byte, 8)...)
	data = append(data, []byte("TRUEVISION-XFILE.\x00")...)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoadTextureByExtension(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "a.png")
	writePNG(t, pngPath, color.NRGBA{200, 100, 50, 255})
	img, err := LoadTexture(pngPath)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{200, 100, 50, 255}, img.NRGBAAt(1, 1))

	tgaPath := filepath.Join(dir, "b.tga")
	writeTGA(t, tgaPath, 2, 2, color.NRGBA{10, 20, 30, 255})
	img, err = LoadTexture(tgaPath)
	require.NoError(t, err)
	r, g, b, ok := AverageColor(img)
	require.True(t, ok)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})

	jpgPath := filepath.Join(dir, "c.JPG")
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 120, 120, 120, 255
	}
	f, err := os.Create(jpgPath)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, src, &jpeg.Options{Quality: 100}))
	require.NoError(t, f.Close())
	img, err = LoadTexture(jpgPath)
	require.NoError(t, err)
	assert.InDelta(t, 120, int(img.NRGBAAt(4, 4).R), 3)

	_, err = LoadTexture(filepath.Join(dir, "d.bmp"))
	assert.Error(t, err)
}
