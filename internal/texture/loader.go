package texture

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
)

// decoders picks the image decoder by file extension. TGA has no magic
// number, so content sniffing through image.Decode is not reliable.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".tga":  tga.Decode,
}

// LoadTexture reads a PNG, JPEG or TGA file and returns an NRGBA image.
func LoadTexture(path string) (*image.NRGBA, error) {
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("texture: unknown extension: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}

	return toNRGBA(img), nil
}

// toNRGBA converts any image to NRGBA format with bounds at the origin.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// AverageColor returns the mean colour of the opaque-weighted texels.
// Fully transparent images and empty images yield ok == false.
func AverageColor(tex *image.NRGBA) (r, g, b uint8, ok bool) {
	bounds := tex.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0, 0, 0, false
	}

	var sumR, sumG, sumB, sumA float64
	stride := tex.Stride
	for y := 0; y < h; y++ {
		off := y * stride
		for x := 0; x < w; x++ {
			i := off + x*4
			a := float64(tex.Pix[i+3])
			sumR += float64(tex.Pix[i]) * a
			sumG += float64(tex.Pix[i+1]) * a
			sumB += float64(tex.Pix[i+2]) * a
			sumA += a
		}
	}
	if sumA == 0 {
		return 0, 0, 0, false
	}
	return uint8(sumR/sumA + 0.5), uint8(sumG/sumA + 0.5), uint8(sumB/sumA + 0.5), true
}
