package preview

import (
	"image/color"
	"math"

	"ldraw-bridge/internal/mathutil"
)

// shadeColor lights a flat colour and returns the tone-mapped sRGB result.
func shadeColor(c color.NRGBA, shade float64, lc *LightConfig) (r, g, b uint8) {
	tone := func(v uint8) uint8 {
		lin := srgbToLinear[v] * shade * lc.Exposure
		return clamp255(math.Pow(ACESTonemap(lin), lc.InvGamma) * 255)
	}
	return tone(c.R), tone(c.G), tone(c.B)
}

// RasterizeTriangle fills one flat-coloured triangle given in screen space
// (x right, y down, z larger toward the viewer). Opaque fragments write the
// z-buffer; translucent ones blend over what is already there.
func RasterizeTriangle(fb *FrameBuffer, p [3]mathutil.Vec3, c color.NRGBA, shade float64, lc *LightConfig) {
	if c.A < 8 {
		return
	}
	x0, y0, z0 := p[0][0], p[0][1], p[0][2]
	x1, y1, z1 := p[1][0], p[1][1], p[1][2]
	x2, y2, z2 := p[2][0], p[2][1], p[2][2]

	// Bounding box
	w, h := fb.Width, fb.Height
	minX := int(math.Min(math.Min(x0, x1), x2))
	maxX := int(math.Max(math.Max(x0, x1), x2)) + 1
	minY := int(math.Min(math.Min(y0, y1), y2))
	maxY := int(math.Max(math.Max(y0, y1), y2)) + 1

	if minX < 0 {
		minX = 0
	}
	if maxX >= w {
		maxX = w - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= h {
		maxY = h - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	cr, cg, cb := shadeColor(c, shade, lc)
	opaque := c.A == 255
	alpha := float64(c.A) / 255

	// Pixel loop, zero allocations
	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * w
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			pxIdx := zIdx * 4
			if opaque {
				fb.ZBuf[zIdx] = z
				fb.Color[pxIdx] = cr
				fb.Color[pxIdx+1] = cg
				fb.Color[pxIdx+2] = cb
				fb.Color[pxIdx+3] = 255
				continue
			}

			// Translucent: blend over, keep the stronger alpha
			fb.Color[pxIdx] = clamp255(float64(cr)*alpha + float64(fb.Color[pxIdx])*(1-alpha))
			fb.Color[pxIdx+1] = clamp255(float64(cg)*alpha + float64(fb.Color[pxIdx+1])*(1-alpha))
			fb.Color[pxIdx+2] = clamp255(float64(cb)*alpha + float64(fb.Color[pxIdx+2])*(1-alpha))
			if c.A > fb.Color[pxIdx+3] {
				fb.Color[pxIdx+3] = c.A
			}
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
