package mathutil

// Coordinate conversion between LDraw (Y down, -Z forward, left-handed
// placement) and the host convention (Z up). Written out literally so the
// matrices carry exact zeros instead of cos(π/2) residue.
var (
	// Rotation is Rx(-90°): (x, y, z) → (x, z, -y). Applied once at the
	// model root on import.
	Rotation = Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}

	// ReverseRotation is Rx(+90°), the inverse of Rotation: (x, y, z) → (x, -z, y).
	// Applied on export to bring host coordinates back to LDraw.
	ReverseRotation = Mat4{
		1, 0, 0, 0,
		0, 0, -1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}
)

// RootMatrix is the anchor transform for an import: coordinate conversion
// followed by the global import scale.
func RootMatrix(importScale float64) Mat4 {
	return Mat4Mul(Rotation, Scale(importScale))
}
