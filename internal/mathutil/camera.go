package mathutil

import "math"

// LookAt returns a camera basis whose rows are (right, up, back) for a
// camera at eye looking toward target. When back and up are nearly
// parallel the up vector falls back to +Z, then +X.
func LookAt(eye, target, up Vec3) Mat3 {
	back := eye.Sub(target).Normalize()

	if math.Abs(back.Dot(up)) > 0.9999 {
		up = Vec3{0, 0, 1}
		if math.Abs(back.Dot(up)) > 0.9999 {
			up = Vec3{1, 0, 0}
		}
	}

	right := up.Cross(back).Normalize()
	trueUp := back.Cross(right).Normalize()

	return Mat3{
		right[0], right[1], right[2],
		trueUp[0], trueUp[1], trueUp[2],
		back[0], back[1], back[2],
	}
}
