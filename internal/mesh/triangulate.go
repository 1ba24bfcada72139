package mesh

import (
	"errors"
	"math"

	"ldraw-bridge/internal/mathutil"
)

var (
	errDegenerate    = errors.New("degenerate polygon")
	errNoEar         = errors.New("polygon cannot be triangulated")
	errTooFewCorners = errors.New("fewer than 3 vertices")
)

// Triangulate splits a planar polygon loop into triangles by ear
// clipping. At every step the ear whose triangle has the largest minimum
// angle is cut first, which keeps the result close to the "beauty" split.
// Returned triangles index into pts and keep the loop's winding.
func Triangulate(pts []mathutil.Vec3) ([][3]int, error) {
	n := len(pts)
	if n < 3 {
		return nil, errTooFewCorners
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}, nil
	}

	normal := newell(pts)
	if normal.Len() < 1e-12 {
		return nil, errDegenerate
	}
	flat := project(pts, normal)

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	tris := make([][3]int, 0, n-2)
	for len(remaining) > 3 {
		best, bestQ := -1, -1.0
		for k := range remaining {
			prev := remaining[(k+len(remaining)-1)%len(remaining)]
			cur := remaining[k]
			next := remaining[(k+1)%len(remaining)]
			if !isEar(flat, remaining, prev, cur, next) {
				continue
			}
			if q := minAngle(pts[prev], pts[cur], pts[next]); q > bestQ {
				best, bestQ = k, q
			}
		}
		if best < 0 {
			return nil, errNoEar
		}
		prev := remaining[(best+len(remaining)-1)%len(remaining)]
		next := remaining[(best+1)%len(remaining)]
		tris = append(tris, [3]int{prev, remaining[best], next})
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	tris = append(tris, [3]int{remaining[0], remaining[1], remaining[2]})
	return tris, nil
}

// project drops the dominant axis of normal and orients the 2D result
// counter-clockwise.
func project(pts []mathutil.Vec3, normal mathutil.Vec3) [][2]float64 {
	ax, ay := 0, 1
	abs := [3]float64{math.Abs(normal[0]), math.Abs(normal[1]), math.Abs(normal[2])}
	switch {
	case abs[0] >= abs[1] && abs[0] >= abs[2]:
		ax, ay = 1, 2
	case abs[1] >= abs[2]:
		ax, ay = 2, 0
	}

	out := make([][2]float64, len(pts))
	var area float64
	for i, p := range pts {
		out[i] = [2]float64{p[ax], p[ay]}
	}
	for i := range out {
		a, b := out[i], out[(i+1)%len(out)]
		area += a[0]*b[1] - b[0]*a[1]
	}
	if area < 0 {
		for i := range out {
			out[i][0] = -out[i][0]
		}
	}
	return out
}

func cross2(o, a, b [2]float64) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func isEar(flat [][2]float64, remaining []int, prev, cur, next int) bool {
	a, b, c := flat[prev], flat[cur], flat[next]
	if cross2(a, b, c) <= 1e-12 {
		return false
	}
	for _, j := range remaining {
		if j == prev || j == cur || j == next {
			continue
		}
		p := flat[j]
		if p == a || p == b || p == c {
			continue
		}
		if cross2(a, b, p) >= 0 && cross2(b, c, p) >= 0 && cross2(c, a, p) >= 0 {
			return false
		}
	}
	return true
}

func minAngle(a, b, c mathutil.Vec3) float64 {
	return math.Min(angleAt(a, b, c), math.Min(angleAt(b, c, a), angleAt(c, a, b)))
}

func angleAt(p, q, r mathutil.Vec3) float64 {
	u := q.Sub(p).Normalize()
	v := r.Sub(p).Normalize()
	d := u.Dot(v)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}
