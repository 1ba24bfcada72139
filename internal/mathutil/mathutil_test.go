package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeAppliesLocalFirst(t *testing.T) {
	parent := Translate(Vec3{10, 0, 0})
	local := Scale(2)

	p := Compose(parent, local).MulPoint(Vec3{1, 1, 1})
	assert.Equal(t, Vec3{12, 2, 2}, p)

	q := Compose(local, parent).MulPoint(Vec3{1, 1, 1})
	assert.Equal(t, Vec3{22, 2, 2}, q)
}

func TestChainMatchesNestedCompose(t *testing.T) {
	a := Translate(Vec3{1, 2, 3})
	b := FromMat3Translation(RotZ(Deg2Rad(90)), Vec3{0, 0, 1})
	c := ScaleXYZ(1, 2, 3)
	assert.True(t, Chain(a, b, c).ApproxEqual(Compose(a, Compose(b, c)), 1e-12))
}

func TestFromLDrawFieldOrder(t *testing.T) {
	m := FromLDraw([12]float64{10, 20, 30, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, Vec3{10, 20, 30}, m.Translation())
	assert.Equal(t, 2.0, m.At(0, 1))
	assert.Equal(t, 4.0, m.At(1, 0))
	assert.Equal(t, 9.0, m.At(2, 2))
}

func TestRotationConvertsYDownToZUp(t *testing.T) {
	up := Rotation.MulPoint(Vec3{0, -1, 0})
	assert.Equal(t, Vec3{0, 0, 1}, up)

	back := Mat4Mul(ReverseRotation, Rotation)
	assert.True(t, back.IsIdentity())
}

func TestRootMatrixScales(t *testing.T) {
	p := RootMatrix(0.5).MulPoint(Vec3{2, -4, 6})
	assert.InDeltaSlice(t, []float64{1, 3, 2}, p[:], 1e-12)
}

func TestNormalizeNearZero(t *testing.T) {
	assert.Equal(t, Vec3{}, Vec3{1e-7, 0, 0}.Normalize())
	n := Vec3{3, 0, 4}.Normalize()
	assert.InDelta(t, 1.0, n.Len(), 1e-12)
	assert.InDelta(t, 0.6, n[0], 1e-12)
}

func TestCrossAndDot(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	assert.Equal(t, Vec3{0, 0, 1}, x.Cross(y))
	assert.Equal(t, 0.0, x.Dot(y))
	assert.Equal(t, 5.0, Vec3{0, 3, 4}.Dist(Vec3{}))
}

func TestDet3DetectsMirror(t *testing.T) {
	assert.Less(t, ScaleXYZ(-1, 1, 1).Det3(), 0.0)
	assert.Greater(t, Rotation.Det3(), 0.0)
}

func TestLookAtOrthonormal(t *testing.T) {
	basis := LookAt(Vec3{5, -5, 5}, Vec3{}, Vec3{0, 0, 1})
	right := Vec3{basis[0], basis[1], basis[2]}
	up := Vec3{basis[3], basis[4], basis[5]}
	back := Vec3{basis[6], basis[7], basis[8]}

	assert.InDelta(t, 0, right.Dot(up), 1e-9)
	assert.InDelta(t, 0, up.Dot(back), 1e-9)
	assert.InDelta(t, 1, back.Len(), 1e-9)
	assert.InDelta(t, 1/math.Sqrt(3), back[0], 1e-9)
	assert.Greater(t, up[2], 0.0)
}

func TestLookAtDegenerateUp(t *testing.T) {
	basis := LookAt(Vec3{0, 0, 10}, Vec3{}, Vec3{0, 0, 1})
	right := Vec3{basis[0], basis[1], basis[2]}
	assert.InDelta(t, 1, right.Len(), 1e-9)
}

func TestOrbitRotations(t *testing.T) {
	v := RotX(Deg2Rad(-90)).MulVec3(Vec3{0, -1, 0})
	assert.InDelta(t, 0, v[1], 1e-9)
	assert.InDelta(t, 1, v[2], 1e-9)

	w := RotZ(Deg2Rad(90)).MulVec3(Vec3{1, 0, 0})
	assert.InDelta(t, 0, w[0], 1e-9)
	assert.InDelta(t, 1, w[1], 1e-9)
}

func TestMat3Det(t *testing.T) {
	assert.Equal(t, 1.0, Mat3Identity().Det())
	assert.InDelta(t, 1.0, RotZ(Deg2Rad(30)).Det(), 1e-12)
	assert.Equal(t, -6.0, ScaleXYZ(-1, 2, 3).Linear().Det())
}
