package edges

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
)

func TestBuildIsSymmetric(t *testing.T) {
	verts := []mathutil.Vec3{{0, 0, 0}, {10, 0, 0}, {10, 10, 0}}
	raw := []ldraw.Edge{{{0.01, 0, 0}, {9.99, 0, 0}}}

	ix := Build(verts, raw, 0.1)
	assert.True(t, ix.Has(0, 1))
	assert.True(t, ix.Has(1, 0))
	assert.False(t, ix.Has(1, 2))
	assert.Equal(t, 2, ix.Len())
}

func TestBuildMarksAllAmbiguousMatches(t *testing.T) {
	verts := []mathutil.Vec3{{0, 0, 0}, {0.02, 0, 0}, {5, 0, 0}}
	raw := []ldraw.Edge{{{0.01, 0, 0}, {5, 0, 0}}}

	ix := Build(verts, raw, 0.1)
	assert.True(t, ix.Has(0, 2))
	assert.True(t, ix.Has(1, 2))
	assert.False(t, ix.Has(0, 1))
}

func TestBuildEmpty(t *testing.T) {
	assert.Equal(t, 0, Build(nil, []ldraw.Edge{{}}, 0.1).Len())
	assert.Equal(t, 0, Build([]mathutil.Vec3{{}}, nil, 0.1).Len())
}
