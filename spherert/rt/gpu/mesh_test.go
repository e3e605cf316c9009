package gpu

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphereMesh_Counts(t *testing.T) {
	m := NewSphereMesh(DefaultMeshSegments, DefaultMeshRings)
	assert.Len(t, m.Vertices, (DefaultMeshRings+1)*(DefaultMeshSegments+1))
	assert.Equal(t, uint32(DefaultMeshRings*DefaultMeshSegments*6), m.IndexCount())
	// Index buffer byte size must stay 4-byte aligned for queue writes.
	assert.Zero(t, len(m.Indices)*2%4)

	for _, idx := range m.Indices {
		require.Less(t, int(idx), len(m.Vertices))
	}
}

func TestSphereMesh_ClampsDivisions(t *testing.T) {
	tests := []struct {
		name                    string
		segments, rings         int
		wantSegments, wantRings int
	}{
		{"too few", 1, 0, 3, 2},
		{"at max", MaxMeshDivisions, MaxMeshDivisions, MaxMeshDivisions, MaxMeshDivisions},
		{"past uint16 range", 400, 300, MaxMeshDivisions, MaxMeshDivisions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSphereMesh(tt.segments, tt.rings)
			require.Len(t, m.Vertices, (tt.wantRings+1)*(tt.wantSegments+1))
			assert.Equal(t, uint32(tt.wantRings*tt.wantSegments*6), m.IndexCount())
			assert.LessOrEqual(t, len(m.Vertices), math.MaxUint16+1)
			for _, idx := range m.Indices {
				if int(idx) >= len(m.Vertices) {
					t.Fatalf("index %d out of range for %d vertices", idx, len(m.Vertices))
				}
			}
			// The last triangle references the last vertex, so no index wrapped.
			assert.Equal(t, uint16(len(m.Vertices)-1), m.Indices[len(m.Indices)-1])
		})
	}
}

func TestSphereMesh_UnitRadiusAndNormals(t *testing.T) {
	m := NewSphereMesh(8, 6)
	for i, v := range m.Vertices {
		p := mgl32.Vec3(v.Position)
		assert.InDelta(t, 1.0, p.Len(), 1e-5, "vertex %d", i)
		assert.Equal(t, v.Position, v.Normal)
	}
}

func TestSphereMesh_ClockwiseFromOutside(t *testing.T) {
	m := NewSphereMesh(DefaultMeshSegments, DefaultMeshRings)
	checked := 0
	for i := 0; i < len(m.Indices); i += 3 {
		a := mgl32.Vec3(m.Vertices[m.Indices[i]].Position)
		b := mgl32.Vec3(m.Vertices[m.Indices[i+1]].Position)
		c := mgl32.Vec3(m.Vertices[m.Indices[i+2]].Position)

		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() < 1e-6 {
			continue // collapsed triangle at a pole
		}
		centroid := a.Add(b).Add(c).Mul(1.0 / 3.0)
		assert.Less(t, n.Dot(centroid), float32(0), "triangle %d winds counter-clockwise", i/3)
		checked++
	}
	assert.Greater(t, checked, 0)
}
