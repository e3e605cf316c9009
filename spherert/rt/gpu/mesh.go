package gpu

import (
	"math"
)

const (
	DefaultMeshSegments = 16
	DefaultMeshRings    = 12

	// MaxMeshDivisions keeps (rings+1)*(segments+1) within the uint16 index
	// range.
	MaxMeshDivisions = 255
)

// SphereMesh is a unit UV sphere shared by every instance. Triangles wind
// clockwise when seen from outside.
type SphereMesh struct {
	Vertices []MeshVertex
	Indices  []uint16
}

// NewSphereMesh tessellates the unit sphere. segments is clamped to
// [3, MaxMeshDivisions] and rings to [2, MaxMeshDivisions].
func NewSphereMesh(segments, rings int) SphereMesh {
	segments = min(max(segments, 3), MaxMeshDivisions)
	rings = min(max(rings, 2), MaxMeshDivisions)

	vertices := make([]MeshVertex, 0, (rings+1)*(segments+1))
	for ring := 0; ring <= rings; ring++ {
		theta := float64(ring) * math.Pi / float64(rings)
		sinTheta, cosTheta := math.Sincos(theta)

		for seg := 0; seg <= segments; seg++ {
			phi := float64(seg) * 2.0 * math.Pi / float64(segments)
			sinPhi, cosPhi := math.Sincos(phi)

			p := [3]float32{
				float32(cosPhi * sinTheta),
				float32(cosTheta),
				float32(sinPhi * sinTheta),
			}
			// Normal equals position on the unit sphere.
			vertices = append(vertices, MeshVertex{Position: p, Normal: p})
		}
	}

	indices := make([]uint16, 0, rings*segments*6)
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint16(ring*(segments+1) + seg)
			next := current + uint16(segments) + 1

			indices = append(indices, current, next, current+1)
			indices = append(indices, current+1, next, next+1)
		}
	}

	return SphereMesh{Vertices: vertices, Indices: indices}
}

func (m SphereMesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}
