package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gekko3d/spheres/spherert/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// Record strides in bytes. All records are multiples of 16 so that arrays of
// them match WGSL storage layout rules.
const (
	SphereStride         = 32
	MaterialStride       = 48
	CameraUniformSize    = 80
	LightUniformSize     = 16
	InstanceVertexStride = 24
	MeshVertexStride     = 24
)

// Sphere matches
//
//	struct Sphere {
//	  position: vec3<f32>,       // 0
//	  radius: f32,               // 12
//	  material_index: u32,       // 16
//	  _pad0: u32, _pad1: u32, _pad2: u32,
//	} // 32 bytes
type Sphere struct {
	Position      [3]float32
	Radius        float32
	MaterialIndex uint32
	_             [3]uint32
}

// Material matches
//
//	struct Material {
//	  base_color: vec4<f32>,     // 0
//	  metallic: f32,             // 16
//	  roughness: f32,            // 20
//	  emission: vec3<f32>,       // 32
//	} // 48 bytes
type Material struct {
	BaseColor [4]float32
	Metallic  float32
	Roughness float32
	_         [2]float32
	Emission  [3]float32
	_         float32
}

// CameraUniform is rewritten every frame.
//
//	struct Camera {
//	  view_proj: mat4x4<f32>,    // 0, column-major
//	  position: vec4<f32>,       // 64
//	} // 80 bytes
type CameraUniform struct {
	ViewProjection mgl32.Mat4
	Position       mgl32.Vec4
}

// LightUniform is a single point light, rewritten every frame.
type LightUniform struct {
	Position mgl32.Vec4
}

// InstanceVertex is the per-instance vertex stream: center plus a selector of
// (radius, material index, 0).
type InstanceVertex struct {
	Position [3]float32
	Selector [3]float32
}

// MeshVertex is the per-vertex stream of the shared sphere mesh.
type MeshVertex struct {
	Position [3]float32
	Normal   [3]float32
}

func NewCameraUniform(view, proj mgl32.Mat4, position mgl32.Vec3) CameraUniform {
	return CameraUniform{
		ViewProjection: proj.Mul4(view),
		Position:       position.Vec4(1),
	}
}

func NewLightUniform(position mgl32.Vec3) LightUniform {
	return LightUniform{Position: position.Vec4(1)}
}

func PackSphere(s core.Sphere) Sphere {
	return Sphere{
		Position:      [3]float32{s.Center.X(), s.Center.Y(), s.Center.Z()},
		Radius:        s.Radius,
		MaterialIndex: s.MaterialIndex,
	}
}

func PackSpheres(in []core.Sphere) []Sphere {
	out := make([]Sphere, len(in))
	for i, s := range in {
		out[i] = PackSphere(s)
	}
	return out
}

func PackMaterial(m core.Material) Material {
	return Material{
		BaseColor: m.BaseColor,
		Metallic:  m.Metallic,
		Roughness: m.Roughness,
		Emission:  m.Emission,
	}
}

func PackMaterials(in []core.Material) []Material {
	out := make([]Material, len(in))
	for i, m := range in {
		out[i] = PackMaterial(m)
	}
	return out
}

// Instance derives the vertex-stream record for s.
func (s Sphere) Instance() InstanceVertex {
	return InstanceVertex{
		Position: s.Position,
		Selector: [3]float32{s.Radius, float32(s.MaterialIndex), 0},
	}
}

// Explicit little-endian encoders. These are the reference layout; the bulk
// upload path reinterprets slices in place (see sliceBytes).

func (s Sphere) AppendBytes(buf []byte) []byte {
	buf = appendVec(buf, s.Position[:]...)
	buf = appendVec(buf, s.Radius)
	buf = binary.LittleEndian.AppendUint32(buf, s.MaterialIndex)
	return append(buf, make([]byte, 12)...)
}

func (m Material) AppendBytes(buf []byte) []byte {
	buf = appendVec(buf, m.BaseColor[:]...)
	buf = appendVec(buf, m.Metallic, m.Roughness, 0, 0)
	buf = appendVec(buf, m.Emission[:]...)
	return appendVec(buf, 0)
}

func (c CameraUniform) Bytes() []byte {
	buf := make([]byte, 0, CameraUniformSize)
	buf = appendVec(buf, c.ViewProjection[:]...)
	return appendVec(buf, c.Position[:]...)
}

func (l LightUniform) Bytes() []byte {
	return appendVec(make([]byte, 0, LightUniformSize), l.Position[:]...)
}

func (v InstanceVertex) AppendBytes(buf []byte) []byte {
	buf = appendVec(buf, v.Position[:]...)
	return appendVec(buf, v.Selector[:]...)
}

func appendVec(buf []byte, vs ...float32) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// sliceBytes views a slice of fixed-layout records as raw bytes without
// copying. Only valid on little-endian hosts, which is every platform wgpu
// runs on.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero)) * len(s)
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), size)
}

// SpheresFromBytes decodes tightly packed sphere records.
func SpheresFromBytes(b []byte) []Sphere {
	out := make([]Sphere, len(b)/SphereStride)
	for i := range out {
		r := b[i*SphereStride:]
		out[i] = Sphere{
			Position:      [3]float32{f32(r[0:]), f32(r[4:]), f32(r[8:])},
			Radius:        f32(r[12:]),
			MaterialIndex: binary.LittleEndian.Uint32(r[16:]),
		}
	}
	return out
}

// MaterialsFromBytes decodes tightly packed material records.
func MaterialsFromBytes(b []byte) []Material {
	out := make([]Material, len(b)/MaterialStride)
	for i := range out {
		r := b[i*MaterialStride:]
		out[i] = Material{
			BaseColor: [4]float32{f32(r[0:]), f32(r[4:]), f32(r[8:]), f32(r[12:])},
			Metallic:  f32(r[16:]),
			Roughness: f32(r[20:]),
			Emission:  [3]float32{f32(r[32:]), f32(r[36:]), f32(r[40:])},
		}
	}
	return out
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
