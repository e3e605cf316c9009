package gpu

import (
	"testing"
	"unsafe"

	"github.com/gekko3d/spheres/spherert/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLayout(t *testing.T) {
	tests := []struct {
		name   string
		size   uintptr
		stride int
	}{
		{"Sphere", unsafe.Sizeof(Sphere{}), SphereStride},
		{"Material", unsafe.Sizeof(Material{}), MaterialStride},
		{"CameraUniform", unsafe.Sizeof(CameraUniform{}), CameraUniformSize},
		{"LightUniform", unsafe.Sizeof(LightUniform{}), LightUniformSize},
		{"InstanceVertex", unsafe.Sizeof(InstanceVertex{}), InstanceVertexStride},
		{"MeshVertex", unsafe.Sizeof(MeshVertex{}), MeshVertexStride},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, uintptr(tt.stride), tt.size)
		})
	}

	for _, stride := range []int{SphereStride, MaterialStride, CameraUniformSize, LightUniformSize} {
		assert.Zero(t, stride%16, "stride %d not 16-byte aligned", stride)
	}

	var s Sphere
	assert.Equal(t, uintptr(12), unsafe.Offsetof(s.Radius))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(s.MaterialIndex))

	var m Material
	assert.Equal(t, uintptr(16), unsafe.Offsetof(m.Metallic))
	assert.Equal(t, uintptr(20), unsafe.Offsetof(m.Roughness))
	assert.Equal(t, uintptr(32), unsafe.Offsetof(m.Emission))

	var c CameraUniform
	assert.Equal(t, uintptr(64), unsafe.Offsetof(c.Position))
}

func TestSliceBytesMatchesExplicitEncoding(t *testing.T) {
	spheres := []Sphere{
		{Position: [3]float32{1, -2, 3.5}, Radius: 0.5, MaterialIndex: 99},
		{Position: [3]float32{-100, 100, 0}, Radius: 2, MaterialIndex: 0},
	}
	var want []byte
	for _, s := range spheres {
		want = s.AppendBytes(want)
	}
	assert.Equal(t, want, sliceBytes(spheres))
	assert.Equal(t, spheres, SpheresFromBytes(want))

	mats := []Material{
		{BaseColor: [4]float32{1, 0.5, 0.25, 1}, Metallic: 1, Roughness: 0.3, Emission: [3]float32{0.1, 0.2, 0.3}},
	}
	var wantMat []byte
	for _, m := range mats {
		wantMat = m.AppendBytes(wantMat)
	}
	require.Len(t, wantMat, MaterialStride)
	assert.Equal(t, wantMat, sliceBytes(mats))
	assert.Equal(t, mats, MaterialsFromBytes(wantMat))

	inst := []InstanceVertex{spheres[0].Instance()}
	assert.Equal(t, inst[0].AppendBytes(nil), sliceBytes(inst))

	assert.Nil(t, sliceBytes([]Sphere{}))
}

func TestUniformEncoding(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 1000)
	cam := NewCameraUniform(view, proj, mgl32.Vec3{0, 0, -50})

	assert.Equal(t, proj.Mul4(view), cam.ViewProjection)
	assert.Equal(t, mgl32.Vec4{0, 0, -50, 1}, cam.Position)

	b := cam.Bytes()
	require.Len(t, b, CameraUniformSize)
	assert.Equal(t, sliceBytes([]CameraUniform{cam}), b)
	// Column-major: element 12..14 is the translation column.
	assert.Equal(t, cam.ViewProjection[12], f32(b[48:]))
	assert.Equal(t, float32(1), f32(b[76:]))

	light := NewLightUniform(mgl32.Vec3{1, 2, 3})
	lb := light.Bytes()
	require.Len(t, lb, LightUniformSize)
	assert.Equal(t, []float32{1, 2, 3, 1}, []float32{f32(lb[0:]), f32(lb[4:]), f32(lb[8:]), f32(lb[12:])})
}

func TestPack(t *testing.T) {
	s := PackSphere(core.Sphere{Center: mgl32.Vec3{4, 5, 6}, Radius: 0.5, MaterialIndex: 7})
	assert.Equal(t, Sphere{Position: [3]float32{4, 5, 6}, Radius: 0.5, MaterialIndex: 7}, s)
	assert.Equal(t, InstanceVertex{Position: [3]float32{4, 5, 6}, Selector: [3]float32{0.5, 7, 0}}, s.Instance())

	mats := PackMaterials(core.Palette(3))
	require.Len(t, mats, 3)
	assert.Equal(t, core.Palette(3)[2].BaseColor, mats[2].BaseColor)
}
