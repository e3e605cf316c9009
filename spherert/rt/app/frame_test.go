package app

import (
	"errors"
	"testing"

	"github.com/gekko3d/spheres/spherert/rt/core"
	"github.com/gekko3d/spheres/spherert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestBuildUniforms(t *testing.T) {
	cam := core.NewCamera(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	in := FrameInputs{
		View:           cam.ViewMatrix(),
		Projection:     cam.ProjectionMatrix(),
		CameraPosition: cam.Position(),
		LightPosition:  mgl32.Vec3{1, 2, 3},
	}
	c, l := BuildUniforms(in)

	assert.Equal(t, in.Projection.Mul4(in.View), c.ViewProjection)
	assert.Equal(t, mgl32.Vec4{0, 0, -50, 1}, c.Position)
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 1}, l.Position)

	// The target lands at the center of clip space.
	clip := c.ViewProjection.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)
}

func TestClassifySurfaceError(t *testing.T) {
	const prefix = "wgpu.(*Surface).GetCurrentTexture(): surface status "
	tests := []struct {
		msg  string
		want error
	}{
		{prefix + wgpu.SurfaceGetCurrentTextureStatusLost.String(), ErrSurfaceLost},
		{prefix + wgpu.SurfaceGetCurrentTextureStatusOutdated.String(), ErrSurfaceLost},
		{prefix + wgpu.SurfaceGetCurrentTextureStatusTimeout.String(), ErrSurfaceLost},
		{prefix + "out-of-memory", ErrSurfaceOutOfMemory},
		{prefix + "device-lost", ErrDeviceLost},
		{"wgpu.(*Surface).GetCurrentTexture(): Validation Error: surface lost its device", nil},
		{"validation failed", nil},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := classifySurfaceError(errors.New(tt.msg))
			if tt.want == nil {
				assert.False(t, errors.Is(err, ErrSurfaceLost))
				assert.False(t, errors.Is(err, ErrSurfaceOutOfMemory))
				assert.False(t, errors.Is(err, ErrDeviceLost))
				assert.Contains(t, err.Error(), tt.msg)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			for _, other := range []error{ErrSurfaceLost, ErrSurfaceOutOfMemory, ErrDeviceLost} {
				if other != tt.want {
					assert.False(t, errors.Is(err, other), "also matched %v", other)
				}
			}
		})
	}

	assert.NoError(t, classifySurfaceError(nil))
	assert.Same(t, ErrSurfaceLost, classifySurfaceError(ErrSurfaceLost))
}

func TestFrame_RejectsUnboundResources(t *testing.T) {
	d := &FrameDriver{Resources: &gpu.ResourceSet{ActiveSpheres: 4}}
	err := d.Frame(nil, FrameInputs{})
	assert.ErrorIs(t, err, gpu.ErrUnbound)
}
