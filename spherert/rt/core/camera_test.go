package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

func assertVecNear(t *testing.T, want, got mgl32.Vec3, msg string) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], eps, "%s: component %d (want %v, got %v)", msg, i, want, got)
	}
}

func TestCamera_ViewMatrixMapsPoseToAxis(t *testing.T) {
	poses := []struct {
		name            string
		pos, target, up mgl32.Vec3
	}{
		{"reference", mgl32.Vec3{0, 0, -50}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{"oblique", mgl32.Vec3{3, -7, 12}, mgl32.Vec3{-4, 2, 1}, mgl32.Vec3{0, 1, 0}},
		{"approximate up", mgl32.Vec3{10, 10, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0.1, 1, -0.05}},
		{"z up", mgl32.Vec3{0, -20, 5}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0, 0, 1}},
	}

	for _, tt := range poses {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.pos, tt.target, tt.up)
			require.NoError(t, cam.Validate())
			view := cam.ViewMatrix()

			eye := view.Mul4x1(tt.pos.Vec4(1)).Vec3()
			assertVecNear(t, mgl32.Vec3{}, eye, "position in view space")

			dist := tt.target.Sub(tt.pos).Len()
			tgt := view.Mul4x1(tt.target.Vec4(1)).Vec3()
			assertVecNear(t, mgl32.Vec3{0, 0, -dist}, tgt, "target in view space")

			// Orthonormal rotation part.
			for i := 0; i < 3; i++ {
				row := mgl32.Vec3{view.At(i, 0), view.At(i, 1), view.At(i, 2)}
				assert.InDelta(t, 1.0, row.Len(), eps)
			}
		})
	}
}

func TestCamera_MoveForwardRoundTrip(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{-5, 4, 0}, mgl32.Vec3{0, 1, 0})
	pos, tgt := cam.Position(), cam.Target()

	for _, d := range []float32{1, -3.5, 0.25, 40} {
		cam.MoveForward(d)
		cam.MoveForward(-d)
		assertVecNear(t, pos, cam.Position(), "position")
		assertVecNear(t, tgt, cam.Target(), "target")
	}
}

func TestCamera_MoveForwardPreservesLook(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	cam.MoveForward(10)
	assertVecNear(t, mgl32.Vec3{0, 0, -40}, cam.Position(), "position")
	assertVecNear(t, mgl32.Vec3{0, 0, 10}, cam.Target(), "target")
	assert.InDelta(t, 50, cam.Target().Sub(cam.Position()).Len(), eps)
}

func TestCamera_MoveRightIsLinear(t *testing.T) {
	a := NewCamera(mgl32.Vec3{2, 1, -9}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	b := NewCamera(mgl32.Vec3{2, 1, -9}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	a.MoveRight(1.5)
	a.MoveRight(-4)
	b.MoveRight(-2.5)

	assertVecNear(t, b.Position(), a.Position(), "position")
	assertVecNear(t, b.Target(), a.Target(), "target")
}

func TestCamera_MoveRightDirection(t *testing.T) {
	// Looking down +Z with +Y up, forward x up points to -X.
	cam := NewCamera(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	cam.MoveRight(1)
	assertVecNear(t, mgl32.Vec3{-1, 0, -50}, cam.Position(), "position")
	assertVecNear(t, mgl32.Vec3{-1, 0, 0}, cam.Target(), "target")
}

func TestCamera_MoveForwardDegenerateIsNaN(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0, 1, 0})
	cam.MoveForward(1)
	assert.True(t, math.IsNaN(float64(cam.Position().X())))
}

func TestCamera_ProjectionAspectScaling(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	cam.UpdateAspect(1.0)
	base := cam.ProjectionMatrix().At(0, 0)

	for _, a := range []float32{0.5, 4.0 / 3.0, 16.0 / 9.0, 3} {
		cam.UpdateAspect(a)
		got := cam.ProjectionMatrix().At(0, 0)
		assert.InDelta(t, base/a, got, eps, "aspect %v", a)
	}
	// (1,1) does not depend on aspect.
	assert.InDelta(t, base, cam.ProjectionMatrix().At(1, 1), eps)
}

func TestCamera_ProjectionDepthRange(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	cam.SetPerspective(60, 0.5, 200)
	proj := cam.ProjectionMatrix()

	ndcDepth := func(z float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 0, ndcDepth(-0.5), eps)
	assert.InDelta(t, 1, ndcDepth(-200), eps)
	mid := ndcDepth(-50)
	assert.Greater(t, mid, float32(0))
	assert.Less(t, mid, float32(1))
}

func TestCamera_ResizeUpdatesProjectionBeforeNextFrame(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	cam.UpdateAspect(1280.0 / 720.0)
	wide := cam.ProjectionMatrix().At(0, 0)

	cam.UpdateAspect(800.0 / 600.0)
	narrow := cam.ProjectionMatrix().At(0, 0)

	f := float32(1 / math.Tan(float64(mgl32.DegToRad(45))/2))
	assert.InDelta(t, f/(16.0/9.0), wide, eps)
	assert.InDelta(t, f/(4.0/3.0), narrow, eps)
}

func TestCamera_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cam     func() *Camera
		wantErr bool
	}{
		{"ok", func() *Camera { return NewCamera(mgl32.Vec3{0, 0, -50}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}) }, false},
		{"same point", func() *Camera { return NewCamera(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}) }, true},
		{"parallel up", func() *Camera { return NewCamera(mgl32.Vec3{0, -5, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}) }, true},
		{"zero up", func() *Camera { return NewCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{}, mgl32.Vec3{}) }, true},
		{"near zero", func() *Camera {
			c := NewCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
			c.SetPerspective(45, 0, 10)
			return c
		}, true},
		{"far before near", func() *Camera {
			c := NewCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
			c.SetPerspective(45, 10, 1)
			return c
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cam().Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCamera)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
