package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// clipDepthRemap maps OpenGL clip depth [-w, w] onto the [0, w] range WebGPU
// rasterizes against.
var clipDepthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

var ErrInvalidCamera = errors.New("invalid camera")

// Camera is a look-at camera: a pose (position, target, up) plus perspective
// parameters. Fov is in degrees.
type Camera struct {
	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3
	aspect   float32
	fov      float32
	near     float32
	far      float32
}

func NewCamera(position, target, up mgl32.Vec3) *Camera {
	return &Camera{
		position: position,
		target:   target,
		up:       up,
		aspect:   16.0 / 9.0,
		fov:      45.0,
		near:     0.1,
		far:      1000.0,
	}
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }
func (c *Camera) Target() mgl32.Vec3   { return c.target }
func (c *Camera) Up() mgl32.Vec3       { return c.up }
func (c *Camera) Aspect() float32      { return c.aspect }
func (c *Camera) FovY() float32        { return c.fov }
func (c *Camera) Near() float32        { return c.near }
func (c *Camera) Far() float32         { return c.far }

func (c *Camera) SetPerspective(fovDegrees, near, far float32) {
	c.fov = fovDegrees
	c.near = near
	c.far = far
}

// Validate reports the first violated invariant: near > 0, far > near, a
// non-zero view direction and an up vector not parallel to it.
func (c *Camera) Validate() error {
	if c.near <= 0 {
		return fmt.Errorf("%w: near plane %v must be positive", ErrInvalidCamera, c.near)
	}
	if c.far <= c.near {
		return fmt.Errorf("%w: far plane %v must exceed near plane %v", ErrInvalidCamera, c.far, c.near)
	}
	dir := c.target.Sub(c.position)
	if dir.Len() == 0 {
		return fmt.Errorf("%w: position equals target", ErrInvalidCamera)
	}
	if c.up.Len() == 0 || dir.Cross(c.up).Len() <= 1e-6*dir.Len()*c.up.Len() {
		return fmt.Errorf("%w: up %v is parallel to view direction", ErrInvalidCamera, c.up)
	}
	return nil
}

// ViewMatrix is a right-handed look-at transform. The basis is rebuilt from
// the view direction, so up only needs to be roughly vertical.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.target, c.up)
}

// ProjectionMatrix is a right-handed perspective projection with clip depth
// in [0, 1].
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
	return clipDepthRemap.Mul4(proj)
}

// UpdateAspect takes effect from the next projection computed.
func (c *Camera) UpdateAspect(aspect float32) {
	c.aspect = aspect
}

func (c *Camera) forward() mgl32.Vec3 {
	return c.target.Sub(c.position).Normalize()
}

// MoveForward translates position and target along the view direction.
// With position == target the direction is undefined and the pose becomes NaN.
func (c *Camera) MoveForward(distance float32) {
	delta := c.forward().Mul(distance)
	c.position = c.position.Add(delta)
	c.target = c.target.Add(delta)
}

// MoveRight strafes along forward x up.
func (c *Camera) MoveRight(distance float32) {
	right := c.forward().Cross(c.up).Normalize()
	delta := right.Mul(distance)
	c.position = c.position.Add(delta)
	c.target = c.target.Add(delta)
}
