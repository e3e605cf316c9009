package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gekko3d/spheres/spherert/rt/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// LightPolicy decides where the point light sits each frame.
type LightPolicy interface {
	LightPosition(camera mgl32.Vec3) mgl32.Vec3
}

type lightTracksCamera struct{}

func (lightTracksCamera) LightPosition(camera mgl32.Vec3) mgl32.Vec3 { return camera }

// LightTracksCamera places the light at the camera position.
var LightTracksCamera LightPolicy = lightTracksCamera{}

// LightFixed keeps the light at a world position.
type LightFixed struct {
	Position mgl32.Vec3
}

func (l LightFixed) LightPosition(mgl32.Vec3) mgl32.Vec3 { return l.Position }

type Config struct {
	Width  int
	Height int
	Title  string

	SphereCount      int
	SphereCapacity   uint32
	MaterialCapacity uint32
	SceneExtent      float32
	SphereRadius     float32
	Seed             uint64

	WorkgroupSize uint32
	Compute       bool
	ClearColor    [4]float64
	// LoadOnly keeps the previous swapchain contents instead of clearing.
	LoadOnly bool

	CameraPosition mgl32.Vec3
	CameraTarget   mgl32.Vec3
	MoveStep       float32
	Light          LightPolicy

	Debug    bool
	Snapshot string
}

func DefaultConfig() Config {
	return Config{
		Width:            1280,
		Height:           720,
		Title:            "PBR Spheres",
		SphereCount:      gpu.DefaultSphereCapacity,
		SphereCapacity:   gpu.DefaultSphereCapacity,
		MaterialCapacity: gpu.DefaultMaterialCapacity,
		SceneExtent:      100,
		SphereRadius:     0.5,
		Seed:             1,
		WorkgroupSize:    gpu.DefaultWorkgroupSize,
		Compute:          true,
		ClearColor:       [4]float64{0.02, 0.02, 0.03, 1},
		CameraPosition:   mgl32.Vec3{0, 0, -50},
		CameraTarget:     mgl32.Vec3{0, 0, 0},
		MoveStep:         1,
		Light:            LightTracksCamera,
	}
}

// Normalize fills unset fields with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.SphereCapacity == 0 {
		c.SphereCapacity = d.SphereCapacity
	}
	if c.MaterialCapacity == 0 {
		c.MaterialCapacity = d.MaterialCapacity
	}
	if c.SphereCount < 0 {
		c.SphereCount = 0
	}
	if uint64(c.SphereCount) > uint64(c.SphereCapacity) {
		c.SphereCapacity = uint32(c.SphereCount)
	}
	if c.SceneExtent <= 0 {
		c.SceneExtent = d.SceneExtent
	}
	if c.SphereRadius <= 0 {
		c.SphereRadius = d.SphereRadius
	}
	if c.WorkgroupSize == 0 {
		c.WorkgroupSize = d.WorkgroupSize
	}
	if c.CameraPosition == c.CameraTarget {
		c.CameraPosition, c.CameraTarget = d.CameraPosition, d.CameraTarget
	}
	if c.MoveStep == 0 {
		c.MoveStep = d.MoveStep
	}
	if c.Light == nil {
		c.Light = d.Light
	}
	return c
}

func (c Config) Limits() gpu.Limits {
	return gpu.Limits{SphereCapacity: c.SphereCapacity, MaterialCapacity: c.MaterialCapacity}
}

// ParseVec3 parses "x,y,z".
func ParseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("vec3 %q: want x,y,z", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("vec3 %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
