package app

import (
	"fmt"
	"math/rand/v2"

	spheres "github.com/gekko3d/spheres"
	"github.com/gekko3d/spheres/spherert/rt/core"
	"github.com/gekko3d/spheres/spherert/rt/gpu"
	"github.com/gekko3d/spheres/spherert/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Renderer owns the device and everything built on it. Construct with
// NewRenderer (window) or NewHeadlessRenderer (offscreen).
type Renderer struct {
	ID     uuid.UUID
	Config Config
	Log    spheres.Logger

	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Surface  *wgpu.Surface
	Target   FrameTarget

	Camera    *core.Camera
	Resources *gpu.ResourceSet
	Pipelines *gpu.Pipelines
	Driver    *FrameDriver
	Profiler  *Profiler
}

func newRenderer(cfg Config, log spheres.Logger) *Renderer {
	id := uuid.New()
	prefix := "spheres " + id.String()[:8]
	switch l := log.(type) {
	case nil:
		log = spheres.NewDefaultLogger(prefix, cfg.Debug)
	case *spheres.DefaultLogger:
		log = l.WithPrefix(prefix)
	}
	return &Renderer{
		ID:       id,
		Config:   cfg.Normalize(),
		Log:      log,
		Profiler: NewProfiler(),
	}
}

// Label prefixes GPU object labels with the renderer ID.
func (r *Renderer) Label() string {
	return "spheres-" + r.ID.String()[:8]
}

func NewRenderer(window *glfw.Window, cfg Config, log spheres.Logger) (*Renderer, error) {
	r := newRenderer(cfg, log)
	r.Instance = wgpu.CreateInstance(nil)
	r.Surface = r.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	width, height := window.GetFramebufferSize()
	if err := r.init(func() (FrameTarget, error) {
		return NewSurfaceTarget(r.Surface, r.Adapter, r.Device, uint32(width), uint32(height), r.Label())
	}); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// NewHeadlessRenderer renders into an offscreen texture of cfg.Width x
// cfg.Height. No window or surface is involved.
func NewHeadlessRenderer(cfg Config, log spheres.Logger) (*Renderer, error) {
	r := newRenderer(cfg, log)
	r.Instance = wgpu.CreateInstance(nil)

	if err := r.init(func() (FrameTarget, error) {
		return NewOffscreenTarget(r.Device, uint32(r.Config.Width), uint32(r.Config.Height), r.Label())
	}); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(newTarget func() (FrameTarget, error)) error {
	var err error
	r.Adapter, err = r.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAdapter, err)
	}
	r.Device, err = r.Adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: r.Label() + "/Device",
	})
	if err != nil {
		return fmt.Errorf("%w: request device: %v", ErrAdapter, err)
	}

	if r.Target, err = newTarget(); err != nil {
		return err
	}
	width, height := r.Target.Size()

	r.Camera = core.NewCamera(r.Config.CameraPosition, r.Config.CameraTarget, mgl32.Vec3{0, 1, 0})
	r.Camera.UpdateAspect(float32(width) / float32(height))
	if err := r.Camera.Validate(); err != nil {
		return err
	}

	r.Resources, err = gpu.NewResourceSet(r.Device, r.Config.Limits(), r.Label(), r.Log)
	if err != nil {
		return err
	}
	r.Pipelines, err = gpu.BuildPipelines(r.Device, r.Resources, gpu.ShaderSources{
		Compute:  shaders.ComputeWGSL,
		Vertex:   shaders.VertexWGSL,
		Fragment: shaders.FragmentWGSL,
	}, r.Target.Format(), r.Config.WorkgroupSize)
	if err != nil {
		return err
	}

	c := r.Config.ClearColor
	r.Driver = &FrameDriver{
		Resources:  r.Resources,
		Pipelines:  r.Pipelines,
		Compute:    r.Config.Compute,
		LoadOnly:   r.Config.LoadOnly,
		ClearColor: wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]},
		Profiler:   r.Profiler,
	}

	r.Log.Infof("renderer ready: %dx%d, format %v, capacity %d spheres / %d materials",
		width, height, r.Target.Format(), r.Config.SphereCapacity, r.Config.MaterialCapacity)
	return nil
}

// LoadDefaultScene uploads the generated sphere cloud and material palette.
func (r *Renderer) LoadDefaultScene() error {
	rng := rand.New(rand.NewPCG(r.Config.Seed, r.Config.Seed^0x9e3779b97f4a7c15))
	batch := core.RandomSpheres(r.Config.SphereCount, r.Config.MaterialCapacity, r.Config.SceneExtent, r.Config.SphereRadius, rng)
	return r.LoadScene(batch, core.Palette(int(r.Config.MaterialCapacity)))
}

// LoadScene replaces the material table and all sphere instances.
func (r *Renderer) LoadScene(batch []core.Sphere, materials []core.Material) error {
	if err := r.Resources.UpdateMaterialData(gpu.PackMaterials(materials)); err != nil {
		return err
	}
	if err := r.Resources.UpdateSphereData(gpu.PackSpheres(batch)); err != nil {
		return err
	}
	r.Log.Infof("scene loaded: %d spheres, %d materials", len(batch), len(materials))
	return nil
}

// FrameInputs derives this frame's matrices from the camera and light policy.
func (r *Renderer) FrameInputs() FrameInputs {
	pos := r.Camera.Position()
	return FrameInputs{
		View:           r.Camera.ViewMatrix(),
		Projection:     r.Camera.ProjectionMatrix(),
		CameraPosition: pos,
		LightPosition:  r.Config.Light.LightPosition(pos),
	}
}

func (r *Renderer) RenderFrame() error {
	return r.Driver.Frame(r.Target, r.FrameInputs())
}

// Reconfigure re-applies the current size after a lost surface.
func (r *Renderer) Reconfigure() error {
	w, h := r.Target.Size()
	return r.Target.Reconfigure(w, h)
}

// Resize reconfigures the target and updates the camera aspect so the next
// frame uses the new projection. Zero sizes are ignored.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := r.Target.Reconfigure(uint32(width), uint32(height)); err != nil {
		return err
	}
	r.Camera.UpdateAspect(float32(width) / float32(height))
	r.Log.Debugf("resized to %dx%d", width, height)
	return nil
}

func (r *Renderer) MoveForward(steps float32) {
	r.Camera.MoveForward(steps * r.Config.MoveStep)
}

func (r *Renderer) MoveRight(steps float32) {
	r.Camera.MoveRight(steps * r.Config.MoveStep)
}

// ReadDepth returns the last frame's depth buffer, row-major.
func (r *Renderer) ReadDepth() ([]float32, uint32, uint32, error) {
	d := r.Target.Depth()
	depth, err := d.Read(r.Device)
	return depth, d.Width, d.Height, err
}

// Release tears down in reverse acquisition order.
func (r *Renderer) Release() {
	if r.Pipelines != nil {
		r.Pipelines.Release()
		r.Pipelines = nil
	}
	if r.Resources != nil {
		r.Resources.Release()
		r.Resources = nil
	}
	if r.Target != nil {
		r.Target.Release()
		r.Target = nil
	}
	if r.Surface != nil {
		r.Surface.Release()
		r.Surface = nil
	}
	if r.Device != nil {
		r.Device.Release()
		r.Device = nil
	}
	if r.Adapter != nil {
		r.Adapter.Release()
		r.Adapter = nil
	}
	if r.Instance != nil {
		r.Instance.Release()
		r.Instance = nil
	}
}
