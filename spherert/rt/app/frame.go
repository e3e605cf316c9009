package app

import (
	"fmt"

	"github.com/gekko3d/spheres/spherert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// FrameInputs is everything the host supplies per frame.
type FrameInputs struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	CameraPosition mgl32.Vec3
	LightPosition  mgl32.Vec3
}

// BuildUniforms computes projection * view and packs both uniform records.
func BuildUniforms(in FrameInputs) (gpu.CameraUniform, gpu.LightUniform) {
	return gpu.NewCameraUniform(in.View, in.Projection, in.CameraPosition),
		gpu.NewLightUniform(in.LightPosition)
}

// FrameDriver records and submits one frame: uniforms, optional compute
// dispatch, one instanced draw, present.
type FrameDriver struct {
	Resources  *gpu.ResourceSet
	Pipelines  *gpu.Pipelines
	Compute    bool
	LoadOnly   bool
	ClearColor wgpu.Color
	Profiler   *Profiler
}

func (d *FrameDriver) Frame(target FrameTarget, in FrameInputs) error {
	rs := d.Resources
	if err := rs.Bound(); err != nil {
		return err
	}
	prof := d.Profiler
	if prof == nil {
		prof = NewProfiler()
		d.Profiler = prof
	}

	prof.BeginScope("uniforms")
	cam, light := BuildUniforms(in)
	err := rs.WriteFrameUniforms(cam, light)
	prof.EndScope("uniforms")
	if err != nil {
		return err
	}

	view, err := target.Acquire()
	if err != nil {
		return classifySurfaceError(err)
	}

	prof.BeginScope("encode")
	cmd, err := d.encode(view, target.DepthView())
	prof.EndScope("encode")
	if err != nil {
		target.Discard()
		return err
	}

	prof.BeginScope("submit")
	rs.Queue.Submit(cmd)
	cmd.Release()
	target.Present()
	prof.EndScope("submit")

	prof.SetCount("spheres", int(rs.ActiveSpheres))
	return nil
}

func (d *FrameDriver) encode(view, depth *wgpu.TextureView) (*wgpu.CommandBuffer, error) {
	rs := d.Resources

	encoder, err := rs.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	if d.Compute {
		if err := d.Pipelines.Dispatch(encoder, rs, rs.ActiveSpheres); err != nil {
			return nil, fmt.Errorf("compute pass: %w", err)
		}
	}

	loadOp := wgpu.LoadOpClear
	if d.LoadOnly {
		loadOp = wgpu.LoadOpLoad
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: d.ClearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(d.Pipelines.Render)
	pass.SetBindGroup(0, rs.CameraBindGroup, nil)
	pass.SetBindGroup(1, rs.SceneBindGroup, nil)
	pass.SetVertexBuffer(0, rs.MeshVertexBuf, 0, wgpu.WholeSize)
	pass.SetVertexBuffer(1, rs.InstanceBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(rs.MeshIndexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	if rs.ActiveSpheres > 0 {
		pass.DrawIndexed(rs.MeshIndexCount, rs.ActiveSpheres, 0, 0, 0)
	}
	err = pass.End()
	pass.Release()
	if err != nil {
		return nil, fmt.Errorf("render pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	return cmd, nil
}
