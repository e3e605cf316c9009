package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

const DefaultWorkgroupSize = 64

var ErrPipelineBuild = errors.New("pipeline build failed")

// ShaderSources holds WGSL text for the three stages. Entry points are fixed:
// "main" for compute, "vs_main" and "fs_main" for the render pipeline.
type ShaderSources struct {
	Compute  string
	Vertex   string
	Fragment string
}

type Pipelines struct {
	Compute *wgpu.ComputePipeline
	Render  *wgpu.RenderPipeline

	ComputeLayout *wgpu.PipelineLayout
	RenderLayout  *wgpu.PipelineLayout

	WorkgroupSize uint32

	modules []*wgpu.ShaderModule
}

// WorkgroupCount returns ceil(n / size), the number of workgroups needed to
// cover n spheres.
func WorkgroupCount(n, size uint32) uint32 {
	if size == 0 {
		size = DefaultWorkgroupSize
	}
	return (n + size - 1) / size
}

// BuildPipelines compiles the shaders and builds the compute and render
// pipelines against rs's bind group layouts. Every error wraps
// ErrPipelineBuild.
func BuildPipelines(device *wgpu.Device, rs *ResourceSet, src ShaderSources, format wgpu.TextureFormat, workgroupSize uint32) (_ *Pipelines, err error) {
	if workgroupSize == 0 {
		workgroupSize = DefaultWorkgroupSize
	}
	p := &Pipelines{WorkgroupSize: workgroupSize}
	defer func() {
		if err != nil {
			p.Release()
			err = fmt.Errorf("%w: %w", ErrPipelineBuild, err)
		}
	}()

	computeModule, err := p.createModule(device, rs.label("ComputeShader"), src.Compute)
	if err != nil {
		return nil, err
	}
	vertexModule, err := p.createModule(device, rs.label("VertexShader"), src.Vertex)
	if err != nil {
		return nil, err
	}
	fragmentModule, err := p.createModule(device, rs.label("FragmentShader"), src.Fragment)
	if err != nil {
		return nil, err
	}

	// The compute pass only sees the read-write alias of the sphere buffer.
	p.ComputeLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            rs.label("ComputePipelineLayout"),
		BindGroupLayouts: []*wgpu.BindGroupLayout{rs.ComputeLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("compute layout: %w", err)
	}
	p.Compute, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  rs.label("ComputePipeline"),
		Layout: p.ComputeLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     computeModule,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compute pipeline: %w", err)
	}

	p.RenderLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            rs.label("RenderPipelineLayout"),
		BindGroupLayouts: []*wgpu.BindGroupLayout{rs.CameraLayout, rs.SceneLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("render layout: %w", err)
	}
	p.Render, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  rs.label("RenderPipeline"),
		Layout: p.RenderLayout,
		Vertex: wgpu.VertexState{
			Module:     vertexModule,
			EntryPoint: "vs_main",
			Buffers:    VertexBufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragmentModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorZero,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorZero,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render pipeline: %w", err)
	}
	return p, nil
}

// VertexBufferLayouts describes slot 0 (shared mesh, per vertex) and slot 1
// (sphere instances, per instance).
func VertexBufferLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: MeshVertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		},
		{
			ArrayStride: InstanceVertexStride,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 2},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 3},
			},
		},
	}
}

func (p *Pipelines) createModule(device *wgpu.Device, label, code string) (*wgpu.ShaderModule, error) {
	if code == "" {
		return nil, fmt.Errorf("%s: empty source", label)
	}
	m, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	p.modules = append(p.modules, m)
	return m, nil
}

// Dispatch records the compute pass over n spheres. A zero count records
// nothing.
func (p *Pipelines) Dispatch(encoder *wgpu.CommandEncoder, rs *ResourceSet, n uint32) error {
	if n == 0 {
		return nil
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.Compute)
	pass.SetBindGroup(0, rs.ComputeBindGroup, nil)
	pass.DispatchWorkgroups(WorkgroupCount(n, p.WorkgroupSize), 1, 1)
	err := pass.End()
	pass.Release()
	return err
}

func (p *Pipelines) Release() {
	if p.Render != nil {
		p.Render.Release()
		p.Render = nil
	}
	if p.RenderLayout != nil {
		p.RenderLayout.Release()
		p.RenderLayout = nil
	}
	if p.Compute != nil {
		p.Compute.Release()
		p.Compute = nil
	}
	if p.ComputeLayout != nil {
		p.ComputeLayout.Release()
		p.ComputeLayout = nil
	}
	for i := len(p.modules) - 1; i >= 0; i-- {
		p.modules[i].Release()
	}
	p.modules = nil
}
