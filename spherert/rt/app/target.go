package app

import (
	"fmt"

	"github.com/gekko3d/spheres/spherert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
)

// FrameTarget is the presentation side of a frame. Acquire hands out the
// color view for this frame; exactly one of Present or Discard follows a
// successful Acquire.
type FrameTarget interface {
	Acquire() (*wgpu.TextureView, error)
	DepthView() *wgpu.TextureView
	Present()
	Discard()
	Reconfigure(width, height uint32) error
	Size() (width, height uint32)
	Format() wgpu.TextureFormat
	Depth() *gpu.DepthBuffer
	Release()
}

// SurfaceTarget presents to a window surface.
type SurfaceTarget struct {
	Surface *wgpu.Surface
	Adapter *wgpu.Adapter
	Device  *wgpu.Device
	Config  *wgpu.SurfaceConfiguration
	depth   *gpu.DepthBuffer

	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func NewSurfaceTarget(surface *wgpu.Surface, adapter *wgpu.Adapter, device *wgpu.Device, width, height uint32, label string) (*SurfaceTarget, error) {
	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return nil, fmt.Errorf("%w: surface reports no formats", ErrAdapter)
	}
	t := &SurfaceTarget{
		Surface: surface,
		Adapter: adapter,
		Device:  device,
		Config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      PreferredSurfaceFormat(caps.Formats),
			Width:       max(width, 1),
			Height:      max(height, 1),
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   caps.AlphaModes[0],
		},
	}
	surface.Configure(adapter, device, t.Config)

	depth, err := gpu.NewDepthBuffer(device, t.Config.Width, t.Config.Height, label)
	if err != nil {
		return nil, err
	}
	t.depth = depth
	return t, nil
}

// PreferredSurfaceFormat returns the first sRGB format the surface offers so
// shading output is gamma-encoded on present, or formats[0] when none is sRGB.
func PreferredSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		switch f {
		case wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb:
			return f
		}
	}
	return formats[0]
}

func (t *SurfaceTarget) Acquire() (*wgpu.TextureView, error) {
	tex, err := t.Surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	t.texture, t.view = tex, view
	return view, nil
}

func (t *SurfaceTarget) DepthView() *wgpu.TextureView { return t.depth.View }

func (t *SurfaceTarget) Depth() *gpu.DepthBuffer { return t.depth }

func (t *SurfaceTarget) Present() {
	if t.texture == nil {
		return
	}
	t.Surface.Present()
	t.releaseFrame()
}

func (t *SurfaceTarget) Discard() {
	t.releaseFrame()
}

func (t *SurfaceTarget) releaseFrame() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// Reconfigure applies a new size to the surface and depth buffer. A zero
// dimension (minimized window) is ignored.
func (t *SurfaceTarget) Reconfigure(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	// Depth first: if it fails the surface keeps its old, consistent size.
	if err := t.depth.Resize(t.Device, width, height); err != nil {
		return err
	}
	t.Config.Width, t.Config.Height = width, height
	t.Surface.Configure(t.Adapter, t.Device, t.Config)
	return nil
}

func (t *SurfaceTarget) Size() (uint32, uint32) { return t.Config.Width, t.Config.Height }

func (t *SurfaceTarget) Format() wgpu.TextureFormat { return t.Config.Format }

func (t *SurfaceTarget) Release() {
	t.releaseFrame()
	if t.depth != nil {
		t.depth.Release()
	}
}

// OffscreenTarget renders into a texture. Used headless and for snapshots.
type OffscreenTarget struct {
	Device  *wgpu.Device
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	format  wgpu.TextureFormat
	width   uint32
	height  uint32
	depth   *gpu.DepthBuffer
	label   string
}

func NewOffscreenTarget(device *wgpu.Device, width, height uint32, label string) (*OffscreenTarget, error) {
	t := &OffscreenTarget{
		Device: device,
		format: wgpu.TextureFormatRGBA8Unorm,
		label:  label,
	}
	if err := t.Reconfigure(width, height); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

func (t *OffscreenTarget) Acquire() (*wgpu.TextureView, error) {
	if t.View == nil {
		return nil, fmt.Errorf("%w: offscreen target released", ErrSurfaceLost)
	}
	return t.View, nil
}

func (t *OffscreenTarget) DepthView() *wgpu.TextureView { return t.depth.View }

func (t *OffscreenTarget) Depth() *gpu.DepthBuffer { return t.depth }

func (t *OffscreenTarget) Present() {}

func (t *OffscreenTarget) Discard() {}

func (t *OffscreenTarget) Reconfigure(width, height uint32) error {
	width, height = max(width, 1), max(height, 1)
	if t.Texture != nil && t.width == width && t.height == height {
		return nil
	}

	if t.depth == nil {
		depth, err := gpu.NewDepthBuffer(t.Device, width, height, t.label)
		if err != nil {
			return err
		}
		t.depth = depth
	} else if err := t.depth.Resize(t.Device, width, height); err != nil {
		return err
	}

	tex, err := t.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.label + "/ColorTarget",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        t.format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen target %dx%d: %w", width, height, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create offscreen view: %w", err)
	}
	t.releaseColor()
	t.Texture, t.View = tex, view
	t.width, t.height = width, height
	return nil
}

func (t *OffscreenTarget) Size() (uint32, uint32) { return t.width, t.height }

func (t *OffscreenTarget) Format() wgpu.TextureFormat { return t.format }

func (t *OffscreenTarget) releaseColor() {
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
}

func (t *OffscreenTarget) Release() {
	t.releaseColor()
	if t.depth != nil {
		t.depth.Release()
		t.depth = nil
	}
}
