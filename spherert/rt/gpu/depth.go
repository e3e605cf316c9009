package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

const DepthFormat = wgpu.TextureFormatDepth32Float

// copyRowAlignment is the required BytesPerRow alignment for texture copies.
const copyRowAlignment = 256

// DepthBuffer is a Depth32Float attachment sized to the render target. It is
// copyable so the frame can be inspected after submission.
type DepthBuffer struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Width   uint32
	Height  uint32
	label   string
}

func NewDepthBuffer(device *wgpu.Device, width, height uint32, label string) (*DepthBuffer, error) {
	d := &DepthBuffer{label: label}
	if err := d.Resize(device, width, height); err != nil {
		return nil, err
	}
	return d, nil
}

// Resize recreates the texture when the size changes. Zero dimensions are
// clamped to 1. The new texture is created before the old one is released, so
// on error the buffer keeps its previous size and view.
func (d *DepthBuffer) Resize(device *wgpu.Device, width, height uint32) error {
	width, height = max(width, 1), max(height, 1)
	if d.Texture != nil && d.Width == width && d.Height == height {
		return nil
	}

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: d.label + "/DepthTexture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create depth texture %dx%d: %w", width, height, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create depth view: %w", err)
	}

	d.Release()
	d.Texture, d.View = tex, view
	d.Width, d.Height = width, height
	return nil
}

// Read copies the depth attachment to the host as row-major float32 values
// in [0,1]. Blocks until the device is idle.
func (d *DepthBuffer) Read(device *wgpu.Device) ([]float32, error) {
	if d.Texture == nil {
		return nil, fmt.Errorf("%w: depth buffer released", ErrReadback)
	}
	rowBytes := d.Width * 4
	paddedRow := (rowBytes + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
	size := uint64(paddedRow) * uint64(d.Height)

	staging, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.label + "/DepthReadback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create staging: %v", ErrReadback, err)
	}
	defer staging.Release()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create encoder: %v", ErrReadback, err)
	}
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  d.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectDepthOnly,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  paddedRow,
				RowsPerImage: d.Height,
			},
		},
		&wgpu.Extent3D{Width: d.Width, Height: d.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		encoder.Release()
		return nil, fmt.Errorf("%w: copy depth: %v", ErrReadback, err)
	}
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("%w: finish encoder: %v", ErrReadback, err)
	}
	device.GetQueue().Submit(cmd)
	cmd.Release()

	raw, err := mapStaging(device, staging, size)
	if err != nil {
		return nil, err
	}
	return unpadDepth(raw, d.Width, d.Height, paddedRow), nil
}

func unpadDepth(raw []byte, width, height, paddedRow uint32) []float32 {
	out := make([]float32, 0, int(width)*int(height))
	for y := uint32(0); y < height; y++ {
		row := raw[y*paddedRow:]
		for x := uint32(0); x < width; x++ {
			out = append(out, f32(row[x*4:]))
		}
	}
	return out
}

func (d *DepthBuffer) Release() {
	if d.View != nil {
		d.View.Release()
		d.View = nil
	}
	if d.Texture != nil {
		d.Texture.Release()
		d.Texture = nil
	}
}
