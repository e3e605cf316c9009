package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ReadBuffer copies size bytes from the start of src into a mappable staging
// buffer and blocks until the map completes. src needs CopySrc usage and size
// must be a multiple of 4.
func ReadBuffer(device *wgpu.Device, src *wgpu.Buffer, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	staging, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadbackStaging",
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
	if err := encoder.CopyBufferToBuffer(src, 0, staging, 0, size); err != nil {
		encoder.Release()
		return nil, fmt.Errorf("%w: copy: %v", ErrReadback, err)
	}
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("%w: finish encoder: %v", ErrReadback, err)
	}
	device.GetQueue().Submit(cmd)
	cmd.Release()

	return mapStaging(device, staging, size)
}

func mapStaging(device *wgpu.Device, staging *wgpu.Buffer, size uint64) ([]byte, error) {
	var status wgpu.BufferMapAsyncStatus
	mapped := false
	err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: map: %v", ErrReadback, err)
	}
	device.Poll(true, nil)
	if !mapped {
		return nil, fmt.Errorf("%w: map callback did not fire", ErrReadback)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%w: map status %s", ErrReadback, status.String())
	}

	data := staging.GetMappedRange(0, uint(size))
	out := make([]byte, len(data))
	copy(out, data)
	staging.Unmap()
	return out, nil
}
