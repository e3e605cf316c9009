package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	ErrAdapter = errors.New("no suitable GPU adapter")
	// ErrSurfaceLost covers lost, outdated and timed-out surfaces. The frame
	// is skipped and the surface reconfigured.
	ErrSurfaceLost = errors.New("surface lost")
	// ErrSurfaceOutOfMemory is fatal.
	ErrSurfaceOutOfMemory = errors.New("surface out of memory")
	// ErrDeviceLost is fatal. Reconfiguring the surface cannot recover it.
	ErrDeviceLost = errors.New("device lost")
)

// surfaceStatusPrefix precedes the status text in GetCurrentTexture errors.
const surfaceStatusPrefix = "surface status "

// classifySurfaceError maps an acquire failure onto the surface sentinels.
// The bindings only report the status as text, so the status name is matched
// against the binding's own enum strings.
func classifySurfaceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrSurfaceOutOfMemory) || errors.Is(err, ErrDeviceLost) {
		return err
	}
	msg := err.Error()
	i := strings.LastIndex(msg, surfaceStatusPrefix)
	if i < 0 {
		return fmt.Errorf("acquire frame: %w", err)
	}
	switch strings.TrimSpace(msg[i+len(surfaceStatusPrefix):]) {
	case wgpu.SurfaceGetCurrentTextureStatusOutOfMemory.String():
		return fmt.Errorf("%w: %v", ErrSurfaceOutOfMemory, err)
	case wgpu.SurfaceGetCurrentTextureStatusDeviceLost.String():
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	case wgpu.SurfaceGetCurrentTextureStatusLost.String(),
		wgpu.SurfaceGetCurrentTextureStatusOutdated.String(),
		wgpu.SurfaceGetCurrentTextureStatusTimeout.String():
		return fmt.Errorf("%w: %v", ErrSurfaceLost, err)
	}
	return fmt.Errorf("acquire frame: %w", err)
}
