package gpu

import (
	"os"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/require"
)

// newTestDevice returns a headless device, or skips when no adapter is
// expected on the host.
func newTestDevice(t *testing.T) *wgpu.Device {
	t.Helper()
	if os.Getenv("SPHERES_GPU_TESTS") != "1" {
		t.Skip("set SPHERES_GPU_TESTS=1 to run tests that need a GPU adapter")
	}

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	require.NoError(t, err)
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "TestDevice"})
	require.NoError(t, err)

	t.Cleanup(func() {
		device.Release()
		adapter.Release()
		instance.Release()
	})
	return device
}
