package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthBuffer_Resize(t *testing.T) {
	device := newTestDevice(t)
	d, err := NewDepthBuffer(device, 0, 0, "test")
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, [2]uint32{1, 1}, [2]uint32{d.Width, d.Height})

	require.NoError(t, d.Resize(device, 64, 32))
	tex := d.Texture
	require.NoError(t, d.Resize(device, 64, 32))
	assert.Same(t, tex, d.Texture, "same size keeps the texture")

	// Past the device's maximum texture dimension creation fails and the
	// previous attachment stays usable.
	view := d.View
	require.Error(t, d.Resize(device, 1<<20, 1<<20))
	assert.Same(t, view, d.View)
	assert.Same(t, tex, d.Texture)
	assert.Equal(t, [2]uint32{64, 32}, [2]uint32{d.Width, d.Height})

	depth, err := d.Read(device)
	require.NoError(t, err)
	assert.Len(t, depth, 64*32)
}
