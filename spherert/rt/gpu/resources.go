package gpu

import (
	"errors"
	"fmt"

	spheres "github.com/gekko3d/spheres"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	DefaultSphereCapacity   = 1_000_000
	DefaultMaterialCapacity = 100
)

var (
	ErrCapacityExceeded        = errors.New("capacity exceeded")
	ErrMaterialIndexOutOfRange = errors.New("material index out of range")
	ErrReadback                = errors.New("buffer readback failed")
	ErrUnbound                 = errors.New("resource set has no bind groups")
)

// Limits fixes buffer capacities for the lifetime of a ResourceSet.
type Limits struct {
	SphereCapacity   uint32
	MaterialCapacity uint32
}

func DefaultLimits() Limits {
	return Limits{
		SphereCapacity:   DefaultSphereCapacity,
		MaterialCapacity: DefaultMaterialCapacity,
	}
}

// ResourceSet owns every buffer and bind group the pipelines read. The sphere
// storage buffer is exposed twice: read-only through SceneBindGroup and
// read-write through ComputeBindGroup.
type ResourceSet struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Limits Limits
	Label  string
	Log    spheres.Logger

	SphereBuf   *wgpu.Buffer
	MaterialBuf *wgpu.Buffer
	CameraBuf   *wgpu.Buffer
	LightBuf    *wgpu.Buffer
	InstanceBuf *wgpu.Buffer

	MeshVertexBuf  *wgpu.Buffer
	MeshIndexBuf   *wgpu.Buffer
	MeshIndexCount uint32

	CameraLayout  *wgpu.BindGroupLayout
	SceneLayout   *wgpu.BindGroupLayout
	ComputeLayout *wgpu.BindGroupLayout

	CameraBindGroup  *wgpu.BindGroup
	SceneBindGroup   *wgpu.BindGroup
	ComputeBindGroup *wgpu.BindGroup

	ActiveSpheres   uint32
	ActiveMaterials uint32

	instanceScratch []InstanceVertex
}

// NewResourceSet allocates all buffers at their fixed capacities and builds
// the bind groups. On error everything acquired so far is released.
func NewResourceSet(device *wgpu.Device, limits Limits, label string, log spheres.Logger) (rs *ResourceSet, err error) {
	if limits.SphereCapacity == 0 {
		limits.SphereCapacity = DefaultSphereCapacity
	}
	if limits.MaterialCapacity == 0 {
		limits.MaterialCapacity = DefaultMaterialCapacity
	}

	rs = &ResourceSet{
		Device: device,
		Queue:  device.GetQueue(),
		Limits: limits,
		Label:  label,
		Log:    spheres.OrNop(log),
	}
	defer func() {
		if err != nil {
			rs.Release()
			rs = nil
		}
	}()

	if err = rs.createSphereBuffers(limits.SphereCapacity); err != nil {
		return
	}
	if rs.MaterialBuf, err = rs.createBuffer("MaterialBuf", uint64(limits.MaterialCapacity)*MaterialStride,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc); err != nil {
		return
	}
	if rs.CameraBuf, err = rs.createBuffer("CameraUB", CameraUniformSize, wgpu.BufferUsageUniform); err != nil {
		return
	}
	if rs.LightBuf, err = rs.createBuffer("LightUB", LightUniformSize, wgpu.BufferUsageUniform); err != nil {
		return
	}
	if err = rs.createMesh(NewSphereMesh(DefaultMeshSegments, DefaultMeshRings)); err != nil {
		return
	}
	if err = rs.createLayouts(); err != nil {
		return
	}
	if err = rs.CreateBindGroups(); err != nil {
		return
	}

	rs.Log.Debugf("resource set %q: %d spheres (%d bytes), %d materials (%d bytes)",
		label, limits.SphereCapacity, uint64(limits.SphereCapacity)*SphereStride,
		limits.MaterialCapacity, uint64(limits.MaterialCapacity)*MaterialStride)
	return rs, nil
}

func (rs *ResourceSet) label(name string) string {
	if rs.Label == "" {
		return name
	}
	return rs.Label + "/" + name
}

func (rs *ResourceSet) createBuffer(name string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if size%4 != 0 {
		size += 4 - size%4
	}
	buf, err := rs.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            rs.label(name),
		Size:             size,
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s (%d bytes): %w", name, size, err)
	}
	return buf, nil
}

func (rs *ResourceSet) createSphereBuffers(capacity uint32) error {
	sphere, instance, err := rs.newSphereBuffers(capacity)
	if err != nil {
		return err
	}
	rs.SphereBuf, rs.InstanceBuf = sphere, instance
	return nil
}

// newSphereBuffers allocates the sphere storage and instance vertex buffers
// without touching the set. On error nothing is left allocated.
func (rs *ResourceSet) newSphereBuffers(capacity uint32) (sphere, instance *wgpu.Buffer, err error) {
	if err := CheckDeviceLimits(capacity, rs.Device.GetLimits().Limits); err != nil {
		return nil, nil, err
	}
	sphere, err = rs.createBuffer("SphereBuf", uint64(capacity)*SphereStride,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		return nil, nil, err
	}
	instance, err = rs.createBuffer("InstanceVB", uint64(capacity)*InstanceVertexStride,
		wgpu.BufferUsageVertex|wgpu.BufferUsageCopySrc)
	if err != nil {
		sphere.Release()
		return nil, nil, err
	}
	return sphere, instance, nil
}

// CheckDeviceLimits reports ErrCapacityExceeded when a sphere buffer of the
// given capacity would not fit the device's buffer or storage binding limits.
// Undefined limits are not enforced.
func CheckDeviceLimits(capacity uint32, limits wgpu.Limits) error {
	size := uint64(capacity) * SphereStride
	if limits.MaxBufferSize != wgpu.LimitU64Undefined && limits.MaxBufferSize != 0 && size > limits.MaxBufferSize {
		return fmt.Errorf("%w: %d spheres need %d bytes, max buffer size is %d",
			ErrCapacityExceeded, capacity, size, limits.MaxBufferSize)
	}
	if limits.MaxStorageBufferBindingSize != wgpu.LimitU64Undefined && limits.MaxStorageBufferBindingSize != 0 &&
		size > limits.MaxStorageBufferBindingSize {
		return fmt.Errorf("%w: %d spheres need %d bytes, max storage binding is %d",
			ErrCapacityExceeded, capacity, size, limits.MaxStorageBufferBindingSize)
	}
	return nil
}
func (rs *ResourceSet) createMesh(mesh SphereMesh) error {
	var err error
	rs.MeshVertexBuf, err = rs.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    rs.label("SphereMeshVB"),
		Contents: wgpu.ToBytes(mesh.Vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("create sphere mesh vertices: %w", err)
	}
	rs.MeshIndexBuf, err = rs.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    rs.label("SphereMeshIB"),
		Contents: wgpu.ToBytes(mesh.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		return fmt.Errorf("create sphere mesh indices: %w", err)
	}
	rs.MeshIndexCount = mesh.IndexCount()
	return nil
}

func (rs *ResourceSet) createLayouts() error {
	var err error
	rs.CameraLayout, err = rs.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   rs.label("CameraBGL"),
		Entries: CameraLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create camera layout: %w", err)
	}
	rs.SceneLayout, err = rs.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   rs.label("SceneBGL"),
		Entries: SceneLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create scene layout: %w", err)
	}
	rs.ComputeLayout, err = rs.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   rs.label("ComputeBGL"),
		Entries: ComputeLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create compute layout: %w", err)
	}
	return nil
}

// CameraLayoutEntries: binding 0 camera uniform (vertex, fragment).
func CameraLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: false,
				MinBindingSize:   CameraUniformSize,
			},
		},
	}
}

// SceneLayoutEntries: binding 0 spheres (read-only), binding 1 light uniform,
// binding 2 materials (read-only).
func SceneLayoutEntries() []wgpu.BindGroupLayoutEntry {
	all := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: all,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeReadOnlyStorage,
				MinBindingSize: SphereStride,
			},
		},
		{
			Binding:    1,
			Visibility: all,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: LightUniformSize,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment | wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeReadOnlyStorage,
				MinBindingSize: MaterialStride,
			},
		},
	}
}

// ComputeLayoutEntries: binding 0 spheres (read-write), compute only.
func ComputeLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeStorage,
				MinBindingSize: SphereStride,
			},
		},
	}
}

// CreateBindGroups (re)builds all three bind groups against the current
// buffers. Called at construction and after GrowSphereCapacity.
func (rs *ResourceSet) CreateBindGroups() error {
	groups, err := rs.newBindGroups(rs.SphereBuf)
	if err != nil {
		return err
	}
	rs.releaseBindGroups()
	rs.CameraBindGroup = groups.camera
	rs.SceneBindGroup = groups.scene
	rs.ComputeBindGroup = groups.compute
	return nil
}

// Bound reports ErrUnbound when the set has been released or never finished
// building its bind groups.
func (rs *ResourceSet) Bound() error {
	if rs.CameraBindGroup == nil || rs.SceneBindGroup == nil || rs.ComputeBindGroup == nil ||
		rs.SphereBuf == nil || rs.InstanceBuf == nil {
		return ErrUnbound
	}
	return nil
}

type bindGroups struct {
	camera, scene, compute *wgpu.BindGroup
}

func (g bindGroups) release() {
	for _, bg := range []*wgpu.BindGroup{g.compute, g.scene, g.camera} {
		if bg != nil {
			bg.Release()
		}
	}
}

// newBindGroups builds all three groups against sphere. On error the groups
// created so far are released and the set is untouched.
func (rs *ResourceSet) newBindGroups(sphere *wgpu.Buffer) (g bindGroups, err error) {
	defer func() {
		if err != nil {
			g.release()
			g = bindGroups{}
		}
	}()

	g.camera, err = rs.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  rs.label("CameraBG"),
		Layout: rs.CameraLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rs.CameraBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return g, fmt.Errorf("create camera bind group: %w", err)
	}

	g.scene, err = rs.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  rs.label("SceneBG"),
		Layout: rs.SceneLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: sphere, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: rs.LightBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: rs.MaterialBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return g, fmt.Errorf("create scene bind group: %w", err)
	}

	g.compute, err = rs.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  rs.label("ComputeBG"),
		Layout: rs.ComputeLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: sphere, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return g, fmt.Errorf("create compute bind group: %w", err)
	}
	return g, nil
}

// ValidateSpheres checks an upload against capacity and the material table
// before anything is written.
func ValidateSpheres(batch []Sphere, limits Limits) error {
	if uint64(len(batch)) > uint64(limits.SphereCapacity) {
		return fmt.Errorf("%w: %d spheres, capacity %d", ErrCapacityExceeded, len(batch), limits.SphereCapacity)
	}
	for i := range batch {
		if batch[i].MaterialIndex >= limits.MaterialCapacity {
			return fmt.Errorf("%w: sphere %d references material %d, capacity %d",
				ErrMaterialIndexOutOfRange, i, batch[i].MaterialIndex, limits.MaterialCapacity)
		}
	}
	return nil
}

// UpdateSphereData overwrites the sphere storage buffer and the instance
// vertex stream from offset 0 with batch. Invalid batches are rejected before
// any write.
func (rs *ResourceSet) UpdateSphereData(batch []Sphere) error {
	if err := ValidateSpheres(batch, rs.Limits); err != nil {
		return err
	}
	if len(batch) == 0 {
		rs.ActiveSpheres = 0
		return nil
	}

	if cap(rs.instanceScratch) < len(batch) {
		rs.instanceScratch = make([]InstanceVertex, len(batch))
	}
	instances := rs.instanceScratch[:len(batch)]
	for i := range batch {
		instances[i] = batch[i].Instance()
	}

	if err := rs.Queue.WriteBuffer(rs.SphereBuf, 0, sliceBytes(batch)); err != nil {
		return fmt.Errorf("write spheres: %w", err)
	}
	if err := rs.Queue.WriteBuffer(rs.InstanceBuf, 0, sliceBytes(instances)); err != nil {
		return fmt.Errorf("write instances: %w", err)
	}
	rs.ActiveSpheres = uint32(len(batch))
	rs.Log.Debugf("uploaded %d spheres", len(batch))
	return nil
}

// UpdateMaterialData overwrites the material table from offset 0.
func (rs *ResourceSet) UpdateMaterialData(materials []Material) error {
	if uint64(len(materials)) > uint64(rs.Limits.MaterialCapacity) {
		return fmt.Errorf("%w: %d materials, capacity %d", ErrCapacityExceeded, len(materials), rs.Limits.MaterialCapacity)
	}
	if len(materials) == 0 {
		rs.ActiveMaterials = 0
		return nil
	}
	if err := rs.Queue.WriteBuffer(rs.MaterialBuf, 0, sliceBytes(materials)); err != nil {
		return fmt.Errorf("write materials: %w", err)
	}
	rs.ActiveMaterials = uint32(len(materials))
	return nil
}

// WriteFrameUniforms writes whole camera and light records. Queue writes are
// ordered before any later submission, so the next recorded frame sees both.
func (rs *ResourceSet) WriteFrameUniforms(cam CameraUniform, light LightUniform) error {
	if err := rs.Queue.WriteBuffer(rs.CameraBuf, 0, cam.Bytes()); err != nil {
		return fmt.Errorf("write camera uniform: %w", err)
	}
	if err := rs.Queue.WriteBuffer(rs.LightBuf, 0, light.Bytes()); err != nil {
		return fmt.Errorf("write light uniform: %w", err)
	}
	return nil
}

// GrowSphereCapacity reallocates the sphere and instance buffers at a larger
// capacity and rebinds them. Contents are not preserved; callers must upload
// again. Shrinking is a no-op. The new buffers and bind groups are built
// before the old ones are released, so on error the set is unchanged.
func (rs *ResourceSet) GrowSphereCapacity(capacity uint32) error {
	if capacity <= rs.Limits.SphereCapacity {
		return nil
	}
	sphere, instance, err := rs.newSphereBuffers(capacity)
	if err != nil {
		return fmt.Errorf("grow to %d spheres: %w", capacity, err)
	}
	groups, err := rs.newBindGroups(sphere)
	if err != nil {
		instance.Release()
		sphere.Release()
		return fmt.Errorf("grow to %d spheres: %w", capacity, err)
	}

	rs.releaseBindGroups()
	releaseBuffer(&rs.InstanceBuf)
	releaseBuffer(&rs.SphereBuf)
	rs.SphereBuf, rs.InstanceBuf = sphere, instance
	rs.CameraBindGroup, rs.SceneBindGroup, rs.ComputeBindGroup = groups.camera, groups.scene, groups.compute
	rs.Limits.SphereCapacity = capacity
	rs.ActiveSpheres = 0
	rs.instanceScratch = nil
	rs.Log.Infof("sphere capacity grown to %d", capacity)
	return nil
}

// ReadSpheres copies the first n sphere records back to the host. It blocks
// until the device is idle and is meant for tests and debugging.
func (rs *ResourceSet) ReadSpheres(n uint32) ([]Sphere, error) {
	if n > rs.Limits.SphereCapacity {
		return nil, fmt.Errorf("%w: read %d spheres, capacity %d", ErrCapacityExceeded, n, rs.Limits.SphereCapacity)
	}
	data, err := ReadBuffer(rs.Device, rs.SphereBuf, uint64(n)*SphereStride)
	if err != nil {
		return nil, err
	}
	return SpheresFromBytes(data), nil
}

// ReadMaterials copies the first n material records back to the host.
func (rs *ResourceSet) ReadMaterials(n uint32) ([]Material, error) {
	if n > rs.Limits.MaterialCapacity {
		return nil, fmt.Errorf("%w: read %d materials, capacity %d", ErrCapacityExceeded, n, rs.Limits.MaterialCapacity)
	}
	data, err := ReadBuffer(rs.Device, rs.MaterialBuf, uint64(n)*MaterialStride)
	if err != nil {
		return nil, err
	}
	return MaterialsFromBytes(data), nil
}

func (rs *ResourceSet) releaseBindGroups() {
	for _, bg := range []**wgpu.BindGroup{&rs.ComputeBindGroup, &rs.SceneBindGroup, &rs.CameraBindGroup} {
		if *bg != nil {
			(*bg).Release()
			*bg = nil
		}
	}
}

func releaseBuffer(buf **wgpu.Buffer) {
	if *buf != nil {
		(*buf).Release()
		*buf = nil
	}
}

// Release frees resources in reverse acquisition order. Safe on a partially
// constructed set.
func (rs *ResourceSet) Release() {
	rs.releaseBindGroups()
	for _, bgl := range []**wgpu.BindGroupLayout{&rs.ComputeLayout, &rs.SceneLayout, &rs.CameraLayout} {
		if *bgl != nil {
			(*bgl).Release()
			*bgl = nil
		}
	}
	releaseBuffer(&rs.MeshIndexBuf)
	releaseBuffer(&rs.MeshVertexBuf)
	releaseBuffer(&rs.LightBuf)
	releaseBuffer(&rs.CameraBuf)
	releaseBuffer(&rs.MaterialBuf)
	releaseBuffer(&rs.InstanceBuf)
	releaseBuffer(&rs.SphereBuf)
	rs.ActiveSpheres = 0
	rs.ActiveMaterials = 0
}
