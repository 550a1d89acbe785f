package ocl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goclx/gocl/ocl"
	"github.com/goclx/gocl/ocl/clfake"
)

func TestContextDevices(t *testing.T) {
	drv := clfake.New()
	drv.NumDevices = 3

	ctx, err := ocl.NewContext(drv, ocl.DeviceTypeAll)
	require.NoError(t, err)
	require.Equal(t, 3, ctx.NumDevices())
	require.Len(t, ctx.Devices(), 3)
	for i, dev := range ctx.Devices() {
		require.Same(t, dev, ctx.DeviceByIndex(i))
		require.Same(t, ctx, dev.Context())
		require.NotZero(t, dev.Handle())
	}
}

func TestContextCreationFailure(t *testing.T) {
	drv := clfake.New()
	drv.FailNext("CreateContext", ocl.DeviceNotFound)

	_, err := ocl.NewContext(drv, ocl.DeviceTypeGPU)
	require.Equal(t, ocl.DeviceNotFound, ocl.StatusOf(err))
}

func TestContextDestroyIdempotent(t *testing.T) {
	drv := clfake.New()

	ctx, err := ocl.NewContext(drv, ocl.DeviceTypeGPU)
	require.NoError(t, err)
	require.NotZero(t, ctx.Handle())

	require.NoError(t, ctx.Destroy())
	require.Zero(t, ctx.Handle())
	require.NoError(t, ctx.Destroy())
}

func TestDefaultContextsCachedPerDriver(t *testing.T) {
	drv := clfake.New()

	gpu1, err := ocl.DefaultGPU(drv)
	require.NoError(t, err)
	gpu2, err := ocl.DefaultGPU(drv)
	require.NoError(t, err)
	require.Same(t, gpu1, gpu2)

	cpu, err := ocl.DefaultCPU(drv)
	require.NoError(t, err)
	require.NotSame(t, gpu1, cpu)

	other, err := ocl.DefaultGPU(clfake.New())
	require.NoError(t, err)
	require.NotSame(t, gpu1, other)
}

func TestDeviceInfo(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	size, err := dev.MaxWorkGroupSize()
	require.NoError(t, err)
	require.Equal(t, 1024, size)

	units, err := dev.MaxComputeUnits()
	require.NoError(t, err)
	require.Equal(t, 4, units)

	ok, err := dev.HasExtension("cl_khr_gl_sharing")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = dev.HasExtension("cl_khr_fp64")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeviceInfoErrorMirroredInLastErrorSlot(t *testing.T) {
	drv, ctx, _ := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	drv.FailNext("DeviceMaxWorkGroupSize", ocl.InvalidDevice)
	_, err := dev.MaxWorkGroupSize()
	require.Equal(t, ocl.InvalidDevice, ocl.StatusOf(err))
	require.Equal(t, ocl.InvalidDevice, ocl.StatusOf(ocl.LastError()))

	// The cache retries after a failure.
	size, err := dev.MaxWorkGroupSize()
	require.NoError(t, err)
	require.Equal(t, 1024, size)
	require.NoError(t, ocl.LastError())
}

func TestDeviceReadBufferSync(t *testing.T) {
	_, ctx, q := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)
	require.NoError(t, buf.WriteSync(q, []byte{1, 2, 3, 4}, 0, nil))

	got := make([]byte, 4)
	require.NoError(t, dev.ReadBufferSync(buf, 0, got))
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}
