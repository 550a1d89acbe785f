package ocl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goclx/gocl/ocl"
)

func TestProgramBuildAsync(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	l := startLoop(t)

	prog, err := ocl.NewProgram(ctx, scaleKernelSource)
	require.NoError(t, err)

	done := make(chan struct{})
	prog.Build("", l, func(err error) {
		require.NoError(t, err)
		close(done)
	})
	waitSignal(t, done, "async build completion")
}

func TestProgramBuildAsyncFailure(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	l := startLoop(t)

	prog, err := ocl.NewProgram(ctx, "__kernel void broken () { @broken }")
	require.NoError(t, err)

	done := make(chan struct{})
	prog.Build("", l, func(err error) {
		require.Equal(t, ocl.BuildProgramFailure, ocl.StatusOf(err))
		close(done)
	})
	waitSignal(t, done, "async build failure delivery")
}

func TestProgramBuildSyncFailure(t *testing.T) {
	_, ctx, _ := newTestQueue(t)

	prog, err := ocl.NewProgram(ctx, "__kernel void broken () { @broken }")
	require.NoError(t, err)
	require.Equal(t, ocl.BuildProgramFailure, ocl.StatusOf(prog.BuildSync("")))
}

func TestProgramBuildDiagnostics(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	prog, err := ocl.NewProgram(ctx, scaleKernelSource)
	require.NoError(t, err)

	status, err := prog.BuildStatus(dev)
	require.NoError(t, err)
	require.Equal(t, ocl.BuildNone, status, "no build attempted yet")

	require.NoError(t, prog.BuildSync(""))
	status, err = prog.BuildStatus(dev)
	require.NoError(t, err)
	require.Equal(t, ocl.BuildSuccess, status)

	log, err := prog.BuildLog(dev)
	require.NoError(t, err)
	require.Empty(t, log)
}

func TestProgramBuildLogOnFailure(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	prog, err := ocl.NewProgram(ctx, "__kernel void broken () { @broken }")
	require.NoError(t, err)
	require.Equal(t, ocl.BuildProgramFailure, ocl.StatusOf(prog.BuildSync("")))

	status, err := prog.BuildStatus(dev)
	require.NoError(t, err)
	require.Equal(t, ocl.BuildError, status)

	log, err := prog.BuildLog(dev)
	require.NoError(t, err)
	require.Contains(t, log, "@broken", "the log carries the compiler diagnostics")
}

func TestProgramFromFile(t *testing.T) {
	_, ctx, _ := newTestQueue(t)

	path := filepath.Join(t.TempDir(), "scale.cl")
	require.NoError(t, os.WriteFile(path, []byte(scaleKernelSource), 0o644))

	prog, err := ocl.NewProgramFromFile(ctx, path)
	require.NoError(t, err)
	require.NoError(t, prog.BuildSync(""))

	_, err = ocl.NewProgramFromFile(ctx, filepath.Join(t.TempDir(), "missing.cl"))
	require.Error(t, err)
}

func TestProgramRequiresSource(t *testing.T) {
	_, ctx, _ := newTestQueue(t)

	_, err := ocl.NewProgram(ctx)
	require.Error(t, err)
}
