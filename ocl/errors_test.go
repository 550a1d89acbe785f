package ocl

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestStatusErr(t *testing.T) {
	require.NoError(t, statusErr(Success))

	err := statusErr(OutOfResources)
	require.Error(t, err)
	require.Contains(t, err.Error(), "code=-5")
	require.Contains(t, err.Error(), "Out of resources")

	// The typed error survives the pkg/errors stack wrapper.
	var clErr *Error
	require.True(t, errors.As(err, &clErr))
	require.Equal(t, OutOfResources, clErr.Code)
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, Success, StatusOf(nil))
	require.Equal(t, InvalidKernel, StatusOf(statusErr(InvalidKernel)))
	require.Equal(t, InvalidMemObject, StatusOf(errors.Wrap(statusErr(InvalidMemObject), "enqueue")))
	require.Equal(t, InvalidValue, StatusOf(errors.New("not a driver error")))
}

func TestStatusDescription(t *testing.T) {
	require.Equal(t, "Invalid event wait list", InvalidEventWaitList.Description())
	require.Equal(t, "Unknown", Status(-1000).Description())
}

func TestLastErrorSlot(t *testing.T) {
	require.Error(t, checkStatus(DeviceNotFound))
	last := LastError()
	require.Error(t, last)
	require.Equal(t, DeviceNotFound, StatusOf(last))

	// Each call returns an independent copy.
	require.NotSame(t, LastError(), last)

	// A successful internal call clears the slot.
	require.NoError(t, checkStatus(Success))
	require.NoError(t, LastError())

	require.Error(t, checkStatus(MapFailure))
	ClearLastError()
	require.NoError(t, LastError())
}
