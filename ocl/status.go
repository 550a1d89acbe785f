package ocl

// Status is a native OpenCL status code, as returned by every driver entry
// point. Zero (Success) means the call succeeded; all error codes are
// negative.
type Status int32

const (
	Success                      Status = 0
	DeviceNotFound               Status = -1
	DeviceNotAvailable           Status = -2
	CompilerNotAvailable         Status = -3
	MemObjectAllocationFailure   Status = -4
	OutOfResources               Status = -5
	OutOfHostMemory              Status = -6
	ProfilingInfoNotAvailable    Status = -7
	MemCopyOverlap               Status = -8
	ImageFormatMismatch          Status = -9
	ImageFormatNotSupported      Status = -10
	BuildProgramFailure          Status = -11
	MapFailure                   Status = -12
	InvalidValue                 Status = -30
	InvalidDeviceType            Status = -31
	InvalidPlatform              Status = -32
	InvalidDevice                Status = -33
	InvalidContext               Status = -34
	InvalidQueueProperties       Status = -35
	InvalidCommandQueue          Status = -36
	InvalidHostPtr               Status = -37
	InvalidMemObject             Status = -38
	InvalidImageFormatDescriptor Status = -39
	InvalidImageSize             Status = -40
	InvalidSampler               Status = -41
	InvalidBinary                Status = -42
	InvalidBuildOptions          Status = -43
	InvalidProgram               Status = -44
	InvalidProgramExecutable     Status = -45
	InvalidKernelName            Status = -46
	InvalidKernelDefinition      Status = -47
	InvalidKernel                Status = -48
	InvalidArgIndex              Status = -49
	InvalidArgValue              Status = -50
	InvalidArgSize               Status = -51
	InvalidKernelArgs            Status = -52
	InvalidWorkDimension         Status = -53
	InvalidWorkGroupSize         Status = -54
	InvalidWorkItemSize          Status = -55
	InvalidGlobalOffset          Status = -56
	InvalidEventWaitList         Status = -57
	InvalidEvent                 Status = -58
	InvalidOperation             Status = -59
	InvalidGLObject              Status = -60
	InvalidBufferSize            Status = -61
	InvalidMipLevel              Status = -62
)

// statusDescriptions is the fixed code→text table used to build error
// messages. Texts follow the OpenCL specification wording.
var statusDescriptions = map[Status]string{
	Success:                      "Success!",
	DeviceNotFound:               "Device not found",
	DeviceNotAvailable:           "Device not available",
	CompilerNotAvailable:         "Compiler not available",
	MemObjectAllocationFailure:   "Memory object allocation failure",
	OutOfResources:               "Out of resources",
	OutOfHostMemory:              "Out of host memory",
	ProfilingInfoNotAvailable:    "Profiling information not available",
	MemCopyOverlap:               "Memory copy overlap",
	ImageFormatMismatch:          "Image format mismatch",
	ImageFormatNotSupported:      "Image format not supported",
	BuildProgramFailure:          "Program build failure",
	MapFailure:                   "Map failure",
	InvalidValue:                 "Invalid value",
	InvalidDeviceType:            "Invalid device type",
	InvalidPlatform:              "Invalid platform",
	InvalidDevice:                "Invalid device",
	InvalidContext:               "Invalid context",
	InvalidQueueProperties:       "Invalid queue properties",
	InvalidCommandQueue:          "Invalid command queue",
	InvalidHostPtr:               "Invalid host pointer",
	InvalidMemObject:             "Invalid memory object",
	InvalidImageFormatDescriptor: "Invalid image format descriptor",
	InvalidImageSize:             "Invalid image size",
	InvalidSampler:               "Invalid sampler",
	InvalidBinary:                "Invalid binary",
	InvalidBuildOptions:          "Invalid build options",
	InvalidProgram:               "Invalid program",
	InvalidProgramExecutable:     "Invalid program executable",
	InvalidKernelName:            "Invalid kernel name",
	InvalidKernelDefinition:      "Invalid kernel definition",
	InvalidKernel:                "Invalid kernel",
	InvalidArgIndex:              "Invalid argument index",
	InvalidArgValue:              "Invalid argument value",
	InvalidArgSize:               "Invalid argument size",
	InvalidKernelArgs:            "Invalid kernel arguments",
	InvalidWorkDimension:         "Invalid work dimension",
	InvalidWorkGroupSize:         "Invalid work group size",
	InvalidWorkItemSize:          "Invalid work item size",
	InvalidGlobalOffset:          "Invalid global offset",
	InvalidEventWaitList:         "Invalid event wait list",
	InvalidEvent:                 "Invalid event",
	InvalidOperation:             "Invalid operation",
	InvalidGLObject:              "Invalid OpenGL object",
	InvalidBufferSize:            "Invalid buffer size",
	InvalidMipLevel:              "Invalid mip-map level",
}

// Description returns the human-readable text for the status code, or
// "Unknown" for codes missing from the table.
func (s Status) Description() string {
	if desc, ok := statusDescriptions[s]; ok {
		return desc
	}
	return "Unknown"
}
