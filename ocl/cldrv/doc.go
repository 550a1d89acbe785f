// Package cldrv is the production ocl.Driver: a cgo binding to the
// system OpenCL library. It is only compiled with the "cl" build tag, so
// the rest of the module (and its tests, which run against ocl/clfake)
// builds without any OpenCL installation.
//
// Usage:
//
//	drv, err := cldrv.New()
//	...
//	ctx, err := ocl.DefaultGPU(drv)
package cldrv
