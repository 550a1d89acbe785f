// Package ocl is a host-side convenience layer over an OpenCL-style
// compute driver: object lifetimes for contexts, devices, queues,
// buffers, programs and kernels, error translation from native status
// codes, and an asynchronous completion model.
//
// The center of the package is Event: every asynchronous dispatch
// operation (Buffer.Read, Buffer.Write, Kernel.Run, Image.AcquireGL, ...)
// returns one immediately -- already resolved with the error if the
// native submission itself failed, pending otherwise. Continuations
// registered with Event.Then are delivered exactly once, in registration
// order, on the Dispatcher captured at registration time; a Loop gives
// callers a single-threaded context to receive them on.
//
// The native driver is abstracted by the Driver interface. Package
// ocl/clfake implements it in memory for tests and examples; package
// ocl/cldrv (build tag "cl") binds the real OpenCL library through cgo.
package ocl
