// Package webgpu implements the correlation backend on the GPU with WGSL
// compute shaders. Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO
// WebGPU bindings; the implementation is only built on Windows, where the
// wgpu_native library is loaded at runtime.
//
// Only float32 is supported. Each call uploads its inputs, dispatches one
// compute pass and reads the result back, releasing every per-call buffer
// before returning.
package webgpu
