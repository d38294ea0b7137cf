// Package kernel holds the luminance reduction kernel and everything the host
// needs to agree with it.
//
// # Programs
//
// Kernels are looked up by a stable name through a process-wide registry.
// The built-in [DefaultName] program is registered at init time from an
// embedded WGSL source:
//
//	p, err := kernel.Lookup(kernel.DefaultName)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(p.EntryPoint) // calculate_luminance
//
// The WGSL source does not hard-code the fixed-point scale or the workgroup
// size. Both are substituted from [ScaleFactor] and [WorkgroupSize] when the
// program is built, so the host-side divisor and the kernel can never drift
// apart.
//
// # Dispatch grid
//
// [PlanGrid] sizes a dispatch for a source image and a downsampling factor.
// Thread (x, y) samples pixel (x*f, y*f); threads past the sampled region
// exit early. The number of pixels the dispatch actually reads is therefore
// exactly [Grid.PixelCount], which is also the divisor used for the average.
//
// # CPU reference
//
// [Reduce] runs the same arithmetic on the CPU, splitting sampled rows across
// a worker pool and merging band sums with atomic adds, the way invocations
// merge into the GPU accumulator. The software device uses it, and tests use
// it as the oracle for the GPU path.
package kernel
