// Package luminance estimates the average luminance of a rendered frame with
// a GPU reduction kernel, without blocking the frame loop on readback.
//
// # Overview
//
// A [Sampler] is driven once per frame by calling [Sampler.Tick]. Each
// measurement cycle resets a single u32 accumulator on the device, dispatches
// the reduction kernel over a downsampled grid of the current render target,
// and requests a non-blocking readback of the accumulator. Later ticks poll
// the readback. When it completes, the integer sum is converted into an
// average in [0, 1] with three decimal digits and published through
// [Sampler.Luminance].
//
// At most one readback is outstanding at a time. The published value is
// always the most recently completed measurement and may lag the most
// recently rendered frame by a few ticks.
//
// # Quick Start
//
//	img := image.NewRGBA(image.Rect(0, 0, 1600, 900))
//	target := luminance.NewImageTarget(img)
//
//	s := luminance.New(luminance.StaticSource(target))
//	if err := s.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	for frame := range frames {
//	    render(frame, img)
//	    s.Tick()
//	    exposure.Update(s.Luminance())
//	}
//
// # Devices
//
// The reduction runs on a [Device]. The "software" device is always
// registered and reduces on the CPU with the same fixed-point arithmetic as
// the kernel. Importing the gpu sub-package registers the "gpu" device,
// which runs the WGSL kernel through gogpu/wgpu:
//
//	import _ "github.com/gogpu/luminance/gpu"
//
// [DefaultDevice] prefers "gpu" and falls back to "software".
//
// # Fixed-point accumulation
//
// Each sampled pixel adds floor(L * 1000) to the accumulator, where L is its
// Rec.709 luminance. Integer atomics make the sum independent of thread
// ordering. The host divides by 1000 times the sampled pixel count, which
// equals (W/f) * (H/f) for a downsample factor f (2 by default).
//
// # Errors
//
// No error escapes [Sampler.Tick]. Transfer errors, targets invalidated
// while a readback is in flight and faults during finalize discard the cycle
// and return the sampler to idle. [Sampler.PollMeasurement] reports which
// of these happened as an [Outcome].
package luminance
