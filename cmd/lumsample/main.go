// Command lumsample measures the average luminance of image files with the
// luminance sampler, driving it tick by tick like a frame loop would.
//
// Usage:
//
//	lumsample [flags] image...
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/luminance"
)

func main() {
	var (
		device     = flag.String("device", "", "device name (default: best available)")
		downsample = flag.Int("downsample", 2, "sampling stride in both dimensions")
		ticks      = flag.Int("ticks", 64, "maximum ticks to wait for a measurement per image")
		maxWidth   = flag.Int("max-width", 0, "scale images wider than this down before sampling (0: off)")
		latency    = flag.Int("latency", 0, "readback latency in polls for the software device")
		spirv      = flag.Bool("spirv", false, "compile the kernel to SPIR-V with naga (gpu device)")
		verbose    = flag.Bool("v", false, "debug logging to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] image...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		luminance.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	configureGPU(*spirv)

	opts := []luminance.Option{luminance.WithDownsample(*downsample)}
	switch {
	case *device == luminance.DeviceSoftware || (*device == "" && *latency > 0):
		sw := luminance.NewSoftwareDevice(luminance.SoftwareLatency(*latency))
		defer sw.Release()
		opts = append(opts, luminance.WithDevice(sw))
	case *device != "":
		opts = append(opts, luminance.WithDeviceName(*device))
	}

	var current luminance.Target
	s := luminance.New(luminance.TargetSourceFunc(func() luminance.Target { return current }), opts...)
	if err := s.Init(); err != nil {
		log.Fatalf("init sampler: %v", err)
	}
	defer s.Close()

	p := message.NewPrinter(language.English)
	failed := false
	for _, path := range flag.Args() {
		img, err := load(path, *maxWidth)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
			continue
		}

		s.ReleaseTarget()
		current = luminance.NewImageTarget(img)

		n, ok := measure(s, *ticks)
		if !ok {
			log.Printf("%s: no measurement after %d ticks", path, n)
			failed = true
			continue
		}
		w, h := img.Rect.Dx(), img.Rect.Dy()
		p.Printf("%s\t%dx%d\t%d pixels sampled\tluminance %.3f\t(%d ticks)\n",
			path, w, h, luminance.EffectivePixelCount(w, h, *downsample), s.Luminance(), n)
	}
	if failed {
		s.Close()
		os.Exit(1)
	}
}

// measure ticks s until a new measurement is published or limit ticks pass.
func measure(s *luminance.Sampler, limit int) (int, bool) {
	before := s.Stats().Completed
	for n := 1; n <= limit; n++ {
		s.Tick()
		if s.Stats().Completed > before {
			return n, true
		}
	}
	return limit, false
}

// load decodes an image file into RGBA, scaling it to maxWidth when wider.
func load(path string, maxWidth int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	luminance.Logger().Debug("lumsample: decoded", "path", path, "format", format)

	b := src.Bounds()
	dst := image.Rect(0, 0, b.Dx(), b.Dy())
	if maxWidth > 0 && b.Dx() > maxWidth {
		dst = image.Rect(0, 0, maxWidth, max(1, b.Dy()*maxWidth/b.Dx()))
	}

	rgba := image.NewRGBA(dst)
	if dst.Size() == b.Size() {
		xdraw.Draw(rgba, dst, src, b.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(rgba, dst, src, b, xdraw.Src, nil)
	}
	return rgba, nil
}
