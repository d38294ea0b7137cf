package luminance_test

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/luminance"
)

func Example() {
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)
	target := luminance.NewImageTarget(img)

	s := luminance.New(luminance.StaticSource(target),
		luminance.WithDeviceName(luminance.DeviceSoftware))
	if err := s.Init(); err != nil {
		fmt.Println("init:", err)
		return
	}
	defer s.Close()

	for range 3 {
		s.Tick()
	}
	fmt.Printf("%.3f %s\n", s.Luminance(), s.State())
	// Output: 0.212 Idle
}

func ExampleSampler_PollMeasurement() {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	target := luminance.NewImageTarget(img)

	dev := luminance.NewSoftwareDevice(luminance.SoftwareLatency(1))
	defer dev.Release()

	s := luminance.New(luminance.StaticSource(target), luminance.WithDevice(dev))
	if err := s.Init(); err != nil {
		fmt.Println("init:", err)
		return
	}
	defer s.Close()

	s.AcquireTarget()
	s.BeginMeasurement()
	fmt.Println(s.PollMeasurement())
	fmt.Println(s.PollMeasurement())
	target.Invalidate()
	s.BeginMeasurement()
	fmt.Println(s.PollMeasurement())
	// Output:
	// Pending
	// Updated
	// None
}

func ExampleMeasure() {
	v, _ := luminance.Measure(450_000_000, luminance.EffectivePixelCount(1600, 900, 2))
	fmt.Printf("%.3f\n", v)
	// Output: 1.000
}
