//go:build !nogpu

package main

import "github.com/gogpu/luminance/gpu"

func configureGPU(spirv bool) {
	o := gpu.DefaultOptions()
	if spirv {
		o.Shader = gpu.ShaderSPIRV
	}
	gpu.Configure(o)
}
