//go:build nogpu

package main

func configureGPU(bool) {}
