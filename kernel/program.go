// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed shaders/camera_luminance.wgsl
var cameraLuminanceTemplate string

const (
	// DefaultName is the registry name of the built-in reduction kernel.
	DefaultName = "camera_luminance"

	// DefaultEntryPoint is the compute entry point of the built-in kernel.
	DefaultEntryPoint = "calculate_luminance"

	// ScaleFactor converts a per-pixel luminance in [0, 1] into integer
	// units for atomic accumulation. Host and kernel must use the same value.
	ScaleFactor = 1000

	// WorkgroupSize is the edge length of the square workgroup (8x8 threads).
	WorkgroupSize = 8
)

// Binding slots of the built-in kernel (group 0).
const (
	BindingParams uint32 = 0
	BindingSource uint32 = 1
	BindingResult uint32 = 2
)

// Registry errors.
var (
	// ErrNotFound is returned by Lookup for an unknown kernel name.
	ErrNotFound = errors.New("kernel: program not found")

	// ErrInvalidProgram is returned by Register for an incomplete program.
	ErrInvalidProgram = errors.New("kernel: invalid program")
)

// Program describes a reduction kernel and its binding contract.
// Programs are immutable once registered.
type Program struct {
	// Name is the stable lookup name.
	Name string

	// EntryPoint is the compute entry point function.
	EntryPoint string

	// Source is the WGSL source with all placeholders resolved.
	Source string

	// Workgroup is the workgroup size in X and Y.
	Workgroup [2]uint32

	// Scale is the fixed-point scale the kernel multiplies luminance by.
	Scale uint32

	// Params, Input and Result are the binding slots in group 0.
	Params, Input, Result uint32
}

// Validate reports whether p is complete enough to be dispatched.
func (p *Program) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil program", ErrInvalidProgram)
	case p.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidProgram)
	case p.EntryPoint == "":
		return fmt.Errorf("%w: %s: empty entry point", ErrInvalidProgram, p.Name)
	case !strings.Contains(p.Source, "fn "+p.EntryPoint+"("):
		return fmt.Errorf("%w: %s: source has no entry point %q", ErrInvalidProgram, p.Name, p.EntryPoint)
	case strings.Contains(p.Source, "{{"):
		return fmt.Errorf("%w: %s: unresolved placeholder in source", ErrInvalidProgram, p.Name)
	case p.Workgroup[0] == 0 || p.Workgroup[1] == 0:
		return fmt.Errorf("%w: %s: zero workgroup size", ErrInvalidProgram, p.Name)
	case p.Scale == 0:
		return fmt.Errorf("%w: %s: zero scale", ErrInvalidProgram, p.Name)
	}
	return nil
}

// CameraLuminance builds the built-in program from the embedded WGSL.
func CameraLuminance() *Program {
	src := strings.NewReplacer(
		"{{SCALE}}", strconv.Itoa(ScaleFactor),
		"{{WG}}", strconv.Itoa(WorkgroupSize),
	).Replace(cameraLuminanceTemplate)

	return &Program{
		Name:       DefaultName,
		EntryPoint: DefaultEntryPoint,
		Source:     src,
		Workgroup:  [2]uint32{WorkgroupSize, WorkgroupSize},
		Scale:      ScaleFactor,
		Params:     BindingParams,
		Input:      BindingSource,
		Result:     BindingResult,
	}
}

var (
	registryMu sync.RWMutex
	programs   = make(map[string]*Program)
)

func init() {
	if err := Register(CameraLuminance()); err != nil {
		panic(err)
	}
}

// Register adds p to the registry, replacing any program with the same name.
func Register(p *Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	programs[p.Name] = p
	return nil
}

// Unregister removes a program. Mostly useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(programs, name)
}

// Lookup returns the program registered under name.
func Lookup(name string) (*Program, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Names returns the registered program names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
