package kernel

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/luminance/internal/cache"
)

// Compiled SPIR-V keyed by WGSL source. Devices recompile on every
// Prepare, and programs are few.
var spirvCache = cache.New[string, []uint32](16)

// Compile translates the program's WGSL source to SPIR-V words with naga.
// Results are cached by source; callers must not modify the returned slice.
func Compile(p *Program) ([]uint32, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return spirvCache.GetOrCreate(p.Source, func() ([]uint32, error) {
		return compileWGSL(p)
	})
}

// CompileStats returns hit and miss counts of the SPIR-V cache.
func CompileStats() cache.Stats {
	return spirvCache.Stats()
}

func compileWGSL(p *Program) ([]uint32, error) {
	spirvBytes, err := naga.Compile(p.Source)
	if err != nil {
		return nil, fmt.Errorf("kernel: compile %s: %w", p.Name, err)
	}
	// SPIR-V is little-endian 32-bit words.
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("kernel: compile %s: SPIR-V size %d is not word aligned", p.Name, len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
