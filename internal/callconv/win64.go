package callconv

import "symforge/internal/arch"

// Win64Spec is the Microsoft x64 convention: four position-indexed
// parameter registers per class, spill above the 0x20-byte home space.
func Win64Spec() Spec {
	return Spec{
		Ordinal:  []string{"rcx", "rdx", "r8", "r9"},
		Floating: []string{"xmm0", "xmm1", "xmm2", "xmm3"},
		NonVolatile: []string{
			"rbx", "rbp", "rdi", "rsi", "rsp",
			"r12", "r13", "r14", "r15",
			"xmm6", "xmm7", "xmm8", "xmm9", "xmm10",
			"xmm11", "xmm12", "xmm13", "xmm14", "xmm15",
		},
		Stack: "rsp",
	}
}

// NewWin64 resolves the Microsoft x64 convention against dir.
func NewWin64(dir arch.Directory) (*Rules, error) {
	return New(dir, Win64Spec())
}
