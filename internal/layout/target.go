package layout

// Target describes the ABI target and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-pc-windows-msvc"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

// AMD64Windows is the default target for the synthetic symbol engine.
func AMD64Windows() Target {
	return Target{
		Triple:   "x86_64-pc-windows-msvc",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// AMD64Linux exists for symbol sets describing ELF modules.
func AMD64Linux() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}
