package reference

// #region tool-meta
// ToolMeta describes one tool call made during the turn.
type ToolMeta struct {
	ToolName string
	// Meta is free text attached to the call (arguments summary, command line).
	Meta string
}

// #endregion tool-meta

// #region config
// Config holds the memory-label thresholds. The defaults are empirically tuned
// values; keep them unless new calibration data says otherwise.
type Config struct {
	// Labels shorter than this must appear verbatim in the output.
	MemoryShortLabelLen int
	// Longer labels match on a lowercase prefix of this many characters.
	MemoryFingerprintLen int
}

// DefaultConfig returns the 20/60 thresholds.
func DefaultConfig() Config {
	return Config{
		MemoryShortLabelLen:  20,
		MemoryFingerprintLen: 60,
	}
}

// #endregion config
