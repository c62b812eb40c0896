package cube

// Stage is a solving milestone. Stages are ordered, so they can be compared
// with < and >.
type Stage int

const (
	// StageScrambled means no milestone is complete.
	StageScrambled Stage = iota
	// StageCross means the four D-layer edges are solved.
	StageCross
	// StageF2L means the first two layers are solved.
	StageF2L
	// StageOLL means F2L is solved and the U face is one color.
	StageOLL
	// StageSolved means the cube is solved.
	StageSolved
)

// String returns a short identifier for the stage.
func (s Stage) String() string {
	switch s {
	case StageScrambled:
		return "scrambled"
	case StageCross:
		return "cross"
	case StageF2L:
		return "f2l"
	case StageOLL:
		return "oll"
	case StageSolved:
		return "solved"
	default:
		return "unknown"
	}
}

// DisplayName returns a human-readable name for the stage.
func (s Stage) DisplayName() string {
	switch s {
	case StageScrambled:
		return "Scrambled"
	case StageCross:
		return "Cross"
	case StageF2L:
		return "First Two Layers"
	case StageOLL:
		return "Last Layer Oriented"
	case StageSolved:
		return "Solved"
	default:
		return "Unknown"
	}
}

// Stage returns the highest milestone the cube currently satisfies.
func (c *Cube) Stage() Stage {
	switch {
	case c.IsSolved():
		return StageSolved
	case c.IsOLLSolved():
		return StageOLL
	case c.IsF2LSolved():
		return StageF2L
	case c.IsCrossSolved():
		return StageCross
	default:
		return StageScrambled
	}
}
