package cube

import gancube "github.com/SeamusWaldron/gancube_ble_library"

// Tracker follows a physical cube from its stream of moves and reports
// solving milestones.
type Tracker struct {
	cube    *Cube
	current Stage
	highest Stage // Monotonic - never goes backwards
	moves   int

	stageCallback func(stage Stage)
}

// NewTracker creates a tracker that assumes the cube starts solved.
func NewTracker() *Tracker {
	return &Tracker{
		cube:    New(),
		current: StageSolved,
	}
}

// SetStageCallback sets a callback that fires when a new highest stage is
// reached.
func (t *Tracker) SetStageCallback(cb func(stage Stage)) {
	t.stageCallback = cb
}

// Reset starts a new attempt. The cube is assumed solved again and the
// highest stage drops back to scrambled.
func (t *Tracker) Reset() {
	t.cube.Reset()
	t.current = StageSolved
	t.highest = StageScrambled
	t.moves = 0
}

// ApplyMove applies a decoded move.
func (t *Tracker) ApplyMove(m *gancube.Move) {
	if m == nil {
		return
	}
	t.Apply(m.Command())
}

// Apply applies a command and checks for stage transitions.
func (t *Tracker) Apply(cmd gancube.Command) {
	t.cube.Apply(cmd)
	t.moves++

	t.current = t.cube.Stage()
	if t.current > t.highest {
		t.highest = t.current
		if t.stageCallback != nil {
			t.stageCallback(t.current)
		}
	}
}

// Stage returns the stage of the current cube state. It can go backwards.
func (t *Tracker) Stage() Stage {
	return t.current
}

// HighestStage returns the highest stage reached since the last Reset.
func (t *Tracker) HighestStage() Stage {
	return t.highest
}

// MoveCount returns the number of moves applied since the last Reset.
func (t *Tracker) MoveCount() int {
	return t.moves
}

// IsSolved returns true if the cube is solved.
func (t *Tracker) IsSolved() bool {
	return t.current == StageSolved
}

// Cube returns the underlying cube for inspection.
func (t *Tracker) Cube() *Cube {
	return t.cube
}
