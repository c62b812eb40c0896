package gancube

import (
	"fmt"
	"strings"
	"time"
)

// Face represents a cube face in standard notation.
type Face string

const (
	FaceU Face = "U" // Up
	FaceR Face = "R" // Right
	FaceF Face = "F" // Front
	FaceD Face = "D" // Down
	FaceL Face = "L" // Left
	FaceB Face = "B" // Back
)

// faceCodes is the order in which the cube numbers its faces on the wire.
var faceCodes = [...]Face{FaceU, FaceR, FaceF, FaceD, FaceL, FaceB}

// Faces returns all six faces in wire order.
func Faces() []Face {
	faces := make([]Face, len(faceCodes))
	copy(faces, faceCodes[:])
	return faces
}

// Index returns the face's wire code (0-5), or -1 for an unknown face.
func (f Face) Index() int {
	for i, face := range faceCodes {
		if face == f {
			return i
		}
	}
	return -1
}

// EventType is the 4-bit discriminant at the start of every decrypted
// notification.
type EventType uint8

const (
	// EventMove is a face turn.
	EventMove EventType = 2
)

// Event is a decoded notification. The only implementation is *Move.
type Event interface {
	EventType() EventType
}

// Move is a single face turn reported by the cube.
type Move struct {
	Serial  uint8         // Move counter, wraps at 256
	Face    Face          // Face that was turned
	Prime   bool          // Counter-clockwise turn
	Elapsed time.Duration // Device timestamp, millisecond resolution
}

// EventType returns EventMove.
func (m *Move) EventType() EventType {
	return EventMove
}

// Command returns the move as a face and a signed quarter-turn count.
func (m *Move) Command() Command {
	if m.Prime {
		return Command{Face: m.Face, Turns: -1}
	}
	return Command{Face: m.Face, Turns: 1}
}

// Notation returns the standard notation for the move, e.g. R or R'.
func (m *Move) Notation() string {
	return m.Command().String()
}

// String returns a debug representation of the move.
func (m *Move) String() string {
	return fmt.Sprintf("#%d %s @%s", m.Serial, m.Notation(), m.Elapsed)
}

// Command is a face turn: +1 is clockwise, -1 counter-clockwise and 2 a
// half turn. Moves decoded from the cube are always quarter turns.
type Command struct {
	Face  Face
	Turns int
}

// String returns the standard notation for the command.
func (c Command) String() string {
	switch c.Turns {
	case -1:
		return string(c.Face) + "'"
	case 2, -2:
		return string(c.Face) + "2"
	default:
		return string(c.Face)
	}
}

// Inverse returns the command that undoes c.
func (c Command) Inverse() Command {
	return Command{Face: c.Face, Turns: -c.Turns}
}

// ParseCommand parses standard notation (R, R', R2) into a Command.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return Command{}, ErrInvalidNotation
	}

	face := Face(strings.ToUpper(s[:1]))
	if face.Index() < 0 {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidNotation, s)
	}

	switch s[1:] {
	case "":
		return Command{Face: face, Turns: 1}, nil
	case "'", "`":
		return Command{Face: face, Turns: -1}, nil
	case "2", "2'":
		return Command{Face: face, Turns: 2}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidNotation, s)
	}
}

// ParseCommands parses a space-separated sequence such as "R U R' U'".
func ParseCommands(s string) ([]Command, error) {
	parts := strings.Fields(s)
	cmds := make([]Command, 0, len(parts))
	for _, part := range parts {
		c, err := ParseCommand(part)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// FormatCommands formats commands as a space-separated notation string.
func FormatCommands(cmds []Command) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Result is one item of a decoded stream: either an Event or an error.
type Result struct {
	Event Event
	Err   error
}

// Move returns the result's move, or nil if it is not a move.
func (r Result) Move() *Move {
	m, _ := r.Event.(*Move)
	return m
}
