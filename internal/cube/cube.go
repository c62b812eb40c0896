// Package cube provides a 3x3 facelet model driven by decoded cube moves.
package cube

import (
	"strings"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// Color represents a sticker color.
type Color byte

const (
	White  Color = iota // Up face when solved
	Red                 // Right face when solved
	Green               // Front face when solved
	Yellow              // Down face when solved
	Orange              // Left face when solved
	Blue                // Back face when solved
)

// String returns the single-letter color name.
func (c Color) String() string {
	switch c {
	case White:
		return "W"
	case Red:
		return "R"
	case Green:
		return "G"
	case Yellow:
		return "Y"
	case Orange:
		return "O"
	case Blue:
		return "B"
	default:
		return "?"
	}
}

// Face indexes the six faces in the order the cube reports them.
type Face int

const (
	U Face = iota
	R
	F
	D
	L
	B
)

var faceNames = [6]string{"U", "R", "F", "D", "L", "B"}

func (f Face) String() string {
	if f < 0 || f > B {
		return "?"
	}
	return faceNames[f]
}

// FaceOf converts a protocol face to a model face.
func FaceOf(f gancube.Face) (Face, bool) {
	i := f.Index()
	if i < 0 {
		return 0, false
	}
	return Face(i), true
}

// Cube is a 3x3 cube. Each face has 9 facelets indexed as:
//
//	0 1 2
//	3 4 5
//	6 7 8
//
// Face f occupies Facelets[f*9 : f*9+9]. Centers never move.
type Cube struct {
	Facelets [54]Color
}

// New creates a solved cube: white up, green front.
func New() *Cube {
	c := &Cube{}
	c.Reset()
	return c
}

// Reset returns the cube to the solved state.
func (c *Cube) Reset() {
	for i := range c.Facelets {
		c.Facelets[i] = Color(i / 9)
	}
}

// Clone returns a copy of the cube.
func (c *Cube) Clone() *Cube {
	clone := *c
	return &clone
}

// Move turns a face. turns is the number of clockwise quarter turns; -1 is
// counter-clockwise and 2 a half turn.
func (c *Cube) Move(face Face, turns int) {
	if face < U || face > B {
		return
	}
	q := ((turns % 4) + 4) % 4
	for ; q > 0; q-- {
		prev := c.Facelets
		for dst, src := range turnPerms[face] {
			c.Facelets[dst] = prev[src]
		}
	}
}

// Apply applies a protocol command. Unknown faces are ignored.
func (c *Cube) Apply(cmd gancube.Command) {
	if face, ok := FaceOf(cmd.Face); ok {
		c.Move(face, cmd.Turns)
	}
}

// ApplyAll applies a sequence of commands.
func (c *Cube) ApplyAll(cmds []gancube.Command) {
	for _, cmd := range cmds {
		c.Apply(cmd)
	}
}

// center returns the color of a face's center.
func (c *Cube) center(f Face) Color {
	return c.Facelets[int(f)*9+4]
}

// matches reports whether every sticker selected by keep shows its face's
// center color.
func (c *Cube) matches(keep func(s sticker) bool) bool {
	for i, s := range stickers {
		if keep(s) && c.Facelets[i] != c.center(Face(i/9)) {
			return false
		}
	}
	return true
}

// IsSolved returns true if every face is a single color.
func (c *Cube) IsSolved() bool {
	return c.matches(func(sticker) bool { return true })
}

// IsCrossSolved reports whether the four D-layer edges are placed and
// oriented.
func (c *Cube) IsCrossSolved() bool {
	return c.matches(func(s sticker) bool {
		return s.pos[1] == -1 && abs(s.pos[0])+abs(s.pos[2]) == 1
	})
}

// IsF2LSolved reports whether the bottom two layers are solved.
func (c *Cube) IsF2LSolved() bool {
	return c.matches(func(s sticker) bool { return s.pos[1] <= 0 })
}

// IsOLLSolved reports whether F2L is solved and the U face is one color.
func (c *Cube) IsOLLSolved() bool {
	return c.IsF2LSolved() && c.matches(func(s sticker) bool { return s.normal == normals[U] })
}

// Tiles returns the 54 facelet colors as lower-case letters, face by face
// in U R F D L B order.
func (c *Cube) Tiles() string {
	var sb strings.Builder
	for _, col := range c.Facelets {
		sb.WriteString(strings.ToLower(col.String()))
	}
	return sb.String()
}

// String returns an unfolded net of the cube.
func (c *Cube) String() string {
	var sb strings.Builder
	row := func(f Face, r int) {
		for col := 0; col < 3; col++ {
			sb.WriteString(c.Facelets[int(f)*9+r*3+col].String())
			sb.WriteByte(' ')
		}
	}

	for r := 0; r < 3; r++ {
		sb.WriteString("      ")
		row(U, r)
		sb.WriteByte('\n')
	}
	for r := 0; r < 3; r++ {
		for _, f := range []Face{L, F, R, B} {
			row(f, r)
		}
		sb.WriteByte('\n')
	}
	for r := 0; r < 3; r++ {
		sb.WriteString("      ")
		row(D, r)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
