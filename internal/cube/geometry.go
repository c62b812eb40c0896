package cube

// Sticker geometry. Every facelet is identified by the position of its
// cubie (each axis in -1..1) and the outward normal of the face it sits on.
// Face turns are rotations of those vectors, so the permutation tables are
// derived rather than written out by hand.

type vec [3]int

type sticker struct {
	pos    vec
	normal vec
}

// x to the right, y up, z towards the viewer.
var normals = [6]vec{
	U: {0, 1, 0},
	R: {1, 0, 0},
	F: {0, 0, 1},
	D: {0, -1, 0},
	L: {-1, 0, 0},
	B: {0, 0, -1},
}

// Direction of increasing row and column for each face in the unfolded net.
var (
	rowDirs = [6]vec{
		U: {0, 0, 1},
		R: {0, -1, 0},
		F: {0, -1, 0},
		D: {0, 0, -1},
		L: {0, -1, 0},
		B: {0, -1, 0},
	}
	colDirs = [6]vec{
		U: {1, 0, 0},
		R: {0, 0, -1},
		F: {1, 0, 0},
		D: {1, 0, 0},
		L: {0, 0, 1},
		B: {-1, 0, 0},
	}
)

var (
	stickers  [54]sticker
	turnPerms [6][54]int
)

func init() {
	index := make(map[sticker]int, len(stickers))
	for f := U; f <= B; f++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				n := normals[f]
				pos := add(n, add(scale(rowDirs[f], r-1), scale(colDirs[f], c-1)))
				i := int(f)*9 + r*3 + c
				stickers[i] = sticker{pos: pos, normal: n}
				index[stickers[i]] = i
			}
		}
	}

	for f := U; f <= B; f++ {
		axis := normals[f]
		for i := range turnPerms[f] {
			turnPerms[f][i] = i
		}
		for src, s := range stickers {
			if dot(s.pos, axis) != 1 {
				continue
			}
			moved := sticker{pos: rotateCW(axis, s.pos), normal: rotateCW(axis, s.normal)}
			turnPerms[f][index[moved]] = src
		}
	}
}

// rotateCW rotates v a quarter turn clockwise as seen looking at the face
// whose outward normal is axis.
func rotateCW(axis, v vec) vec {
	return sub(scale(axis, dot(axis, v)), cross(axis, v))
}

func add(a, b vec) vec { return vec{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub(a, b vec) vec { return vec{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale(a vec, k int) vec { return vec{a[0] * k, a[1] * k, a[2] * k} }
func dot(a, b vec) int { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b vec) vec {
	return vec{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
