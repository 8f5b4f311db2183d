package sim

import (
	"fmt"
	"math"
)

// Neighborhood selects the distance metric used for the contact radius.
type Neighborhood string

const (
	// NeighborhoodMoore counts cells within Chebyshev distance (26 neighbours at radius 1).
	NeighborhoodMoore Neighborhood = "moore"
	// NeighborhoodVonNeumann counts cells within Manhattan distance (6 neighbours at radius 1).
	NeighborhoodVonNeumann Neighborhood = "von-neumann"
)

// validNeighborhoods maps accepted neighbourhood names.
var validNeighborhoods = map[Neighborhood]bool{
	NeighborhoodMoore:      true,
	NeighborhoodVonNeumann: true,
	"":                     true, // empty defaults to moore
}

// IsValidNeighborhood returns true if name is a recognized neighbourhood.
func IsValidNeighborhood(name string) bool {
	return validNeighborhoods[Neighborhood(name)]
}

// DefaultCellLength is the edge length of one lattice cell in box units.
const DefaultCellLength = 1.0

// Coord addresses one lattice cell.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Grid discretizes a box into cubic cells. Cell ids are dense:
// id = x + nx*(y + ny*z). Immutable after NewGrid, so a single Grid
// may be shared by any number of replicas.
type Grid struct {
	nx, ny, nz    int
	cellLength    float64
	contactRadius int
	neighborhood  Neighborhood
	neighbors     [][]int
}

// NewGrid builds a grid covering size (box units) with cubic cells of edge
// cellLength. Each dimension is ceil(size/cellLength). contactRadius is the
// lattice distance (in cells) at which two occupants interact and count as bound.
func NewGrid(size [3]float64, cellLength float64, contactRadius int, nb Neighborhood) (*Grid, error) {
	if cellLength <= 0 || math.IsNaN(cellLength) || math.IsInf(cellLength, 0) {
		return nil, configErrorf("grid.cell_length", ErrInvalidParameter, "must be a finite positive number, got %v", cellLength)
	}
	if contactRadius < 1 {
		return nil, configErrorf("grid.contact_radius", ErrInvalidParameter, "must be >= 1, got %d", contactRadius)
	}
	if !validNeighborhoods[nb] {
		return nil, configErrorf("grid.neighborhood", ErrInvalidParameter, "unknown neighborhood %q; valid: moore, von-neumann", nb)
	}
	if nb == "" {
		nb = NeighborhoodMoore
	}
	var dims [3]int
	for i, s := range size {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, configErrorf(fmt.Sprintf("grid.size[%d]", i), ErrInvalidParameter, "must be a finite positive number, got %v", s)
		}
		// Round first so 10/0.1 does not become 101 cells through float error.
		n := s / cellLength
		if r := math.Round(n); math.Abs(n-r) < 1e-9 {
			n = r
		}
		dims[i] = int(math.Ceil(n))
	}
	g := &Grid{
		nx:            dims[0],
		ny:            dims[1],
		nz:            dims[2],
		cellLength:    cellLength,
		contactRadius: contactRadius,
		neighborhood:  nb,
	}
	g.neighbors = g.buildNeighbors()
	return g, nil
}

// MustNewGrid is NewGrid for statically known parameters. Panics on error.
func MustNewGrid(size [3]float64, cellLength float64, contactRadius int, nb Neighborhood) *Grid {
	g, err := NewGrid(size, cellLength, contactRadius, nb)
	if err != nil {
		panic(err)
	}
	return g
}

// Dims returns the number of cells along x, y and z.
func (g *Grid) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

// NumCells returns nx*ny*nz.
func (g *Grid) NumCells() int { return g.nx * g.ny * g.nz }

// CellLength returns the cell edge length in box units.
func (g *Grid) CellLength() float64 { return g.cellLength }

// ContactRadius returns the adjacency radius in cells.
func (g *Grid) ContactRadius() int { return g.contactRadius }

// Neighborhood returns the adjacency metric.
func (g *Grid) Neighborhood() Neighborhood { return g.neighborhood }

// CellAt maps a coordinate to its cell id.
func (g *Grid) CellAt(c Coord) (int, error) {
	if !g.inBounds(c) {
		return 0, fmt.Errorf("cell %s in %dx%dx%d grid: %w", c, g.nx, g.ny, g.nz, ErrOutOfBounds)
	}
	return c.X + g.nx*(c.Y+g.ny*c.Z), nil
}

// CoordOf is the inverse of CellAt. Panics if cell is not a valid id.
func (g *Grid) CoordOf(cell int) Coord {
	if cell < 0 || cell >= g.NumCells() {
		panic(fmt.Sprintf("Grid.CoordOf: cell %d outside [0,%d)", cell, g.NumCells()))
	}
	x := cell % g.nx
	y := (cell / g.nx) % g.ny
	z := cell / (g.nx * g.ny)
	return Coord{X: x, Y: y, Z: z}
}

// IsAdjacent reports whether two distinct cells lie within the contact radius.
func (g *Grid) IsAdjacent(a, b int) bool {
	if a == b {
		return false
	}
	return g.distance(g.CoordOf(a), g.CoordOf(b)) <= g.contactRadius
}

// Neighbors returns the cells adjacent to cell in ascending id order.
// The returned slice is shared; callers must not modify it.
func (g *Grid) Neighbors(cell int) []int {
	return g.neighbors[cell]
}

func (g *Grid) inBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.nx && c.Y >= 0 && c.Y < g.ny && c.Z >= 0 && c.Z < g.nz
}

func (g *Grid) distance(a, b Coord) int {
	dx, dy, dz := abs(a.X-b.X), abs(a.Y-b.Y), abs(a.Z-b.Z)
	if g.neighborhood == NeighborhoodVonNeumann {
		return dx + dy + dz
	}
	return max(dx, dy, dz)
}

// buildNeighbors precomputes adjacency lists. Iterating dz, dy, dx in that
// order yields ids in ascending order, which keeps move proposals stable
// for a given seed.
func (g *Grid) buildNeighbors() [][]int {
	r := g.contactRadius
	out := make([][]int, g.NumCells())
	for cell := range out {
		c := g.CoordOf(cell)
		var list []int
		for dz := -r; dz <= r; dz++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					n := Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
					if !g.inBounds(n) || g.distance(c, n) > r {
						continue
					}
					id, _ := g.CellAt(n)
					list = append(list, id)
				}
			}
		}
		out[cell] = list
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
