// Package world provides the bounded multi-occupancy grid and spatial queries.
// Coordinates are plain (x, y) lattice positions; the grid does not wrap.
package world

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for coordinates outside [0,W)x[0,H).
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrNotPresent is returned when an occupant is not where the caller claims.
	ErrNotPresent = errors.New("occupant not present at coordinate")
)

// Coord is a position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Chebyshev returns the chessboard distance between two coordinates.
// Vision radii use this metric: a radius-1 neighborhood is the 8 surrounding
// cells plus the cell itself.
func Chebyshev(a, b Coord) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}

// Occupant is anything that can stand on a grid cell. Entity IDs must be
// unique across every occupant placed on the same grid.
type Occupant interface {
	EntityID() uint64
}

// Grid is a bounded, non-wrapping lattice. Cells hold any number of
// occupants; each occupant stands in at most one cell at a time.
type Grid struct {
	Width  int
	Height int

	cells     [][][]Occupant // [y][x] -> occupants in insertion order
	locations map[uint64]Coord
}

// New creates an empty width x height grid.
func New(width, height int) *Grid {
	cells := make([][][]Occupant, height)
	for y := range cells {
		cells[y] = make([][]Occupant, width)
	}
	return &Grid{
		Width:     width,
		Height:    height,
		cells:     cells,
		locations: make(map[uint64]Coord),
	}
}

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Place puts an occupant on a cell. An occupant that is already standing
// somewhere must be moved with Move, not placed twice.
func (g *Grid) Place(o Occupant, at Coord) error {
	if !g.InBounds(at) {
		return fmt.Errorf("place at (%d,%d): %w", at.X, at.Y, ErrOutOfBounds)
	}
	id := o.EntityID()
	if prev, ok := g.locations[id]; ok {
		return fmt.Errorf("occupant %d already placed at (%d,%d)", id, prev.X, prev.Y)
	}
	g.cells[at.Y][at.X] = append(g.cells[at.Y][at.X], o)
	g.locations[id] = at
	return nil
}

// Remove takes an occupant off a cell.
func (g *Grid) Remove(o Occupant, at Coord) error {
	if !g.InBounds(at) {
		return fmt.Errorf("remove at (%d,%d): %w", at.X, at.Y, ErrOutOfBounds)
	}
	id := o.EntityID()
	if loc, ok := g.locations[id]; !ok || loc != at {
		return fmt.Errorf("occupant %d at (%d,%d): %w", id, at.X, at.Y, ErrNotPresent)
	}
	cell := g.cells[at.Y][at.X]
	for i, occ := range cell {
		if occ.EntityID() == id {
			g.cells[at.Y][at.X] = append(cell[:i:i], cell[i+1:]...)
			break
		}
	}
	delete(g.locations, id)
	return nil
}

// Move relocates a placed occupant to a new cell.
func (g *Grid) Move(o Occupant, to Coord) error {
	from, ok := g.locations[o.EntityID()]
	if !ok {
		return fmt.Errorf("occupant %d: %w", o.EntityID(), ErrNotPresent)
	}
	if !g.InBounds(to) {
		return fmt.Errorf("move to (%d,%d): %w", to.X, to.Y, ErrOutOfBounds)
	}
	if err := g.Remove(o, from); err != nil {
		return err
	}
	return g.Place(o, to)
}

// LocationOf returns where an occupant currently stands.
func (g *Grid) LocationOf(id uint64) (Coord, bool) {
	c, ok := g.locations[id]
	return c, ok
}

// CellOccupants returns the occupants of one cell, in insertion order.
// The returned slice is a copy.
func (g *Grid) CellOccupants(at Coord) []Occupant {
	if !g.InBounds(at) {
		return nil
	}
	cell := g.cells[at.Y][at.X]
	out := make([]Occupant, len(cell))
	copy(out, cell)
	return out
}

// Neighbors returns every occupant within Chebyshev distance radius of at,
// excluding self when given. Ordering is deterministic: cells are scanned in
// (y, x) ascending order and occupants within a cell keep insertion order, so
// the same world state always yields the same neighbor list.
func (g *Grid) Neighbors(at Coord, radius int, self Occupant) []Occupant {
	if radius < 0 || !g.InBounds(at) {
		return nil
	}
	minY := max(0, at.Y-radius)
	maxY := min(g.Height-1, at.Y+radius)
	minX := max(0, at.X-radius)
	maxX := min(g.Width-1, at.X+radius)

	var out []Occupant
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for _, occ := range g.cells[y][x] {
				if self != nil && occ.EntityID() == self.EntityID() {
					continue
				}
				out = append(out, occ)
			}
		}
	}
	return out
}
