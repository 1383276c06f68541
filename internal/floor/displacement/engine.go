package displacement

import (
	"math"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"gonum.org/v1/gonum/floats"
)

// Engine maps (node, mode, time, scale) to a displaced elevation. It is
// built once per validated dataset and holds no mutable state, so its
// methods may be called in any order and at any rate.
type Engine struct {
	ds     *floor.Dataset
	ids    []int
	modes  []int
	lFloor float64
	aRef   float64
	uMax   map[int]float64
}

type NodePosition struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	// DZ is the displacement added to the undisplaced elevation.
	DZ float64 `json:"dz"`
}

// New precomputes L_floor, A_ref and U_max for every mode of ds. The
// dataset must already be free of validation errors.
func New(ds *floor.Dataset) *Engine {
	e := &Engine{
		ds:    ds,
		ids:   ds.NodeIDs(),
		modes: ds.ModeNumbers(),
		uMax:  make(map[int]float64, len(ds.ModeShapes)),
	}
	e.lFloor = floorSpan(ds)
	e.aRef = e.lFloor / 10
	for m, shape := range ds.ModeShapes {
		e.uMax[m] = maxAbs(shape)
	}
	return e
}

// floorSpan is the larger planar extent of the node cloud, or 1 when
// every node sits at the same plan position.
func floorSpan(ds *floor.Dataset) float64 {
	if len(ds.Nodes) == 0 {
		return 1
	}
	xs := make([]float64, 0, len(ds.Nodes))
	ys := make([]float64, 0, len(ds.Nodes))
	for _, n := range ds.Nodes {
		xs = append(xs, n.X)
		ys = append(ys, n.Y)
	}
	span := math.Max(floats.Max(xs)-floats.Min(xs), floats.Max(ys)-floats.Min(ys))
	if span == 0 {
		return 1
	}
	return span
}

func maxAbs(shape map[int]float64) float64 {
	if len(shape) == 0 {
		return 1
	}
	abs := make([]float64, 0, len(shape))
	for _, uz := range shape {
		abs = append(abs, math.Abs(uz))
	}
	if m := floats.Max(abs); m != 0 {
		return m
	}
	return 1
}

func (e *Engine) Dataset() *floor.Dataset { return e.ds }

// LFloor is the reference floor length used to size displacements.
func (e *Engine) LFloor() float64 { return e.lFloor }

// ARef is the peak displacement at scale 1: a tenth of LFloor.
func (e *Engine) ARef() float64 { return e.aRef }

// UMax returns the normalising amplitude of mode m, 1 for unknown or all-zero modes.
func (e *Engine) UMax(m int) float64 {
	if u, ok := e.uMax[m]; ok {
		return u
	}
	return 1
}

// Modes lists the dataset's mode numbers in ascending order.
func (e *Engine) Modes() []int {
	return append([]int(nil), e.modes...)
}

// NodeIDs lists node ids in ascending order.
func (e *Engine) NodeIDs() []int {
	return append([]int(nil), e.ids...)
}

// Frequency of mode m in Hz, 0 when the mode has none.
func (e *Engine) Frequency(m int) float64 {
	return e.ds.Frequencies[m]
}

// Period of mode m in seconds, 0 when the frequency is not positive.
func (e *Engine) Period(m int) float64 {
	f := e.Frequency(m)
	if f <= 0 {
		return 0
	}
	return 1 / f
}

// Displacement is the vertical offset of node id under mode m.
func (e *Engine) Displacement(id, m int, t, scale float64) float64 {
	uz := e.ds.ModeShapes[m][id]
	if uz == 0 {
		return 0
	}
	f := e.Frequency(m)
	return scale * e.aRef * (uz / e.UMax(m)) * math.Sin(2*math.Pi*f*t)
}

// Elevation is the undisplaced z of node id, or 0 for an unknown node.
func (e *Engine) Elevation(id int) float64 {
	return e.ds.Nodes[id].Z
}

// DisplacedElevation returns z + u for node id, or 0 for an unknown node.
func (e *Engine) DisplacedElevation(id, m int, t, scale float64) float64 {
	n, ok := e.ds.Nodes[id]
	if !ok {
		return 0
	}
	return n.Z + e.Displacement(id, m, t, scale)
}

// Frame returns every node's displaced position in ascending id order.
func (e *Engine) Frame(m int, t, scale float64) []NodePosition {
	out := make([]NodePosition, 0, len(e.ids))
	for _, id := range e.ids {
		n := e.ds.Nodes[id]
		dz := e.Displacement(id, m, t, scale)
		out = append(out, NodePosition{ID: id, X: n.X, Y: n.Y, Z: n.Z + dz, DZ: dz})
	}
	return out
}

// Rest returns every node at its undisplaced position.
func (e *Engine) Rest() []NodePosition {
	out := make([]NodePosition, 0, len(e.ids))
	for _, id := range e.ids {
		n := e.ds.Nodes[id]
		out = append(out, NodePosition{ID: id, X: n.X, Y: n.Y, Z: n.Z})
	}
	return out
}
