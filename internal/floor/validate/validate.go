package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
)

type Code string

const (
	EMissingKey       Code = "E_MISSING_KEY"
	ENodesEmpty       Code = "E_NODES_EMPTY"
	ENodeDuplicate    Code = "E_NODE_DUPLICATE"
	ENodeIDInvalid    Code = "E_NODE_ID_INVALID"
	ENodeCoordInvalid Code = "E_NODE_COORD_INVALID"
	ELinesEmpty       Code = "E_LINES_EMPTY"
	ELineDuplicate    Code = "E_LINE_DUPLICATE"
	ELineNodeUndef    Code = "E_LINE_NODE_UNDEF"
	ELineSelfLoop     Code = "E_LINE_SELF_LOOP"
	EFreqNaN          Code = "E_FREQ_NAN"
	EFreqInfinity     Code = "E_FREQ_INFINITY"
	EFreqNonPositive  Code = "E_FREQ_NON_POSITIVE"
	EModeFreqMismatch Code = "E_MODE_FREQ_MISMATCH"
	EModeNodeUndef    Code = "E_MODE_NODE_UNDEF"
	EUzNaN            Code = "E_UZ_NAN"
	EUzInfinity       Code = "E_UZ_INFINITY"
	WFreqHigh         Code = "W_FREQ_HIGH"
	WModeAllZero      Code = "W_MODE_ALL_ZERO"
	WNodeZMixed       Code = "W_NODE_Z_MIXED"
)

const (
	// MaxErrors caps collection for pathological inputs.
	MaxErrors = 100
	// Tolerance is the absolute tolerance for zero amplitudes and equal elevations.
	Tolerance = 1e-9
	// HighFrequencyHz is the threshold above which animation looks noisy.
	HighFrequencyHz = 30.0
)

type Issue struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r Report) HasErrors() bool { return len(r.Errors) > 0 }

// Err folds the fatal entries into a single error, or nil when there are none.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, string(e.Code))
	}
	return fmt.Errorf("dataset has %d error(s): %s", len(r.Errors), strings.Join(codes, ", "))
}

// collector threads through the checks; full reports the error cap.
type collector struct {
	report Report
}

func (c *collector) fail(code Code, format string, args ...any) bool {
	c.report.Errors = append(c.report.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	return c.full()
}

func (c *collector) warn(code Code, format string, args ...any) {
	c.report.Warnings = append(c.report.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) full() bool { return len(c.report.Errors) >= MaxErrors }

func (c *collector) result() Report {
	if c.report.Errors == nil {
		c.report.Errors = []Issue{}
	}
	if c.report.Warnings == nil {
		c.report.Warnings = []Issue{}
	}
	return c.report
}

type check func(*floor.Dataset, *collector) bool

// Validate runs every structural and numeric check against ds and never
// mutates it. Checks run in dependency order; missing or empty structures
// stop the run, and so does reaching MaxErrors.
func Validate(ds *floor.Dataset) Report {
	c := &collector{}
	if ds == nil {
		c.fail(EMissingKey, "dataset is nil")
		return c.result()
	}
	checks := []check{
		checkRequired,
		checkNonEmpty,
		checkNodeIDs,
		checkNodeCoords,
		checkLineIDs,
		checkLineRefs,
		checkFrequencies,
		checkModeParity,
		checkAmplitudes,
		checkAllZeroModes,
		checkPlanar,
	}
	for _, run := range checks {
		if stop := run(ds, c); stop || c.full() {
			break
		}
	}
	return c.result()
}

func checkRequired(ds *floor.Dataset, c *collector) bool {
	missing := false
	required := []struct {
		key     string
		present bool
	}{
		{"nodes", ds.Nodes != nil},
		{"lines", ds.Lines != nil},
		{"freq_hz", ds.Frequencies != nil},
		{"modes", ds.ModeShapes != nil},
	}
	for _, r := range required {
		if r.present {
			continue
		}
		missing = true
		if c.fail(EMissingKey, "required key %q is missing or has the wrong type", r.key) {
			break
		}
	}
	return missing
}

func checkNonEmpty(ds *floor.Dataset, c *collector) bool {
	empty := false
	if len(ds.Nodes) == 0 {
		empty = true
		c.fail(ENodesEmpty, "nodes: at least one node is required")
	}
	if len(ds.Lines) == 0 {
		empty = true
		c.fail(ELinesEmpty, "lines: at least one line is required")
	}
	return empty
}

func checkNodeIDs(ds *floor.Dataset, c *collector) bool {
	for _, id := range ds.NodeIDs() {
		seen := ds.NodeSeen[id]
		if id <= 0 {
			for _, idx := range seen {
				if c.fail(ENodeIDInvalid, "nodes[%d]: id %d is not a positive integer", idx, id) {
					return true
				}
			}
			continue
		}
		for _, idx := range seen[1:] {
			if c.fail(ENodeDuplicate, "nodes[%d]: duplicate node id %d (first at nodes[%d])", idx, id, seen[0]) {
				return true
			}
		}
	}
	return false
}

func checkNodeCoords(ds *floor.Dataset, c *collector) bool {
	for _, id := range ds.NodeIDs() {
		if id <= 0 {
			continue
		}
		n := ds.Nodes[id]
		where := fmt.Sprintf("node %d", id)
		if seen := ds.NodeSeen[id]; len(seen) > 0 {
			where = fmt.Sprintf("nodes[%d] (id %d)", seen[len(seen)-1], id)
		}
		for _, coord := range []struct {
			axis  string
			value float64
		}{{"x", n.X}, {"y", n.Y}, {"z", n.Z}} {
			if !math.IsNaN(coord.value) && !math.IsInf(coord.value, 0) {
				continue
			}
			if c.fail(ENodeCoordInvalid, "%s: coordinate %s is %v, not a finite number", where, coord.axis, coord.value) {
				return true
			}
		}
	}
	return false
}

func checkLineIDs(ds *floor.Dataset, c *collector) bool {
	first := make(map[int]int, len(ds.Lines))
	for i, l := range ds.Lines {
		prev, dup := first[l.ID]
		if !dup {
			first[l.ID] = i
			continue
		}
		if c.fail(ELineDuplicate, "lines[%d]: duplicate line id %d (first at lines[%d])", i, l.ID, prev) {
			return true
		}
	}
	return false
}

func checkLineRefs(ds *floor.Dataset, c *collector) bool {
	for i, l := range ds.Lines {
		for _, end := range []struct {
			name string
			id   int
		}{{"node_i", l.NodeI}, {"node_j", l.NodeJ}} {
			if _, ok := ds.Nodes[end.id]; ok {
				continue
			}
			if c.fail(ELineNodeUndef, "lines[%d] (id %d): %s references undefined node %d", i, l.ID, end.name, end.id) {
				return true
			}
		}
		if l.NodeI == l.NodeJ {
			if c.fail(ELineSelfLoop, "lines[%d] (id %d): node_i and node_j are both %d", i, l.ID, l.NodeI) {
				return true
			}
		}
	}
	return false
}

func checkFrequencies(ds *floor.Dataset, c *collector) bool {
	for _, m := range floor.SortedIDs(ds.Frequencies) {
		f := ds.Frequencies[m]
		var stop bool
		switch {
		case math.IsNaN(f):
			stop = c.fail(EFreqNaN, "freq_hz[%d]: frequency is not a number", m)
		case math.IsInf(f, 0):
			stop = c.fail(EFreqInfinity, "freq_hz[%d]: frequency is infinite", m)
		case f <= 0:
			stop = c.fail(EFreqNonPositive, "freq_hz[%d]: frequency %g must be positive", m, f)
		case f > HighFrequencyHz:
			c.warn(WFreqHigh, "freq_hz[%d]: frequency %g Hz exceeds %g Hz and may animate noisily", m, f, HighFrequencyHz)
		}
		if stop {
			return true
		}
	}
	return false
}

func checkModeParity(ds *floor.Dataset, c *collector) bool {
	for _, m := range floor.SortedIDs(ds.Frequencies) {
		if _, ok := ds.ModeShapes[m]; ok {
			continue
		}
		if c.fail(EModeFreqMismatch, "mode %d has a frequency in freq_hz but no shape in modes", m) {
			return true
		}
	}
	for _, m := range floor.SortedIDs(ds.ModeShapes) {
		if _, ok := ds.Frequencies[m]; ok {
			continue
		}
		if c.fail(EModeFreqMismatch, "mode %d has a shape in modes but no frequency in freq_hz", m) {
			return true
		}
	}
	return false
}

func checkAmplitudes(ds *floor.Dataset, c *collector) bool {
	for _, m := range floor.SortedIDs(ds.ModeShapes) {
		shape := ds.ModeShapes[m]
		for _, id := range floor.SortedIDs(shape) {
			uz := shape[id]
			if _, ok := ds.Nodes[id]; !ok {
				if c.fail(EModeNodeUndef, "modes[%d][%d]: amplitude references undefined node %d", m, id, id) {
					return true
				}
			}
			var stop bool
			switch {
			case math.IsNaN(uz):
				stop = c.fail(EUzNaN, "modes[%d][%d]: amplitude is not a number", m, id)
			case math.IsInf(uz, 0):
				stop = c.fail(EUzInfinity, "modes[%d][%d]: amplitude is infinite", m, id)
			}
			if stop {
				return true
			}
		}
		for _, key := range ds.InvalidNodeKeys[m] {
			if c.fail(EModeNodeUndef, "modes[%d][%q]: amplitude key is not an integer node id", m, key) {
				return true
			}
		}
	}
	return false
}

func checkAllZeroModes(ds *floor.Dataset, c *collector) bool {
	for _, m := range floor.SortedIDs(ds.ModeShapes) {
		allZero := true
		for _, uz := range ds.ModeShapes[m] {
			if !(math.Abs(uz) <= Tolerance) {
				allZero = false
				break
			}
		}
		if allZero {
			c.warn(WModeAllZero, "modes[%d]: every amplitude is zero; the mode will not move", m)
		}
	}
	return false
}

func checkPlanar(ds *floor.Dataset, c *collector) bool {
	ids := ds.NodeIDs()
	if len(ids) == 0 {
		return false
	}
	lo, hi := ds.Nodes[ids[0]].Z, ds.Nodes[ids[0]].Z
	loID, hiID := ids[0], ids[0]
	for _, id := range ids[1:] {
		z := ds.Nodes[id].Z
		if z < lo {
			lo, loID = z, id
		}
		if z > hi {
			hi, hiID = z, id
		}
	}
	if hi-lo > Tolerance {
		c.warn(WNodeZMixed, "node elevations differ: node %d at z=%g, node %d at z=%g", loID, lo, hiID, hi)
	}
	return false
}
