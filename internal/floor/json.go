package floor

import (
	"encoding/json"
	"math"
	"strconv"
)

type documentNode struct {
	ID int `json:"id"`
	X  any `json:"x"`
	Y  any `json:"y"`
	Z  any `json:"z"`
}

type documentLine struct {
	ID    int `json:"id"`
	NodeI int `json:"node_i"`
	NodeJ int `json:"node_j"`
}

type document struct {
	Meta   map[string]any            `json:"meta"`
	Nodes  []documentNode            `json:"nodes"`
	Lines  []documentLine            `json:"lines"`
	FreqHz map[string]any            `json:"freq_hz"`
	Modes  map[string]map[string]any `json:"modes"`
}

// MarshalJSON writes the dataset back in the input document layout so the
// output can be fed to normalization again. Non-finite numbers are written
// as the strings "NaN", "Infinity" and "-Infinity".
func (d *Dataset) MarshalJSON() ([]byte, error) {
	doc := document{Meta: d.Meta}
	if doc.Meta == nil {
		doc.Meta = map[string]any{}
	}
	if d.Nodes != nil {
		doc.Nodes = make([]documentNode, 0, len(d.Nodes))
		for _, id := range d.NodeIDs() {
			n := d.Nodes[id]
			doc.Nodes = append(doc.Nodes, documentNode{ID: n.ID, X: jsonNumber(n.X), Y: jsonNumber(n.Y), Z: jsonNumber(n.Z)})
		}
	}
	if d.Lines != nil {
		doc.Lines = make([]documentLine, 0, len(d.Lines))
		for _, l := range d.Lines {
			doc.Lines = append(doc.Lines, documentLine{ID: l.ID, NodeI: l.NodeI, NodeJ: l.NodeJ})
		}
	}
	if d.Frequencies != nil {
		doc.FreqHz = make(map[string]any, len(d.Frequencies))
		for m, f := range d.Frequencies {
			doc.FreqHz[strconv.Itoa(m)] = jsonNumber(f)
		}
	}
	if d.ModeShapes != nil {
		doc.Modes = make(map[string]map[string]any, len(d.ModeShapes))
		for m, shape := range d.ModeShapes {
			out := make(map[string]any, len(shape))
			for id, uz := range shape {
				out[strconv.Itoa(id)] = jsonNumber(uz)
			}
			doc.Modes[strconv.Itoa(m)] = out
		}
	}
	return json.Marshal(doc)
}

func jsonNumber(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}
