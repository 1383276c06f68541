package floor

import "sort"

type Node struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

type Line struct {
	ID    int `json:"id"`
	NodeI int `json:"nodeI"`
	NodeJ int `json:"nodeJ"`
}

// Dataset is the canonical in-memory floor model produced by normalization.
// A nil Nodes, Lines, Frequencies or ModeShapes means the source document
// did not carry that structure at all; an empty non-nil value means it was
// present but empty.
type Dataset struct {
	Meta  map[string]any `json:"meta"`
	Nodes map[int]Node   `json:"nodes"`
	// NodeSeen holds, for every node id, the source array indices it was read
	// from. Nodes keeps only the last occurrence.
	NodeSeen    map[int][]int           `json:"-"`
	Lines       []Line                  `json:"lines"`
	Frequencies map[int]float64         `json:"frequencies"`
	ModeShapes  map[int]map[int]float64 `json:"modeShapes"`
	// InvalidNodeKeys holds, per mode, the amplitude keys that are not
	// integer node ids. Their amplitudes are not in ModeShapes.
	InvalidNodeKeys map[int][]string `json:"-"`
}

// NodeIDs returns the node ids in ascending order.
func (d *Dataset) NodeIDs() []int {
	return sortedKeys(d.Nodes)
}

// ModeNumbers returns the union of mode numbers found in Frequencies and
// ModeShapes in ascending order.
func (d *Dataset) ModeNumbers() []int {
	seen := make(map[int]struct{}, len(d.Frequencies))
	for m := range d.Frequencies {
		seen[m] = struct{}{}
	}
	for m := range d.ModeShapes {
		seen[m] = struct{}{}
	}
	return sortedKeys(seen)
}

// Occurrences reports how many times id appeared in the source nodes array.
func (d *Dataset) Occurrences(id int) int {
	return len(d.NodeSeen[id])
}

// Title picks a human readable name from meta, if one was supplied.
func (d *Dataset) Title() string {
	for _, key := range []string{"title", "name", "project"} {
		if s, ok := d.Meta[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// SortedIDs returns the integer keys of m (mode numbers or node ids) in ascending order.
func SortedIDs[V any](m map[int]V) []int {
	return sortedKeys(m)
}
